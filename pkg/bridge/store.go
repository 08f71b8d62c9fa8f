// Copyright 2025 VeloxVoIP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridge

import (
	"sync"
)

// Store owns all in-flight sessions. Read-modify-write access is serialized
// per session, so concurrently delivered webhooks for the same session apply
// atomically while unrelated sessions proceed without coordination. The raw
// map is never exposed.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu sync.Mutex
	s  *Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*sessionEntry)}
}

// Create inserts a new session. The stored copy is independent of the caller's.
func (st *Store) Create(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[s.SessionID]; ok {
		return ErrSessionExists
	}
	st.sessions[s.SessionID] = &sessionEntry{s: s.Clone()}
	return nil
}

// Snapshot returns an independent copy of the session's current state.
func (st *Store) Snapshot(sessionID string) (*Session, bool) {
	st.mu.RLock()
	e, ok := st.sessions[sessionID]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), true
}

// Update runs fn under the session's lock. Mutations fn makes are persisted
// even when fn returns an error: a failed provider call must not roll back
// idempotency tokens recorded before it. The returned snapshot reflects the
// state after fn.
func (st *Store) Update(sessionID string, fn func(*Session) error) (*Session, bool, error) {
	st.mu.RLock()
	e, ok := st.sessions[sessionID]
	st.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.s)
	return e.s.Clone(), true, err
}

// Delete removes a session, e.g. after a synchronously failed initial dial.
func (st *Store) Delete(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, sessionID)
}

// Active returns the number of non-terminal sessions and a bounded sample of
// their ids, for shutdown drain logging.
func (st *Store) Active(sampleLimit int) (int, []string) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var (
		count  int
		sample []string
	)
	for id, e := range st.sessions {
		e.mu.Lock()
		terminal := e.s.Terminal()
		e.mu.Unlock()
		if terminal {
			continue
		}
		count++
		if len(sample) < sampleLimit {
			sample = append(sample, id)
		}
	}
	return count, sample
}
