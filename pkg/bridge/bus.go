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

const subscriberBuffer = 16

// Update is one message on a session's event stream. Seq is monotonic per
// session; Seq 0 marks the synthetic snapshot delivered at subscribe time.
type Update struct {
	Seq     uint64   `json:"seq"`
	Session *Session `json:"session"`
}

// Bus fans session snapshots out to live subscribers. Publishing never blocks:
// a slow subscriber loses intermediate updates rather than stalling the
// webhook path. Topics are evicted when their session goes terminal, so
// forgotten per-session broadcasters cannot accumulate.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	seq  uint64
	subs map[*Subscription]struct{}
}

// Subscription is one subscriber's handle. Receive from C; Close when done.
// C is closed by the bus when the session ends.
type Subscription struct {
	C chan Update

	bus       *Bus
	sessionID string
	closed    bool
}

func NewBus() *Bus {
	return &Bus{topics: make(map[string]*topic)}
}

// Subscribe attaches a new subscriber to the session's stream. If snapshot is
// non-nil it is delivered first with Seq 0, so late subscribers learn current
// state without waiting for the next mutation.
func (b *Bus) Subscribe(sessionID string, snapshot *Session) *Subscription {
	sub := &Subscription{
		C:         make(chan Update, subscriberBuffer),
		bus:       b,
		sessionID: sessionID,
	}
	if snapshot != nil {
		sub.C <- Update{Seq: 0, Session: snapshot}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topics[sessionID]
	if t == nil {
		t = &topic{subs: make(map[*Subscription]struct{})}
		b.topics[sessionID] = t
	}
	t.subs[sub] = struct{}{}
	return sub
}

// Close detaches the subscriber. Safe to call after the bus already closed
// the channel.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if t, ok := b.topics[s.sessionID]; ok {
		delete(t.subs, s)
		if len(t.subs) == 0 && t.seq == 0 {
			delete(b.topics, s.sessionID)
		}
	}
	close(s.C)
}

// Publish delivers the snapshot to every current subscriber with the next
// sequence number. Fire-and-forget: full subscriber buffers drop the update.
func (b *Bus) Publish(sessionID string, session *Session) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topics[sessionID]
	if t == nil {
		t = &topic{subs: make(map[*Subscription]struct{})}
		b.topics[sessionID] = t
	}
	t.seq++
	u := Update{Seq: t.seq, Session: session}
	for sub := range t.subs {
		select {
		case sub.C <- u:
		default:
		}
	}
	return t.seq
}

// Seq returns the session's current sequence number.
func (b *Bus) Seq(sessionID string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := b.topics[sessionID]; t != nil {
		return t.seq
	}
	return 0
}

// CloseTopic evicts the session's topic after its final update, closing every
// subscriber channel so streams end cleanly.
func (b *Bus) CloseTopic(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[sessionID]
	if !ok {
		return
	}
	for sub := range t.subs {
		sub.closed = true
		close(sub.C)
	}
	delete(b.topics, sessionID)
}
