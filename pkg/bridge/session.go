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

// Package bridge contains the call-bridge orchestration core: the session
// state machine, the webhook ingestion pipeline, the in-memory session store
// and the per-session event bus. All progress after the initial dial is driven
// by asynchronous, possibly duplicated, possibly out-of-order webhooks.
package bridge

// SessionStatus is the aggregate status of one bridge attempt.
type SessionStatus string

const (
	StatusCreated   SessionStatus = "created"
	StatusADialing  SessionStatus = "a_dialing"
	StatusAAnswered SessionStatus = "a_answered"
	StatusBDialing  SessionStatus = "b_dialing"
	StatusBridged   SessionStatus = "bridged"
	// StatusEnded is terminal; no event transitions a session away from it.
	StatusEnded SessionStatus = "ended"
)

// LegStatus tracks one call leg through its own lifecycle.
type LegStatus string

const (
	LegDialing  LegStatus = "dialing"
	LegAnswered LegStatus = "answered"
	LegBridged  LegStatus = "bridged"
	LegEnded    LegStatus = "ended"
)

// Leg is one half of the bridge. CallControlID is empty until the vendor's
// "initiated" event for that leg arrives; once set, any event whose call id
// does not match it is rejected as cross-talk.
type Leg struct {
	CallControlID string    `json:"callControlId,omitempty"`
	Status        LegStatus `json:"status"`
	// DialCommandID is the idempotency token for this leg's dial command. It
	// is created exactly once per session and reused on re-entry, so duplicate
	// "A answered" deliveries collapse into one outbound call on the vendor
	// side. Only set on leg B.
	DialCommandID string `json:"-"`
}

// Session is the aggregate root of one bridge attempt between two numbers.
type Session struct {
	SessionID string `json:"sessionId"`
	Provider  string `json:"provider"`
	FromPhone string `json:"fromPhone"`
	ToPhone   string `json:"toPhone"`
	A         Leg    `json:"a"`
	B         Leg    `json:"b"`
	Status    SessionStatus `json:"status"`
}

// Clone returns an independent copy safe to hand to subscribers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Terminal reports whether the session reached its final state.
func (s *Session) Terminal() bool {
	return s.Status == StatusEnded
}
