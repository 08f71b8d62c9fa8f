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

// Package provider defines the capability contract a telephony vendor must
// implement so the bridge orchestrator can stay vendor-agnostic.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Leg identifies one half of a bridged call.
type Leg string

const (
	LegA Leg = "A"
	LegB Leg = "B"
)

// EventType is the canonical event classification. Vendor event names that do
// not map to one of these are dropped before they reach the state machine.
type EventType string

const (
	EventInitiated EventType = "initiated"
	EventAnswered  EventType = "answered"
	EventBridged   EventType = "bridged"
	EventHangup    EventType = "hangup"
)

// Event is the provider-independent form of one webhook notification.
type Event struct {
	// ID is the vendor-assigned event id, used for deduplication. May be empty,
	// in which case the event is never treated as a duplicate.
	ID   string
	Type EventType
	// Leg is derived from the correlation token the orchestrator attached at
	// dial time. Empty means the event cannot be routed and must be dropped.
	Leg           Leg
	To            string
	From          string
	CallControlID string
	SessionID     string
	// Raw is the original payload, kept for diagnostics only.
	Raw json.RawMessage
}

// DialRequest asks the vendor to place one outbound call leg.
type DialRequest struct {
	To        string
	From      string // the orchestrator's own trunk number, never the user's
	SessionID string
	Leg       Leg
	// CommandID is an idempotency token; the vendor collapses duplicate
	// submissions carrying the same id.
	CommandID string
}

type DialResult struct {
	Accepted bool
}

// TokenRequest carries provider-specific WebRTC auth parameters.
type TokenRequest struct {
	Identity    string
	DisplayName string
}

// CallProvider is implemented once per telephony vendor.
type CallProvider interface {
	Name() string
	// Dial places an outbound call. The correlation token for (SessionID, Leg)
	// is attached by the implementation and echoed back on every webhook.
	Dial(ctx context.Context, req DialRequest) (DialResult, error)
	// Bridge joins two live call-control legs into one audio path.
	Bridge(ctx context.Context, aCallControlID, bCallControlID string) error
	// CreateWebRTCToken issues a browser auth token. Pure pass-through.
	CreateWebRTCToken(ctx context.Context, req TokenRequest) (string, error)
	// VerifySignature authenticates a raw webhook body against its headers.
	// It returns false, never panics, on malformed input.
	VerifySignature(raw []byte, headers http.Header) bool
	// ParseEvent normalizes a raw webhook envelope. Nil means unrecognized.
	ParseEvent(raw []byte) *Event
}

// Error is returned when a vendor API call fails.
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s %d: %s", e.Provider, e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(provider string, status int, body string) *Error {
	return &Error{Provider: provider, Status: status, Body: body}
}

func NewErrorf(provider string, format string, args ...interface{}) *Error {
	return &Error{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// ErrUnsupported marks an operation a vendor does not offer.
func ErrUnsupported(provider, op string) *Error {
	return NewErrorf(provider, "%s is not supported", op)
}
