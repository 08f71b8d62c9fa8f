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
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/veloxvoip/callbridge/pkg/provider"
)

const testTrunkNumber = "+15550000000"

// stubProvider accepts every dial and bridge by default and parses the test
// wire format produced by rawEvent.
type stubProvider struct {
	mu        sync.Mutex
	dials     []provider.DialRequest
	dialErr   error
	bridges   [][2]string
	bridgeErr error

	verifyFn func(raw []byte, headers http.Header) bool
	parseFn  func(raw []byte) *provider.Event
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Dial(_ context.Context, req provider.DialRequest) (provider.DialResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dialErr != nil {
		return provider.DialResult{}, p.dialErr
	}
	p.dials = append(p.dials, req)
	return provider.DialResult{Accepted: true}, nil
}

func (p *stubProvider) Bridge(_ context.Context, a, b string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bridgeErr != nil {
		return p.bridgeErr
	}
	p.bridges = append(p.bridges, [2]string{a, b})
	return nil
}

func (p *stubProvider) CreateWebRTCToken(context.Context, provider.TokenRequest) (string, error) {
	return "test-token", nil
}

func (p *stubProvider) VerifySignature(raw []byte, headers http.Header) bool {
	if p.verifyFn != nil {
		return p.verifyFn(raw, headers)
	}
	return true
}

func (p *stubProvider) ParseEvent(raw []byte) *provider.Event {
	if p.parseFn != nil {
		return p.parseFn(raw)
	}
	var evt wireEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil
	}
	return &provider.Event{
		ID:            evt.ID,
		Type:          provider.EventType(evt.Type),
		Leg:           provider.Leg(evt.Leg),
		To:            evt.To,
		From:          evt.From,
		CallControlID: evt.CallControlID,
		SessionID:     evt.SessionID,
		Raw:           json.RawMessage(raw),
	}
}

func (p *stubProvider) dialRequests() []provider.DialRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.DialRequest(nil), p.dials...)
}

func (p *stubProvider) bridgeRequests() [][2]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]string(nil), p.bridges...)
}

func (p *stubProvider) setDialErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialErr = err
}

type wireEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Leg           string `json:"leg"`
	To            string `json:"to"`
	From          string `json:"from"`
	CallControlID string `json:"callControlId"`
	SessionID     string `json:"sessionId"`
}

func rawEvent(t *testing.T, evt wireEvent) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *stubProvider) {
	t.Helper()
	prov := &stubProvider{}
	return NewOrchestrator(prov, testTrunkNumber), prov
}
