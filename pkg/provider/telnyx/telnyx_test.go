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

package telnyx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/veloxvoip/callbridge/pkg/config"
	"github.com/veloxvoip/callbridge/pkg/provider"
)

func telnyxEvent(eventType, callControlID, clientState, to, from string) []byte {
	return []byte(fmt.Sprintf(`{
		"data": {
			"id": "evt-1",
			"event_type": %q,
			"payload": {
				"call_control_id": %q,
				"client_state": %q,
				"to": %q,
				"from": %q
			}
		}
	}`, eventType, callControlID, clientState, to, from))
}

func TestParseEvent(t *testing.T) {
	p := New(&config.TelnyxConfig{}, nil)
	token := provider.EncodeClientState("session-1", provider.LegA)

	for _, tc := range []struct {
		name string
		raw  []byte
		want *provider.Event
	}{
		{
			name: "initiated",
			raw:  telnyxEvent("call.initiated", "cc-1", token, "+15551234567", "+15550000000"),
			want: &provider.Event{
				ID: "evt-1", Type: provider.EventInitiated, Leg: provider.LegA,
				To: "+15551234567", From: "+15550000000",
				CallControlID: "cc-1", SessionID: "session-1",
			},
		},
		{
			name: "answered",
			raw:  telnyxEvent("call.answered", "cc-1", token, "+15551234567", "+15550000000"),
			want: &provider.Event{
				ID: "evt-1", Type: provider.EventAnswered, Leg: provider.LegA,
				To: "+15551234567", From: "+15550000000",
				CallControlID: "cc-1", SessionID: "session-1",
			},
		},
		{
			name: "no client state still parses",
			raw:  telnyxEvent("call.hangup", "cc-1", "", "+15551234567", "+15550000000"),
			want: &provider.Event{
				ID: "evt-1", Type: provider.EventHangup,
				To: "+15551234567", From: "+15550000000",
				CallControlID: "cc-1",
			},
		},
		{
			name: "unknown event type",
			raw:  telnyxEvent("call.recording.saved", "cc-1", token, "", ""),
			want: nil,
		},
		{
			name: "not json",
			raw:  []byte("<xml/>"),
			want: nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := p.ParseEvent(tc.raw)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected event, got nil")
			}
			got.Raw = nil
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %+v, want %+v", *got, *tc.want)
			}
		})
	}
}

func TestParseEventIDFallback(t *testing.T) {
	p := New(&config.TelnyxConfig{}, nil)
	raw := []byte(`{"id":"env-9","data":{"event_type":"call.answered","payload":{}}}`)
	evt := p.ParseEvent(raw)
	if evt == nil || evt.ID != "env-9" {
		t.Fatalf("got %+v, want envelope id fallback", evt)
	}
}

func TestDial(t *testing.T) {
	var got struct {
		path, auth string
		body       map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	p := New(&config.TelnyxConfig{
		ApiKey:       "KEY123",
		ConnectionId: "conn-1",
		BaseURL:      srv.URL,
	}, nil)

	res, err := p.Dial(context.Background(), provider.DialRequest{
		To:        "+15557654321",
		From:      "+15550000000",
		SessionID: "session-1",
		Leg:       provider.LegB,
		CommandID: "dial:session-1:B:1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Accepted {
		t.Error("dial not accepted")
	}
	if got.path != "/v2/calls" {
		t.Errorf("path = %s", got.path)
	}
	if got.auth != "Bearer KEY123" {
		t.Errorf("auth = %s", got.auth)
	}
	if got.body["to"] != "+15557654321" || got.body["connection_id"] != "conn-1" {
		t.Errorf("body = %v", got.body)
	}
	if got.body["command_id"] != "dial:session-1:B:1" {
		t.Errorf("command_id = %v", got.body["command_id"])
	}

	cs, ok := provider.DecodeClientState(got.body["client_state"].(string))
	if !ok || cs.SessionID != "session-1" || cs.Leg != provider.LegB {
		t.Errorf("client_state = %+v ok=%v", cs, ok)
	}
}

func TestDialOmitsEmptyCommandID(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(&config.TelnyxConfig{BaseURL: srv.URL}, nil)
	_, err := p.Dial(context.Background(), provider.DialRequest{
		To: "+15551234567", From: "+15550000000", SessionID: "s1", Leg: provider.LegA,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, present := body["command_id"]; present {
		t.Error("empty command_id must be omitted")
	}
}

func TestDialUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"title":"invalid number"}]}`))
	}))
	defer srv.Close()

	p := New(&config.TelnyxConfig{BaseURL: srv.URL}, nil)
	_, err := p.Dial(context.Background(), provider.DialRequest{
		To: "+15551234567", From: "+15550000000", SessionID: "s1", Leg: provider.LegA,
	})
	var perr *provider.Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *provider.Error", err)
	}
	if perr.Status != http.StatusUnprocessableEntity || perr.Provider != Name {
		t.Errorf("got %+v", perr)
	}
}

func TestBridge(t *testing.T) {
	var got struct {
		path string
		body map[string]string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(&config.TelnyxConfig{BaseURL: srv.URL}, nil)
	if err := p.Bridge(context.Background(), "abc", "xyz"); err != nil {
		t.Fatal(err)
	}
	if got.path != "/v2/calls/abc/actions/bridge" {
		t.Errorf("path = %s", got.path)
	}
	if got.body["call_control_id"] != "xyz" {
		t.Errorf("body = %v", got.body)
	}
}

func TestCreateWebRTCToken(t *testing.T) {
	t.Run("enveloped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v2/telephony_credentials/cred-1/token" {
				t.Errorf("path = %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"data":{"token":"jwt-abc"}}`))
		}))
		defer srv.Close()

		p := New(&config.TelnyxConfig{BaseURL: srv.URL, WebRTCCredentialId: "cred-1"}, nil)
		token, err := p.CreateWebRTCToken(context.Background(), provider.TokenRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if token != "jwt-abc" {
			t.Errorf("token = %q", token)
		}
	})

	t.Run("bare body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("jwt-raw\n"))
		}))
		defer srv.Close()

		p := New(&config.TelnyxConfig{BaseURL: srv.URL, WebRTCCredentialId: "cred-1"}, nil)
		token, err := p.CreateWebRTCToken(context.Background(), provider.TokenRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if token != "jwt-raw" {
			t.Errorf("token = %q", token)
		}
	})

	t.Run("unconfigured", func(t *testing.T) {
		p := New(&config.TelnyxConfig{}, nil)
		if _, err := p.CreateWebRTCToken(context.Background(), provider.TokenRequest{}); err == nil {
			t.Error("expected error without a credential id")
		}
	})
}
