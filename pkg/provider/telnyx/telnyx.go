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

// Package telnyx implements the provider contract on top of the Telnyx Call
// Control v2 REST API and its Ed25519-signed webhooks.
package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/callbridge/pkg/config"
	"github.com/veloxvoip/callbridge/pkg/provider"
)

const (
	Name           = "telnyx"
	defaultBaseURL = "https://api.telnyx.com"

	timestampHeader = "Telnyx-Timestamp"
	signatureHeader = "Telnyx-Signature-Ed25519"
)

type Provider struct {
	conf       *config.TelnyxConfig
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

func New(conf *config.TelnyxConfig, log logger.Logger) *Provider {
	if log == nil {
		log = logger.GetLogger()
	}
	base := conf.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Provider{
		conf:       conf,
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (p *Provider) Name() string { return Name }

type dialBody struct {
	To           string `json:"to"`
	From         string `json:"from"`
	ConnectionId string `json:"connection_id"`
	ClientState  string `json:"client_state"`
	CommandId    string `json:"command_id,omitempty"`
}

func (p *Provider) Dial(ctx context.Context, req provider.DialRequest) (provider.DialResult, error) {
	body := dialBody{
		To:           req.To,
		From:         req.From,
		ConnectionId: p.conf.ConnectionId,
		ClientState:  provider.EncodeClientState(req.SessionID, req.Leg),
		CommandId:    req.CommandID,
	}
	if err := p.post(ctx, "/v2/calls", body); err != nil {
		return provider.DialResult{}, err
	}
	return provider.DialResult{Accepted: true}, nil
}

func (p *Provider) Bridge(ctx context.Context, aCallControlID, bCallControlID string) error {
	path := "/v2/calls/" + url.PathEscape(aCallControlID) + "/actions/bridge"
	return p.post(ctx, path, map[string]string{"call_control_id": bCallControlID})
}

func (p *Provider) CreateWebRTCToken(ctx context.Context, _ provider.TokenRequest) (string, error) {
	if p.conf.WebRTCCredentialId == "" {
		return "", provider.NewErrorf(Name, "webrtc_credential_id is not configured")
	}
	path := "/v2/telephony_credentials/" + url.PathEscape(p.conf.WebRTCCredentialId) + "/token"
	raw, err := p.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", err
	}
	// The endpoint returns the JWT either bare or wrapped in a data envelope.
	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data.Token != "" {
		return envelope.Data.Token, nil
	}
	return strings.TrimSpace(string(raw)), nil
}

func (p *Provider) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return provider.NewErrorf(Name, "encode request: %v", err)
	}
	_, err = p.do(ctx, http.MethodPost, path, payload)
	return err
}

func (p *Provider) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return nil, provider.NewErrorf(Name, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.conf.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.NewErrorf(Name, "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.NewError(Name, resp.StatusCode, string(raw))
	}
	return raw, nil
}

// webhookEnvelope mirrors the subset of the Telnyx webhook payload the
// orchestrator cares about.
type webhookEnvelope struct {
	ID   string `json:"id"`
	Data struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Payload   struct {
			CallControlId string `json:"call_control_id"`
			CallLegId     string `json:"call_leg_id"`
			ClientState   string `json:"client_state"`
			From          string `json:"from"`
			To            string `json:"to"`
		} `json:"payload"`
	} `json:"data"`
}

var eventTypes = map[string]provider.EventType{
	"call.initiated": provider.EventInitiated,
	"call.answered":  provider.EventAnswered,
	"call.bridged":   provider.EventBridged,
	"call.hangup":    provider.EventHangup,
}

func (p *Provider) ParseEvent(raw []byte) *provider.Event {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	typ, ok := eventTypes[env.Data.EventType]
	if !ok {
		return nil
	}
	id := env.Data.ID
	if id == "" {
		id = env.ID
	}
	evt := &provider.Event{
		ID:            id,
		Type:          typ,
		To:            env.Data.Payload.To,
		From:          env.Data.Payload.From,
		CallControlID: env.Data.Payload.CallControlId,
		Raw:           json.RawMessage(raw),
	}
	if cs, ok := provider.DecodeClientState(env.Data.Payload.ClientState); ok {
		evt.SessionID = cs.SessionID
		evt.Leg = cs.Leg
	}
	return evt
}
