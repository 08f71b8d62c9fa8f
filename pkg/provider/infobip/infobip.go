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

// Package infobip implements WebRTC token issuance against the Infobip API.
// PSTN dial and bridge are not offered by this provider yet.
package infobip

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veloxvoip/callbridge/pkg/config"
	"github.com/veloxvoip/callbridge/pkg/provider"
)

const (
	Name = "infobip"

	// tokenTTL is the requested token lifetime in seconds (12 hours).
	tokenTTL = 43200
)

type Provider struct {
	conf       *config.InfobipConfig
	httpClient *http.Client
}

func New(conf *config.InfobipConfig) *Provider {
	return &Provider{
		conf:       conf,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Dial(ctx context.Context, req provider.DialRequest) (provider.DialResult, error) {
	return provider.DialResult{}, provider.ErrUnsupported(Name, "PSTN dial")
}

func (p *Provider) Bridge(ctx context.Context, aCallControlID, bCallControlID string) error {
	return provider.ErrUnsupported(Name, "bridge")
}

func (p *Provider) CreateWebRTCToken(ctx context.Context, req provider.TokenRequest) (string, error) {
	if req.Identity == "" {
		return "", provider.NewErrorf(Name, "webrtc token requires an identity")
	}
	body := map[string]any{
		"identity":   req.Identity,
		"timeToLive": tokenTTL,
	}
	if req.DisplayName != "" {
		body["displayName"] = req.DisplayName
	}
	payload, _ := json.Marshal(body)

	u := strings.TrimSuffix(p.conf.BaseURL, "/") + "/webrtc/1/token"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", provider.NewErrorf(Name, "build request: %v", err)
	}
	httpReq.Header.Set("Authorization", "App "+p.conf.ApiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", provider.NewErrorf(Name, "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", provider.NewError(Name, resp.StatusCode, string(raw))
	}

	var out struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		JWT         string `json:"jwt"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", provider.NewErrorf(Name, "decode token response: %v", err)
	}
	for _, t := range []string{out.Token, out.AccessToken, out.JWT} {
		if t != "" {
			return t, nil
		}
	}
	return "", provider.NewErrorf(Name, "token response carried no token")
}

// VerifySignature always fails: Infobip publishes no webhook signing key, so
// nothing posted to the webhook endpoint can be authenticated as Infobip's.
func (p *Provider) VerifySignature(raw []byte, headers http.Header) bool {
	return false
}

func (p *Provider) ParseEvent(raw []byte) *provider.Event {
	return nil
}
