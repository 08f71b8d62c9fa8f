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

package provider

import (
	"encoding/base64"
	"encoding/json"
)

// ClientState is the correlation token the orchestrator attaches to every
// outbound dial. Vendors echo it back verbatim on each webhook for that leg,
// which is the only way events can be mapped back to a session.
type ClientState struct {
	SessionID string `json:"sessionId"`
	Leg       Leg    `json:"leg"`
}

// EncodeClientState packs the token as base64 JSON.
func EncodeClientState(sessionID string, leg Leg) string {
	b, _ := json.Marshal(ClientState{SessionID: sessionID, Leg: leg})
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeClientState unpacks a token previously produced by EncodeClientState.
// It reports false for anything it cannot decode; events carrying such tokens
// are uncorrelatable and get dropped upstream.
func DecodeClientState(s string) (ClientState, bool) {
	if s == "" {
		return ClientState{}, false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ClientState{}, false
	}
	var cs ClientState
	if err := json.Unmarshal(b, &cs); err != nil {
		return ClientState{}, false
	}
	if cs.SessionID == "" || (cs.Leg != LegA && cs.Leg != LegB) {
		return ClientState{}, false
	}
	return cs, true
}
