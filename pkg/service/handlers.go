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

package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veloxvoip/callbridge/pkg/bridge"
	"github.com/veloxvoip/callbridge/pkg/provider"
)

const (
	maxWebhookBody = 1 << 20 // 1 MiB

	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 25 * time.Second
)

type bridgeRequest struct {
	FromPhone string `json:"fromPhone"`
	ToPhone   string `json:"toPhone"`
}

type tokenRequest struct {
	Provider    string `json:"provider"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

func (s *Service) handleStartBridge(w http.ResponseWriter, r *http.Request) {
	var req bridgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, err := s.orch.StartBridge(r.Context(), req.FromPhone, req.ToPhone)
	if err != nil {
		var verr *bridge.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"sessionId": sessionID})
}

func (s *Service) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.orch.Snapshot(r.PathValue("sessionId"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleWebhook feeds one provider delivery into the ingestion pipeline. The
// body is read raw before anything parses it; the signature covers those
// exact bytes.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.allowedIPs != nil && !s.allowedIPs.IsAllowed(r.RemoteAddr) {
		s.log.Warnw("webhook from disallowed source", nil, "remoteAddr", r.RemoteAddr)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	outcome := s.orch.ProcessWebhook(r.Context(), raw, r.Header)
	if !outcome.Ack() {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid signature"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleEvents streams session updates over a websocket. The subscription is
// torn down when the client goes away; the bus closes the channel when the
// session ends.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.orch.Subscribe(sessionID)
	defer sub.Close()

	// drain client frames so pongs and close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case u, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(u); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Service) handleWebRTCToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := req.Provider
	if name == "" {
		name = s.conf.CallProvider
	}
	prov, ok := s.providers.Get(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown provider: "+name)
		return
	}

	token, err := prov.CreateWebRTCToken(r.Context(), provider.TokenRequest{
		Identity:    req.Identity,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.log.Errorw("webrtc token issuance failed", err, "provider", name)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
