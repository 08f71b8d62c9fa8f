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

	"github.com/google/uuid"

	"github.com/veloxvoip/callbridge/pkg/provider"
)

// StartBridge creates a session and dials leg A toward fromPhone. The session
// id is returned as soon as the dial is accepted; everything after that is
// webhook-driven. A synchronously failed dial removes the session again so no
// half-initialized state lingers.
func (o *Orchestrator) StartBridge(ctx context.Context, fromPhone, toPhone string) (string, error) {
	if err := validatePhone("fromPhone", fromPhone); err != nil {
		return "", err
	}
	if err := validatePhone("toPhone", toPhone); err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	s := &Session{
		SessionID: sessionID,
		Provider:  o.prov.Name(),
		FromPhone: fromPhone,
		ToPhone:   toPhone,
		A:         Leg{Status: LegDialing},
		B:         Leg{Status: LegDialing},
		Status:    StatusCreated,
	}
	s.Status = StatusADialing
	if err := o.store.Create(s); err != nil {
		return "", err
	}
	o.mon.SessionStarted()
	o.publish(s.Clone())

	o.log.Infow("bridge started, dialing A",
		"sessionID", sessionID, "to", fromPhone, "from", o.trunkNumber,
	)
	_, err := o.prov.Dial(ctx, provider.DialRequest{
		To:        fromPhone,
		From:      o.trunkNumber,
		SessionID: sessionID,
		Leg:       provider.LegA,
	})
	o.mon.DialAttempt(string(provider.LegA), err)
	if err != nil {
		o.store.Delete(sessionID)
		o.bus.CloseTopic(sessionID)
		o.mon.SessionEnded()
		o.log.Errorw("initial dial failed, session discarded", err, "sessionID", sessionID)
		return "", err
	}
	return sessionID, nil
}
