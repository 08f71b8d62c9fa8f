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
	"fmt"

	"github.com/veloxvoip/callbridge/pkg/provider"
)

// applyEvent advances the session for one canonical event. It runs under the
// session's store lock; provider calls it makes are awaited before the
// transition is considered complete. Every (type, leg, status) triple outside
// the transition table is a no-op, which is what makes the machine safe
// against out-of-order and redelivered events. The returned bool reports
// whether the session changed and must be published.
func (o *Orchestrator) applyEvent(ctx context.Context, s *Session, evt *provider.Event) (bool, error) {
	if s.Terminal() {
		return false, nil
	}

	switch evt.Type {
	case provider.EventInitiated:
		return o.onInitiated(s, evt), nil
	case provider.EventAnswered:
		if evt.Leg == provider.LegA {
			return o.onAnsweredA(ctx, s, evt)
		}
		return o.onAnsweredB(ctx, s, evt)
	case provider.EventBridged:
		return o.onBridgedConfirm(s, evt), nil
	case provider.EventHangup:
		return o.onHangup(s), nil
	}
	return false, nil
}

// onInitiated records the vendor's call-control id for the leg. From here on,
// only events carrying this id are accepted as that leg's events.
func (o *Orchestrator) onInitiated(s *Session, evt *provider.Event) bool {
	switch evt.Leg {
	case provider.LegA:
		s.A.CallControlID = evt.CallControlID
		s.A.Status = LegDialing
		s.Status = StatusADialing
	case provider.LegB:
		s.B.CallControlID = evt.CallControlID
		s.B.Status = LegDialing
		s.Status = StatusBDialing
	default:
		return false
	}
	o.log.Infow("leg initiated",
		"sessionID", s.SessionID, "leg", evt.Leg,
		"callControlID", evt.CallControlID, "to", evt.To,
	)
	return true
}

// onAnsweredA dials leg B once A answered. The dial command id is minted once
// per session and reused on re-entry, so a duplicate "A answered" delivery
// resubmits the same command and the vendor's idempotency collapses it.
func (o *Orchestrator) onAnsweredA(ctx context.Context, s *Session, evt *provider.Event) (bool, error) {
	rightCall := s.A.CallControlID != "" && evt.CallControlID == s.A.CallControlID
	rightNumber := evt.To == s.FromPhone
	if !rightCall || !rightNumber || s.Status != StatusADialing {
		o.log.Infow("A answered ignored",
			"sessionID", s.SessionID, "status", s.Status,
			"rightCall", rightCall, "rightNumber", rightNumber,
			"expectedCallControlID", s.A.CallControlID, "gotCallControlID", evt.CallControlID,
			"expectedTo", s.FromPhone, "gotTo", evt.To,
		)
		return false, nil
	}

	if s.B.DialCommandID == "" {
		s.B.DialCommandID = fmt.Sprintf("dial:%s:B:1", s.SessionID)
	}

	o.log.Infow("A answered, dialing B",
		"sessionID", s.SessionID, "to", s.ToPhone, "from", o.trunkNumber,
		"commandID", s.B.DialCommandID,
	)
	_, err := o.prov.Dial(ctx, provider.DialRequest{
		To:        s.ToPhone,
		From:      o.trunkNumber,
		SessionID: s.SessionID,
		Leg:       provider.LegB,
		CommandID: s.B.DialCommandID,
	})
	o.mon.DialAttempt(string(provider.LegB), err)
	if err != nil {
		// no transition; the command id stays recorded for the next attempt
		return false, err
	}

	s.A.Status = LegAnswered
	s.Status = StatusBDialing
	return true, nil
}

// onAnsweredB bridges the two legs once both call ids are known. If leg A's
// id is not known yet (reordered delivery), the event is ignored and the
// machine waits for a later delivery rather than erroring.
func (o *Orchestrator) onAnsweredB(ctx context.Context, s *Session, evt *provider.Event) (bool, error) {
	rightCall := s.B.CallControlID != "" && evt.CallControlID == s.B.CallControlID
	rightNumber := evt.To == s.ToPhone
	if !rightCall || !rightNumber || s.A.CallControlID == "" {
		o.log.Infow("B answered ignored",
			"sessionID", s.SessionID, "status", s.Status,
			"rightCall", rightCall, "rightNumber", rightNumber,
			"aCallControlID", s.A.CallControlID, "bCallControlID", s.B.CallControlID,
		)
		return false, nil
	}

	s.B.Status = LegAnswered

	o.log.Infow("B answered, bridging",
		"sessionID", s.SessionID, "a", s.A.CallControlID, "b", s.B.CallControlID,
	)
	err := o.prov.Bridge(ctx, s.A.CallControlID, s.B.CallControlID)
	o.mon.BridgeAttempt(err)
	if err != nil {
		// B stays answered; the bridged webhook or an operator is the recovery path
		return true, err
	}

	s.A.Status = LegBridged
	s.B.Status = LegBridged
	s.Status = StatusBridged
	o.log.Infow("bridge complete", "sessionID", s.SessionID)
	return true, nil
}

// onBridgedConfirm applies the vendor's own bridge confirmation.
func (o *Orchestrator) onBridgedConfirm(s *Session, evt *provider.Event) bool {
	switch evt.Leg {
	case provider.LegA:
		s.A.Status = LegBridged
	case provider.LegB:
		s.B.Status = LegBridged
	}
	s.Status = StatusBridged
	o.log.Infow("bridged confirmed by provider", "sessionID", s.SessionID, "leg", evt.Leg)
	return true
}

// onHangup ends the session. Legs that were live in the bridge end with it;
// legs that never got that far keep their last status for diagnostics.
func (o *Orchestrator) onHangup(s *Session) bool {
	s.Status = StatusEnded
	if s.A.Status == LegBridged {
		s.A.Status = LegEnded
	}
	if s.B.Status == LegBridged {
		s.B.Status = LegEnded
	}
	o.log.Infow("session ended", "sessionID", s.SessionID)
	return true
}
