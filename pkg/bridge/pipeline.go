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
	"net/http"
)

// Outcome classifies one webhook delivery after the pipeline ran. Everything
// except OutcomeBadSignature is acknowledged with a success status: providers
// retry on any non-2xx, and retrying most failures would only re-trigger side
// effects.
type Outcome string

const (
	// OutcomeBadSignature is the only outcome surfaced as an HTTP failure. An
	// unauthenticated request must neither be processed nor silently absorbed.
	OutcomeBadSignature Outcome = "bad_signature"
	// OutcomeUnparsed covers event types the provider mapping does not know.
	OutcomeUnparsed Outcome = "unparsed"
	// OutcomeDuplicate means the event id was already in the dedup window.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUncorrelated means the correlation token was missing or invalid.
	OutcomeUncorrelated Outcome = "uncorrelated"
	// OutcomeUnknownSession means the token referenced a session this process
	// does not know, expected for redeliveries after a restart.
	OutcomeUnknownSession Outcome = "unknown_session"
	// OutcomeIgnored means the event reached the state machine but matched no
	// transition (stale, reordered, or cross-talk delivery).
	OutcomeIgnored Outcome = "ignored"
	// OutcomeApplied means the session state advanced.
	OutcomeApplied Outcome = "applied"
	// OutcomeFailed means a transition fired but its provider command failed;
	// the session keeps its pre-transition status.
	OutcomeFailed Outcome = "failed"
	// OutcomePanic means event handling panicked; converted to an ack so the
	// provider does not redeliver a poison event forever.
	OutcomePanic Outcome = "panic"
)

// Ack reports whether the delivery should be answered with a success status.
func (oc Outcome) Ack() bool {
	return oc != OutcomeBadSignature
}

// ProcessWebhook runs one raw webhook delivery through the ingestion
// pipeline: authenticate, normalize, deduplicate, correlate, apply. The raw
// body must be the exact bytes the vendor sent; verifying a re-serialized
// body would break the signature.
func (o *Orchestrator) ProcessWebhook(ctx context.Context, raw []byte, headers http.Header) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("panic during webhook handling", nil, "recovered", r)
			outcome = OutcomePanic
		}
		o.mon.WebhookEvent(string(outcome))
	}()

	if !o.prov.VerifySignature(raw, headers) {
		o.log.Warnw("webhook signature verification failed", nil, "provider", o.prov.Name())
		return OutcomeBadSignature
	}

	evt := o.prov.ParseEvent(raw)
	if evt == nil {
		o.log.Debugw("unrecognized webhook event, acked")
		return OutcomeUnparsed
	}

	o.log.Infow("webhook event received",
		"sessionID", evt.SessionID, "type", evt.Type, "leg", evt.Leg,
		"eventID", evt.ID, "callControlID", evt.CallControlID,
		"to", evt.To, "from", evt.From,
	)

	if o.dedup.Seen(evt.ID) {
		o.log.Infow("duplicate event ignored", "sessionID", evt.SessionID, "eventID", evt.ID, "type", evt.Type)
		return OutcomeDuplicate
	}

	if evt.SessionID == "" || evt.Leg == "" {
		o.log.Infow("event without correlation token, acked", "eventID", evt.ID, "type", evt.Type)
		return OutcomeUncorrelated
	}

	var (
		changed  bool
		applyErr error
	)
	snap, found, err := o.store.Update(evt.SessionID, func(s *Session) error {
		changed, applyErr = o.applyEvent(ctx, s, evt)
		return applyErr
	})
	if !found {
		o.log.Infow("event for unknown session, acked", "sessionID", evt.SessionID, "type", evt.Type)
		return OutcomeUnknownSession
	}

	if changed {
		o.publish(snap)
	}
	if err != nil {
		o.log.Errorw("provider command failed during transition", err,
			"sessionID", evt.SessionID, "type", evt.Type, "leg", evt.Leg, "status", snap.Status,
		)
		return OutcomeFailed
	}
	if !changed {
		return OutcomeIgnored
	}
	return OutcomeApplied
}
