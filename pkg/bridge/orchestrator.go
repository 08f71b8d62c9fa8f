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
	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/callbridge/pkg/provider"
	"github.com/veloxvoip/callbridge/pkg/stats"
)

// Orchestrator sequences two independently progressing call legs into one
// bridge, driven only by verified webhook events.
type Orchestrator struct {
	prov        provider.CallProvider
	trunkNumber string
	store       *Store
	bus         *Bus
	dedup       *Deduper
	mon         *stats.Monitor
	log         logger.Logger

	dedupWindow int
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMonitor sets a stats monitor.
func WithMonitor(mon *stats.Monitor) Option {
	return func(o *Orchestrator) {
		o.mon = mon
	}
}

// WithDedupWindow sets the size of the seen-event-id window.
func WithDedupWindow(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.dedupWindow = size
		}
	}
}

func NewOrchestrator(prov provider.CallProvider, trunkNumber string, options ...Option) *Orchestrator {
	o := &Orchestrator{
		prov:        prov,
		trunkNumber: trunkNumber,
		store:       NewStore(),
		bus:         NewBus(),
		log:         logger.GetLogger(),
	}
	for _, opt := range options {
		opt(o)
	}
	o.dedup = NewDeduper(o.dedupWindow)
	return o
}

// Provider returns the provider that owns this orchestrator's sessions.
func (o *Orchestrator) Provider() provider.CallProvider {
	return o.prov
}

// Snapshot returns the current state of a session.
func (o *Orchestrator) Snapshot(sessionID string) (*Session, bool) {
	return o.store.Snapshot(sessionID)
}

// Subscribe opens a live stream of session updates. If the session already
// exists, the current state is delivered first with seq 0.
func (o *Orchestrator) Subscribe(sessionID string) *Subscription {
	snap, _ := o.store.Snapshot(sessionID)
	return o.bus.Subscribe(sessionID, snap)
}

// Active reports the number of non-terminal sessions plus a bounded id sample.
func (o *Orchestrator) Active(sampleLimit int) (int, []string) {
	return o.store.Active(sampleLimit)
}

// publish pushes the snapshot to subscribers and evicts the topic when the
// session just went terminal.
func (o *Orchestrator) publish(s *Session) {
	seq := o.bus.Publish(s.SessionID, s)
	o.log.Debugw("session published", "sessionID", s.SessionID, "seq", seq, "status", s.Status)
	if s.Terminal() {
		o.bus.CloseTopic(s.SessionID)
		o.mon.SessionEnded()
	}
}
