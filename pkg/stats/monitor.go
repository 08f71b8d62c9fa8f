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

package stats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veloxvoip/callbridge/pkg/config"
)

// Monitor tracks bridge orchestration metrics. A nil Monitor is valid and
// records nothing, so tests can pass nil.
type Monitor struct {
	sessionsStarted prometheus.Counter
	sessionsActive  prometheus.Gauge
	webhookEvents   *prometheus.CounterVec
	dialAttempts    *prometheus.CounterVec
	bridgeAttempts  *prometheus.CounterVec
}

func NewMonitor(conf *config.Config) (*Monitor, error) {
	m := &Monitor{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callbridge",
			Name:      "sessions_started_total",
			Help:      "Number of bridge sessions created",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "callbridge",
			Name:      "sessions_active",
			Help:      "Number of sessions not yet ended",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callbridge",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by pipeline outcome",
		}, []string{"outcome"}),
		dialAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callbridge",
			Name:      "dial_attempts_total",
			Help:      "Outbound dial commands by leg and result",
		}, []string{"leg", "result"}),
		bridgeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callbridge",
			Name:      "bridge_attempts_total",
			Help:      "Bridge commands by result",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.sessionsStarted, m.sessionsActive, m.webhookEvents, m.dialAttempts, m.bridgeAttempts,
	} {
		if err := prometheus.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Monitor) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
	m.sessionsActive.Inc()
}

func (m *Monitor) SessionEnded() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Monitor) WebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

func (m *Monitor) DialAttempt(leg string, err error) {
	if m == nil {
		return
	}
	m.dialAttempts.WithLabelValues(leg, result(err)).Inc()
}

func (m *Monitor) BridgeAttempt(err error) {
	if m == nil {
		return
	}
	m.bridgeAttempts.WithLabelValues(result(err)).Inc()
}

func (m *Monitor) Shutdown() {
	if m == nil {
		return
	}
	prometheus.Unregister(m.sessionsStarted)
	prometheus.Unregister(m.sessionsActive)
	prometheus.Unregister(m.webhookEvents)
	prometheus.Unregister(m.dialAttempts)
	prometheus.Unregister(m.bridgeAttempts)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
