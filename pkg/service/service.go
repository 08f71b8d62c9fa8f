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

// Package service is the HTTP boundary around the bridge orchestrator.
package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"slices"
	"sync/atomic"
	"time"

	"github.com/frostbyte73/core"
	"github.com/gorilla/websocket"
	"github.com/livekit/protocol/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veloxvoip/callbridge/pkg/bridge"
	"github.com/veloxvoip/callbridge/pkg/config"
	"github.com/veloxvoip/callbridge/pkg/ipvalidator"
	"github.com/veloxvoip/callbridge/pkg/provider"
	"github.com/veloxvoip/callbridge/pkg/stats"
	"github.com/veloxvoip/callbridge/version"
)

const (
	shutdownPollInterval = 5 * time.Second
	activeSampleLimit    = 10
)

type Service struct {
	conf      *config.Config
	log       logger.Logger
	orch      *bridge.Orchestrator
	providers *provider.Registry
	mon       *stats.Monitor

	allowedIPs *ipvalidator.IPValidator
	upgrader   websocket.Upgrader

	httpServer   *http.Server
	promServer   *http.Server
	pprofServer  *http.Server
	healthServer *http.Server

	shutdown core.Fuse
	killed   atomic.Bool
}

func NewService(
	conf *config.Config, orch *bridge.Orchestrator, providers *provider.Registry,
	mon *stats.Monitor, log logger.Logger,
) (*Service, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Service{
		conf:      conf,
		log:       log,
		orch:      orch,
		providers: providers,
		mon:       mon,
		upgrader: websocket.Upgrader{
			// browser clients connect cross-origin from the dialer UI
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	if len(conf.WebhookAllowedIPs) > 0 {
		v, err := ipvalidator.NewIPValidator(conf.WebhookAllowedIPs)
		if err != nil {
			return nil, err
		}
		s.allowedIPs = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/calls/bridge", s.handleStartBridge)
	mux.HandleFunc("GET /api/calls/{sessionId}", s.handleSession)
	mux.HandleFunc("GET /api/calls/{sessionId}/events", s.handleEvents)
	mux.HandleFunc("POST /api/webrtc/token", s.handleWebRTCToken)
	mux.HandleFunc("POST /webhooks/"+conf.WebhookPath, s.handleWebhook)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: mux,
	}

	if conf.PrometheusPort > 0 {
		s.promServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.PrometheusPort),
			Handler: promhttp.Handler(),
		}
	}
	if conf.PProfPort > 0 {
		pprofMux := http.NewServeMux()
		pprofMux.HandleFunc("/debug/pprof/", pprof.Index)
		pprofMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		pprofMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		pprofMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		pprofMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		s.pprofServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.PProfPort),
			Handler: pprofMux,
		}
	}
	if conf.HealthPort > 0 {
		healthMux := http.NewServeMux()
		healthMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		s.healthServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.HealthPort),
			Handler: healthMux,
		}
	}
	return s, nil
}

func (s *Service) Stop(kill bool) {
	s.killed.Store(kill)
	s.shutdown.Break()
}

func (s *Service) Run() error {
	s.log.Debugw("starting service", "version", version.Version, "port", s.conf.Port)

	for _, srv := range []*http.Server{s.httpServer, s.promServer, s.pprofServer, s.healthServer} {
		if srv == nil {
			continue
		}
		l, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		defer l.Close()
		go func(srv *http.Server) {
			_ = srv.Serve(l)
		}(srv)
	}

	s.log.Infow("service ready",
		"port", s.conf.Port, "provider", s.conf.CallProvider, "webhookPath", s.conf.WebhookPath,
	)

	<-s.shutdown.Watch()
	s.log.Infow("shutting down")

	if !s.killed.Load() {
		drainTicker := time.NewTicker(shutdownPollInterval)
		defer drainTicker.Stop()

		for !s.killed.Load() {
			count, sample := s.orch.Active(activeSampleLimit)
			if count == 0 {
				break
			}
			slices.Sort(sample)
			s.log.Infow("waiting for bridges to finish", "active", count, "sample", sample)
			<-drainTicker.C
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownPollInterval)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
	s.mon.Shutdown()
	return nil
}
