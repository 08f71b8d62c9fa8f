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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/livekit/protocol/logger"
	"github.com/urfave/cli/v3"

	"github.com/veloxvoip/callbridge/pkg/bridge"
	"github.com/veloxvoip/callbridge/pkg/config"
	"github.com/veloxvoip/callbridge/pkg/errors"
	"github.com/veloxvoip/callbridge/pkg/provider"
	"github.com/veloxvoip/callbridge/pkg/provider/infobip"
	"github.com/veloxvoip/callbridge/pkg/provider/telnyx"
	"github.com/veloxvoip/callbridge/pkg/service"
	"github.com/veloxvoip/callbridge/pkg/stats"
	"github.com/veloxvoip/callbridge/version"
)

func main() {
	cmd := &cli.Command{
		Name:        "callbridge",
		Usage:       "Call bridge orchestrator",
		Version:     version.Version,
		Description: "Bridges two PSTN/WebRTC call legs via provider webhooks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "callbridge yaml config file",
				Sources: cli.EnvVars("CALLBRIDGE_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config-body",
				Usage:   "callbridge yaml config body",
				Sources: cli.EnvVars("CALLBRIDGE_CONFIG_BODY"),
			},
		},
		Action: runService,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runService(_ context.Context, c *cli.Command) error {
	conf, err := getConfig(c, true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGTERM, syscall.SIGQUIT)

	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, syscall.SIGINT)

	mon, err := stats.NewMonitor(conf)
	if err != nil {
		return err
	}

	providers := provider.NewRegistry()
	if conf.Telnyx != nil {
		providers.Register(telnyx.New(conf.Telnyx, log))
	}
	if conf.Infobip != nil {
		providers.Register(infobip.New(conf.Infobip))
	}
	active, ok := providers.Get(conf.CallProvider)
	if !ok {
		return errors.ErrProviderNotConfigured
	}

	orch := bridge.NewOrchestrator(active, conf.TrunkNumber(),
		bridge.WithLogger(log),
		bridge.WithMonitor(mon),
		bridge.WithDedupWindow(conf.DedupWindow),
	)

	svc, err := service.NewService(conf, orch, providers, mon, log)
	if err != nil {
		return err
	}

	go func() {
		select {
		case sig := <-stopChan:
			log.Infow("exit requested, draining active bridges then shutting down", "signal", sig)
			svc.Stop(false)
		case sig := <-killChan:
			log.Infow("exit requested, shutting down", "signal", sig)
			svc.Stop(true)
		}
	}()

	return svc.Run()
}

func getConfig(c *cli.Command, initialize bool) (*config.Config, error) {
	configFile := c.String("config")
	configBody := c.String("config-body")
	if configBody == "" {
		if configFile == "" {
			return nil, errors.ErrNoConfig
		}
		content, err := os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		configBody = string(content)
	}

	conf, err := config.NewConfig(configBody)
	if err != nil {
		return nil, err
	}

	if initialize {
		if err = conf.Init(); err != nil {
			return nil, err
		}
	}
	return conf, nil
}
