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

package config

import (
	"os"
	"strings"

	"github.com/livekit/protocol/logger"
	"gopkg.in/yaml.v3"

	"github.com/veloxvoip/callbridge/pkg/errors"
)

const (
	DefaultHTTPPort    = 3001
	DefaultWebhookPath = "telnyx"
	DefaultDedupWindow = 5000

	ProviderTelnyx  = "telnyx"
	ProviderInfobip = "infobip"
)

// TelnyxConfig holds Telnyx Call Control credentials.
type TelnyxConfig struct {
	ApiKey             string `yaml:"api_key"`              // env TELNYX_API_KEY
	PublicKey          string `yaml:"public_key"`           // base64 Ed25519 key, env TELNYX_PUBLIC_KEY
	ConnectionId       string `yaml:"connection_id"`        // env TELNYX_CONNECTION_ID
	Number             string `yaml:"number"`               // trunk number in E.164, env TELNYX_NUMBER
	WebRTCCredentialId string `yaml:"webrtc_credential_id"` // env TELNYX_WEBRTC_CREDENTIAL_ID
	BaseURL            string `yaml:"base_url"`
}

// InfobipConfig holds Infobip credentials. Infobip is WebRTC-token only for now.
type InfobipConfig struct {
	BaseURL string `yaml:"base_url"` // env INFOBIP_BASE_URL
	ApiKey  string `yaml:"api_key"`  // env INFOBIP_API_KEY
}

type Config struct {
	Port           int `yaml:"port"` // main HTTP API port
	HealthPort     int `yaml:"health_port"`
	PrometheusPort int `yaml:"prometheus_port"`
	PProfPort      int `yaml:"pprof_port"`

	// CallProvider selects the provider that owns PSTN bridging.
	CallProvider string `yaml:"call_provider"`
	// WebhookPath is the secret-ish suffix of the webhook URL, e.g. /webhooks/telnyx.
	WebhookPath string `yaml:"webhook_path"`
	// WebhookAllowedIPs optionally restricts webhook posts to the given IPs/CIDRs.
	WebhookAllowedIPs []string `yaml:"webhook_allowed_ips"`
	// DedupWindow is the size of the seen-event-id window.
	DedupWindow int `yaml:"dedup_window"`

	Logging logger.Config `yaml:"logging"`

	Telnyx  *TelnyxConfig  `yaml:"telnyx"`
	Infobip *InfobipConfig `yaml:"infobip"`

	// internal
	ServiceName string `yaml:"-"`
}

func NewConfig(confString string) (*Config, error) {
	conf := &Config{
		CallProvider: strings.ToLower(os.Getenv("CALL_PROVIDER")),
		ServiceName:  "callbridge",
	}
	if confString != "" {
		if err := yaml.Unmarshal([]byte(confString), conf); err != nil {
			return nil, errors.ErrCouldNotParseConfig(err)
		}
	}
	conf.applyEnv()

	if conf.CallProvider == "" {
		conf.CallProvider = ProviderTelnyx
	}
	switch conf.CallProvider {
	case ProviderTelnyx:
		if conf.Telnyx == nil || conf.Telnyx.ApiKey == "" || conf.Telnyx.ConnectionId == "" || conf.Telnyx.Number == "" {
			return nil, errors.ErrProviderNotConfigured
		}
	case ProviderInfobip:
		if conf.Infobip == nil || conf.Infobip.ApiKey == "" {
			return nil, errors.ErrProviderNotConfigured
		}
	default:
		return nil, errors.Errorf("unknown call provider: %q", conf.CallProvider)
	}
	return conf, nil
}

// applyEnv fills credential fields from the environment when the yaml leaves them empty.
func (c *Config) applyEnv() {
	if os.Getenv("TELNYX_API_KEY") != "" && c.Telnyx == nil {
		c.Telnyx = &TelnyxConfig{}
	}
	if t := c.Telnyx; t != nil {
		setFromEnv(&t.ApiKey, "TELNYX_API_KEY")
		setFromEnv(&t.PublicKey, "TELNYX_PUBLIC_KEY")
		setFromEnv(&t.ConnectionId, "TELNYX_CONNECTION_ID")
		setFromEnv(&t.Number, "TELNYX_NUMBER")
		setFromEnv(&t.WebRTCCredentialId, "TELNYX_WEBRTC_CREDENTIAL_ID")
	}
	if os.Getenv("INFOBIP_API_KEY") != "" && c.Infobip == nil {
		c.Infobip = &InfobipConfig{}
	}
	if i := c.Infobip; i != nil {
		setFromEnv(&i.BaseURL, "INFOBIP_BASE_URL")
		setFromEnv(&i.ApiKey, "INFOBIP_API_KEY")
	}
}

func setFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func (c *Config) Init() error {
	if c.Port == 0 {
		c.Port = DefaultHTTPPort
	}
	if c.WebhookPath == "" {
		c.WebhookPath = DefaultWebhookPath
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = DefaultDedupWindow
	}
	return c.InitLogger()
}

func (c *Config) InitLogger(values ...interface{}) error {
	zl, err := logger.NewZapLogger(&c.Logging)
	if err != nil {
		return err
	}
	l := zl.WithValues(values...)
	logger.SetLogger(l, c.ServiceName)
	return nil
}

// TrunkNumber returns the number outbound legs are dialed from. Always the
// service's own number, never the caller's.
func (c *Config) TrunkNumber() string {
	if c.Telnyx != nil {
		return c.Telnyx.Number
	}
	return ""
}
