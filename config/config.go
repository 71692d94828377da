package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/core/module"
	"github.com/kilianp07/walletfactory/infra/mqtt"
)

type Config struct {
	Factory  FactoryConfig  `json:"factory"`
	Registry module.Config  `json:"registry"`
	Audit    module.Config  `json:"audit"`
	Metrics  metrics.Config `json:"metrics"`
	HTTP     HTTPConfig     `json:"http"`
	// MQTT notifications are disabled when the broker is empty.
	MQTT    mqtt.Config   `json:"mqtt"`
	Sentry  SentryConfig  `json:"sentry"`
	Logging LoggingConfig `json:"logging"`
}

// HTTPConfig configures the wallet API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// AuditToken, when set, is required as a Bearer token on /api/audit.
	AuditToken string `json:"audit_token"`
}

// Load reads a YAML or JSON file, applies K_ prefixed environment overrides
// (K_FACTORY__CONTROLLER sets factory.controller), fills defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section left empty.
func (c *Config) SetDefaults() {
	c.Factory.SetDefaults()
	c.Logging.SetDefaults()
	if c.Registry.Type == "" {
		c.Registry.Type = "memory"
	}
	if c.Audit.Type == "" {
		c.Audit.Type = "nop"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Factory.Validate(); err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
