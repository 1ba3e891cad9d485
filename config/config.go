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

	"github.com/kilianp07/roadside/core/factory"
	"github.com/kilianp07/roadside/core/lifecycle"
	"github.com/kilianp07/roadside/core/metrics"
	"github.com/kilianp07/roadside/core/pricing"
	"github.com/kilianp07/roadside/infra/journal"
)

// EnvPrefix marks environment overrides: RSA_ENGINE__ETA_SECONDS=60 sets
// engine.eta_seconds.
const EnvPrefix = "RSA_"

type Config struct {
	Engine    lifecycle.Config       `json:"engine"`
	Pricing   pricing.Config         `json:"pricing"`
	Directory DirectoryConfig        `json:"directory"`
	Blacklist factory.ModuleConfig   `json:"blacklist"`
	Notifiers []factory.ModuleConfig `json:"notifiers"`
	Metrics   metrics.Config         `json:"metrics"`
	Journal   journal.Config         `json:"journal"`
	HTTP      HTTPConfig             `json:"http"`
	Log       LogConfig              `json:"log"`
	// Seed feeds the random source. Zero seeds from the clock.
	Seed int64 `json:"seed"`
}

// Load reads a YAML or JSON file, applies environment overrides, then
// defaults, then validation.
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
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
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

// Default returns a configuration usable without a file: static empty
// directory, in-memory blacklist, log notifier.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	c.Pricing.SetDefaults()
	c.Directory.SetDefaults()
	if c.Blacklist.Type == "" {
		c.Blacklist.Type = "memory"
	}
	if len(c.Notifiers) == 0 {
		c.Notifiers = []factory.ModuleConfig{{Type: "log"}}
	}
	c.HTTP.SetDefaults()
	c.Log.SetDefaults()
}

func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	if err := c.Directory.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
