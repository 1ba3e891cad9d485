package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/factory"
)

// DirectoryConfig selects the technician source and its cache policy.
type DirectoryConfig struct {
	factory.ModuleConfig `json:",squash"`
	Cache                directory.Policy `json:"cache"`
}

func (c *DirectoryConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "static"
	}
}

func (c DirectoryConfig) Validate() error {
	if c.Cache.TTL < 0 {
		return fmt.Errorf("directory: cache ttl must not be negative")
	}
	return nil
}

// HTTPConfig configures the request API.
type HTTPConfig struct {
	Address string `json:"address"`
	// Token is the bearer token expected on every call. Empty disables auth.
	Token           string        `json:"token"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

func (c HTTPConfig) Validate() error {
	if c.ReadTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("http: timeouts must not be negative")
	}
	return nil
}

// LogConfig sets the global log level.
type LogConfig struct {
	Level string `json:"level"`
}

func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
