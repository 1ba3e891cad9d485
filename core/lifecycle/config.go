package lifecycle

import (
	"fmt"
	"time"

	"github.com/kilianp07/roadside/core/simulation"
)

// Config holds the engine timings.
type Config struct {
	// QuoteDelayMin and QuoteDelaySpread bound the technician response time:
	// min + rand*spread.
	QuoteDelayMin    time.Duration `json:"quote_delay_min"`
	QuoteDelaySpread time.Duration `json:"quote_delay_spread"`
	// RevisionDelay precedes a revised quote after the first decline.
	RevisionDelay time.Duration `json:"revision_delay"`
	// RematchDelay precedes the search for a replacement technician.
	RematchDelay time.Duration `json:"rematch_delay"`

	// ETASeconds is the dispatch duration when EstimateETA is off.
	ETASeconds int `json:"eta_seconds"`
	// EstimateETA derives the ETA from the distance and AverageSpeedMPS.
	EstimateETA     bool    `json:"estimate_eta"`
	AverageSpeedMPS float64 `json:"average_speed_mps"`
	// StartSpreadDegrees is the width of the square around the requester in
	// which a technician without a known position starts.
	StartSpreadDegrees float64 `json:"start_spread_degrees"`

	// DependencyTimeout bounds blacklist and directory calls made by
	// deferred actions and notifier deliveries.
	DependencyTimeout time.Duration `json:"dependency_timeout"`
	// Retention keeps terminal requests readable before they are dropped.
	Retention time.Duration `json:"retention"`

	Simulation simulation.Config `json:"simulation"`
}

// SetDefaults applies the stock timings.
func (c *Config) SetDefaults() {
	if c.QuoteDelayMin == 0 {
		c.QuoteDelayMin = 2 * time.Second
	}
	if c.QuoteDelaySpread == 0 {
		c.QuoteDelaySpread = 3 * time.Second
	}
	if c.RevisionDelay == 0 {
		c.RevisionDelay = 3 * time.Second
	}
	if c.RematchDelay == 0 {
		c.RematchDelay = 2 * time.Second
	}
	if c.ETASeconds == 0 {
		c.ETASeconds = 30
	}
	if c.AverageSpeedMPS == 0 {
		c.AverageSpeedMPS = 8
	}
	if c.StartSpreadDegrees == 0 {
		c.StartSpreadDegrees = 0.02
	}
	if c.DependencyTimeout == 0 {
		c.DependencyTimeout = 5 * time.Second
	}
	if c.Retention == 0 {
		c.Retention = time.Hour
	}
	c.Simulation.SetDefaults()
}

// Validate checks mandatory ranges.
func (c Config) Validate() error {
	if c.QuoteDelayMin < 0 || c.QuoteDelaySpread < 0 || c.RevisionDelay < 0 || c.RematchDelay < 0 {
		return fmt.Errorf("engine: delays must not be negative")
	}
	if c.ETASeconds < 0 {
		return fmt.Errorf("engine: eta_seconds must not be negative")
	}
	if c.EstimateETA && c.AverageSpeedMPS <= 0 {
		return fmt.Errorf("engine: average_speed_mps must be positive")
	}
	return c.Simulation.Validate()
}
