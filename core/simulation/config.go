package simulation

import (
	"fmt"
	"time"
)

// Config holds the dispatch simulation cadences.
type Config struct {
	// ETATick is the countdown period; the countdown moves one second per tick.
	ETATick time.Duration `json:"eta_tick"`
	// MoveTick is the position interpolation period.
	MoveTick time.Duration `json:"move_tick"`
	// Settle is the wait between arrival and completion.
	Settle time.Duration `json:"settle"`
	// SafetyMargin is added to the ETA to bound the lifetime of both tickers.
	SafetyMargin time.Duration `json:"safety_margin"`
}

// SetDefaults applies the stock cadences (1s, 2s, 5s settle, ETA+10s).
func (c *Config) SetDefaults() {
	if c.ETATick <= 0 {
		c.ETATick = time.Second
	}
	if c.MoveTick <= 0 {
		c.MoveTick = 2 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 5 * time.Second
	}
	if c.SafetyMargin <= 0 {
		c.SafetyMargin = 10 * time.Second
	}
}

// Validate checks the tick ordering.
func (c Config) Validate() error {
	if c.MoveTick < c.ETATick {
		return fmt.Errorf("simulation: move_tick (%s) must not be shorter than eta_tick (%s)", c.MoveTick, c.ETATick)
	}
	return nil
}

// stepsPerTick is the number of ETA ticks per movement tick.
func (c Config) stepsPerTick() float64 {
	return float64(c.MoveTick) / float64(c.ETATick)
}
