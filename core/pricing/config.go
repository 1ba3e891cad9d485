package pricing

import "fmt"

// Config defines quote generation settings.
type Config struct {
	// BasePrices overrides the built-in table, keyed by service type.
	BasePrices map[string]float64 `json:"base_prices"`
	// Default applies to unknown service types and failed lookups.
	Default float64 `json:"default"`
	// Minimum is the floor applied to every quote.
	Minimum float64 `json:"minimum"`
	// RevisionFactor discounts a freshly computed quote on revision.
	RevisionFactor float64 `json:"revision_factor"`
	// Jitter is the width of the uniform integer jitter centred on zero.
	Jitter int `json:"jitter"`
	// Currency labels amounts in notifications.
	Currency string `json:"currency"`
}

// SetDefaults applies the stock pricing rules.
func (c *Config) SetDefaults() {
	if c.Default == 0 {
		c.Default = DefaultPrice
	}
	if c.Minimum == 0 {
		c.Minimum = 20
	}
	if c.RevisionFactor == 0 {
		c.RevisionFactor = 0.8
	}
	if c.Jitter == 0 {
		c.Jitter = 20
	}
	if c.Currency == "" {
		c.Currency = "BGN"
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.RevisionFactor <= 0 || c.RevisionFactor > 1 {
		return fmt.Errorf("pricing: revision_factor must be in (0,1], got %v", c.RevisionFactor)
	}
	if c.Minimum < 0 {
		return fmt.Errorf("pricing: minimum must not be negative")
	}
	if c.Jitter < 0 {
		return fmt.Errorf("pricing: jitter must not be negative")
	}
	return nil
}
