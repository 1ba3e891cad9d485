// Package negotiation prices requests and applies the two-strike decline rule.
package negotiation

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/pricing"
	"github.com/kilianp07/roadside/core/rng"
)

// Decision is the outcome of a decline.
type Decision int

const (
	// DecisionNone leaves the request as it is.
	DecisionNone Decision = iota
	// DecisionRevise asks the same technician for a discounted quote.
	DecisionRevise
	// DecisionRematch blacklists the technician and searches for another.
	DecisionRematch
)

func (d Decision) String() string {
	switch d {
	case DecisionRevise:
		return "revise"
	case DecisionRematch:
		return "rematch"
	default:
		return "none"
	}
}

// Quote is a generated price with the values it was derived from.
type Quote struct {
	Amount  float64
	Base    float64
	Raw     float64
	Revised bool
}

// Negotiator generates quotes and decides what happens after a decline.
type Negotiator struct {
	table pricing.Table
	rnd   rng.Source
	cfg   pricing.Config
	log   logger.Logger
}

// New creates a Negotiator. cfg is defaulted and validated.
func New(table pricing.Table, rnd rng.Source, cfg pricing.Config, log logger.Logger) (*Negotiator, error) {
	if table == nil {
		return nil, errors.New("pricing table is nil")
	}
	if rnd == nil {
		return nil, errors.New("random source is nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Negotiator{table: table, rnd: rnd, cfg: cfg, log: logger.OrNop(log)}, nil
}

// Currency returns the label used for amounts.
func (n *Negotiator) Currency() string { return n.cfg.Currency }

// Minimum is the lowest amount any quote may carry.
func (n *Negotiator) Minimum() float64 { return n.cfg.Minimum }

// Validate checks an amount entered by a technician. A revision must not
// exceed the quote it replaces; previous is nil for a first quote.
func (n *Negotiator) Validate(amount float64, previous *float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: amount %v", model.ErrInvalidQuote, amount)
	}
	if amount < n.cfg.Minimum {
		return fmt.Errorf("%w: %s is below the minimum of %s",
			model.ErrInvalidQuote, n.FormatAmount(amount), n.FormatAmount(n.cfg.Minimum))
	}
	if previous != nil && amount > *previous {
		return fmt.Errorf("%w: revision of %s exceeds the previous quote of %s",
			model.ErrInvalidQuote, n.FormatAmount(amount), n.FormatAmount(*previous))
	}
	return nil
}

// GenerateQuote prices a request of type st. A revised quote discounts a
// freshly jittered base rather than the previous quote. Pricing lookup
// failures fall back to the configured default price.
func (n *Negotiator) GenerateQuote(st model.ServiceType, revised bool) Quote {
	base, err := n.table.BasePrice(st)
	if err != nil {
		n.log.Warnf("%v; using default price %.2f", model.Transient("pricing lookup", err), n.cfg.Default)
		base = n.cfg.Default
	}
	raw := base + n.jitter()
	amount := raw
	if revised {
		amount = raw * n.cfg.RevisionFactor
	}
	amount = roundCents(math.Max(n.cfg.Minimum, amount))
	return Quote{Amount: amount, Base: base, Raw: raw, Revised: revised}
}

// jitter is uniform over the integers [-J/2, J/2-1].
func (n *Negotiator) jitter() float64 {
	if n.cfg.Jitter == 0 {
		return 0
	}
	j := n.cfg.Jitter
	return math.Floor(n.rnd.Float64()*float64(j)) - float64(j/2)
}

// OnDecline records a decline against technicianID and returns what the
// engine must do next. The first decline earns one revision from the same
// technician; the second blacklists the technician and resets the counters.
func (n *Negotiator) OnDecline(s *Session, technicianID string) Decision {
	s.DeclineCount++
	switch {
	case s.DeclineCount == 1 && !s.HasReceivedRevision:
		s.HasReceivedRevision = true
		return DecisionRevise
	case s.DeclineCount >= 2:
		s.Exclude(technicianID)
		s.reset()
		return DecisionRematch
	}
	return DecisionNone
}

// FormatAmount renders amount with the configured currency.
func (n *Negotiator) FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f %s", amount, n.cfg.Currency)
}

func roundCents(v float64) float64 { return math.Round(v*100) / 100 }
