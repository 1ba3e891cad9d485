// Package matcher picks a technician for a request.
package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/rng"
)

// Matcher selects uniformly at random among eligible technicians.
type Matcher struct {
	dir directory.Directory
	rnd rng.Source
	log logger.Logger
}

// New creates a Matcher.
func New(dir directory.Directory, rnd rng.Source, log logger.Logger) (*Matcher, error) {
	if dir == nil {
		return nil, errors.New("directory is nil")
	}
	if rnd == nil {
		return nil, errors.New("random source is nil")
	}
	return &Matcher{dir: dir, rnd: rnd, log: logger.OrNop(log)}, nil
}

// Find returns a technician whose id is not in excluded. It fails with
// model.ErrNoTechnicianAvailable when nobody is eligible. A directory failure
// is reported as a TransientDependencyError that also matches
// ErrNoTechnicianAvailable, since the caller treats it as an empty pool.
func (m *Matcher) Find(ctx context.Context, excluded map[string]struct{}) (model.Technician, error) {
	pool, err := m.dir.Load(ctx)
	if err != nil {
		m.log.Warnf("directory load failed: %v", err)
		return model.Technician{}, model.Transient("directory load",
			fmt.Errorf("%w: %w", model.ErrNoTechnicianAvailable, err))
	}
	eligible := make([]model.Technician, 0, len(pool))
	for _, t := range pool {
		if t.ID == "" {
			continue
		}
		if _, skip := excluded[t.ID]; skip {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		m.log.Infof("no eligible technician (pool %d, excluded %d)", len(pool), len(excluded))
		return model.Technician{}, model.ErrNoTechnicianAvailable
	}
	picked := eligible[m.rnd.Intn(len(eligible))]
	m.log.Debugw("technician matched", map[string]any{
		"technician_id": picked.ID,
		"eligible":      len(eligible),
	})
	return picked, nil
}
