// Package directory provides the pool of technicians available for matching.
package directory

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/model"
)

// Directory loads the current technician pool.
type Directory interface {
	Load(ctx context.Context) ([]model.Technician, error)
}

// Static is a fixed pool.
type Static []model.Technician

func (s Static) Load(context.Context) ([]model.Technician, error) {
	return clone(s), nil
}

// Func adapts a function to Directory.
type Func func(ctx context.Context) ([]model.Technician, error)

func (f Func) Load(ctx context.Context) ([]model.Technician, error) { return f(ctx) }

// Policy controls how Cached refreshes.
type Policy struct {
	// TTL is how long a loaded pool is reused. Zero reloads on every call.
	TTL time.Duration `json:"ttl"`
	// ServeStale returns the last good pool when a refresh fails.
	ServeStale bool `json:"serve_stale"`
}

// Cached wraps a Directory with an explicit refresh policy.
type Cached struct {
	src    Directory
	policy Policy
	clock  clock.Clock
	log    logger.Logger

	mu       sync.Mutex
	pool     []model.Technician
	loadedAt time.Time
	valid    bool
}

// NewCached wraps src. A nil clock uses the real clock.
func NewCached(src Directory, p Policy, c clock.Clock, log logger.Logger) *Cached {
	if c == nil {
		c = clock.Real()
	}
	return &Cached{src: src, policy: p, clock: c, log: logger.OrNop(log)}
}

func (c *Cached) Load(ctx context.Context) ([]model.Technician, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if c.valid && c.policy.TTL > 0 && now.Sub(c.loadedAt) < c.policy.TTL {
		return clone(c.pool), nil
	}
	pool, err := c.src.Load(ctx)
	if err != nil {
		if c.valid && c.policy.ServeStale {
			c.log.Warnf("directory refresh failed, serving %d cached technicians: %v", len(c.pool), err)
			return clone(c.pool), nil
		}
		return nil, err
	}
	c.pool = clone(pool)
	c.loadedAt = now
	c.valid = true
	return clone(pool), nil
}

// Invalidate forces the next Load to hit the source.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

func clone(in []model.Technician) []model.Technician {
	out := make([]model.Technician, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
