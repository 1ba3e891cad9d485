// Package rng provides the random source injected into matching, pricing and
// simulation so tests can make them deterministic.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand used by the engine.
type Source interface {
	// Float64 returns a value in [0,1).
	Float64() float64
	// Intn returns a value in [0,n).
	Intn(n int) int
}

// Locked is a goroutine-safe Source.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a goroutine-safe Source seeded with seed. A zero seed uses the
// current time.
func New(seed int64) *Locked {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Locked{r: rand.New(rand.NewSource(seed))}
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Scripted replays a fixed list of Float64 values in order, cycling when
// exhausted. Intn derives from the next value.
type Scripted struct {
	mu     sync.Mutex
	values []float64
	i      int
}

// NewScripted returns a Scripted source. With no values it always yields 0.
func NewScripted(values ...float64) *Scripted {
	return &Scripted{values: values}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func (s *Scripted) Intn(n int) int {
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
