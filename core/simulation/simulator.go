// Package simulation drives the post-acceptance ETA countdown and technician
// movement for a request.
package simulation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/model"
)

// Observer receives simulation updates. Once Stop returns no further call is
// made for that request. ETAUpdated and LocationUpdated run while the
// request's run is locked, so they must not block or call back into the
// Simulator.
type Observer interface {
	ETAUpdated(requestID string, remaining int)
	LocationUpdated(requestID string, p model.DispatchProgress)
	Arrived(requestID string)
}

// Params describes one dispatch.
type Params struct {
	RequestID  string
	ETASeconds int
	From       model.Coordinate
	To         model.Coordinate
}

type run struct {
	mu       sync.Mutex
	progress model.DispatchProgress
	obs      Observer
	stopped  bool
	ticking  bool
	eta      *clock.Task
	move     *clock.Task
	settle   *clock.Task
	safety   *clock.Task
}

// Simulator runs independent ETA and movement tickers per request.
type Simulator struct {
	sched *clock.Scheduler
	cfg   Config
	log   logger.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// ErrAlreadyRunning is returned when a request is dispatched twice.
var ErrAlreadyRunning = errors.New("simulation already running")

// New creates a Simulator scheduling on sched.
func New(sched *clock.Scheduler, cfg Config, log logger.Logger) (*Simulator, error) {
	if sched == nil {
		return nil, errors.New("scheduler is nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{sched: sched, cfg: cfg, log: logger.OrNop(log), runs: make(map[string]*run)}, nil
}

// Start launches the tickers for p. Updates go to obs.
func (s *Simulator) Start(p Params, obs Observer) error {
	if obs == nil {
		return errors.New("observer is nil")
	}
	if p.ETASeconds < 0 {
		return fmt.Errorf("negative eta %d", p.ETASeconds)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[p.RequestID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, p.RequestID)
	}
	r := &run{
		obs:     obs,
		ticking: true,
		progress: model.DispatchProgress{
			RequestID:    p.RequestID,
			RemainingETA: p.ETASeconds,
			Location:     p.From,
			Start:        p.From,
			TotalSteps:   float64(p.ETASeconds) / s.cfg.stepsPerTick(),
		},
	}
	s.runs[p.RequestID] = r

	key := p.RequestID
	if p.ETASeconds > 0 {
		r.eta = s.sched.Every(key, s.cfg.ETATick, func() bool { return s.tickETA(r) })
	}
	r.move = s.sched.Every(key, s.cfg.MoveTick, func() bool { return s.tickMove(r, p.To) })
	safety := time.Duration(p.ETASeconds)*s.cfg.ETATick + s.cfg.SafetyMargin
	r.safety = s.sched.After(key, safety, func() { s.expire(r) })
	s.log.Infof("dispatch %s started: eta %ds, %.1f steps", key, p.ETASeconds, r.progress.TotalSteps)
	return nil
}

func (s *Simulator) tickETA(r *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || !r.ticking {
		return false
	}
	if r.progress.RemainingETA > 0 {
		r.progress.RemainingETA--
	}
	remaining := r.progress.RemainingETA
	r.obs.ETAUpdated(r.progress.RequestID, remaining)
	return remaining > 0
}

func (s *Simulator) tickMove(r *run, to model.Coordinate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || !r.ticking {
		return false
	}
	p := &r.progress
	p.Step++
	frac := 1.0
	if p.TotalSteps > 0 {
		frac = float64(p.Step) / p.TotalSteps
	}
	p.Location = model.Interpolate(p.Start, to, frac)
	done := float64(p.Step) >= p.TotalSteps
	if done {
		p.Location = to
		p.Arrived = true
	}
	r.obs.LocationUpdated(p.RequestID, *p)
	if done {
		id := p.RequestID
		r.settle = s.sched.After(id, s.cfg.Settle, func() { s.arrive(r) })
		return false
	}
	return true
}

func (s *Simulator) arrive(r *run) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	id := r.progress.RequestID
	r.mu.Unlock()

	s.forget(id, r)
	r.obs.Arrived(id)
}

// expire is the safety bound: it stops both tickers even if their own stop
// conditions never fired. If the technician never arrived the dispatch is
// settled immediately so the request cannot stay accepted forever.
func (s *Simulator) expire(r *run) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	// A tick already waiting on r.mu must not emit after this point.
	r.ticking = false
	live := 0
	for _, t := range []*clock.Task{r.eta, r.move} {
		if t != nil && t.Stop() {
			live++
		}
	}
	id := r.progress.RequestID
	if live > 0 {
		s.log.Warnf("dispatch %s: safety timeout stopped %d ticker(s)", id, live)
	}
	if r.settle != nil {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	eta := r.progress.RemainingETA
	r.mu.Unlock()

	s.log.Warnf("dispatch %s: safety timeout forced completion before arrival (%ds eta left)", id, eta)
	s.forget(id, r)
	r.obs.Arrived(id)
}

// Stop cancels every ticker and pending timer of the request. It reports
// whether a simulation was running.
func (s *Simulator) Stop(requestID string) bool {
	s.mu.Lock()
	r, ok := s.runs[requestID]
	delete(s.runs, requestID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for _, t := range []*clock.Task{r.eta, r.move, r.settle, r.safety} {
		if t != nil {
			t.Stop()
		}
	}
	return true
}

// Progress returns a snapshot of the request's dispatch.
func (s *Simulator) Progress(requestID string) (model.DispatchProgress, bool) {
	s.mu.Lock()
	r, ok := s.runs[requestID]
	s.mu.Unlock()
	if !ok {
		return model.DispatchProgress{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress, true
}

// Running reports whether requestID has a live simulation.
func (s *Simulator) Running(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[requestID]
	return ok
}

func (s *Simulator) forget(id string, r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs[id] == r {
		delete(s.runs, id)
	}
	if r.safety != nil {
		r.safety.Stop()
	}
}
