// Package lifecycle owns service requests and drives them through
// negotiation and dispatch.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/negotiation"
	"github.com/kilianp07/roadside/core/notify"
	"github.com/kilianp07/roadside/core/rng"
	"github.com/kilianp07/roadside/core/simulation"
)

// Matcher finds a technician outside the excluded set.
type Matcher interface {
	Find(ctx context.Context, excluded map[string]struct{}) (model.Technician, error)
}

// Publisher receives engine events. eventbus.EventBus satisfies it.
type Publisher interface {
	Publish(events.Event)
}

// Deps are the collaborators of an Engine. Matcher, Negotiator and
// Scheduler are required; the rest default to no-op or in-memory versions.
type Deps struct {
	Matcher    Matcher
	Negotiator *negotiation.Negotiator
	Scheduler  *clock.Scheduler
	Blacklist  blacklist.Store
	Notifier   notify.Notifier
	Bus        Publisher
	Rand       rng.Source
	Logger     logger.Logger
	// NewID generates request ids; defaults to uuid.NewString.
	NewID func() string
}

type entry struct {
	mu      sync.Mutex
	req     model.ServiceRequest
	session *negotiation.Session
	// gen changes on every mutation; deferred actions carry the value they
	// were scheduled under and become no-ops once it moved on.
	gen uint64
}

// Engine is the request state machine.
type Engine struct {
	cfg      Config
	matcher  Matcher
	neg      *negotiation.Negotiator
	sched    *clock.Scheduler
	clock    clock.Clock
	sim      *simulation.Simulator
	store    blacklist.Store
	notifier notify.Notifier
	bus      Publisher
	rnd      rng.Source
	log      logger.Logger
	newID    func() string

	mu       sync.RWMutex
	requests map[string]*entry
	active   map[string]string

	notifyWG sync.WaitGroup
	closed   bool
}

// New creates an Engine. cfg is defaulted and validated.
func New(cfg Config, d Deps) (*Engine, error) {
	if d.Matcher == nil {
		return nil, errors.New("matcher is nil")
	}
	if d.Negotiator == nil {
		return nil, errors.New("negotiator is nil")
	}
	if d.Scheduler == nil {
		return nil, errors.New("scheduler is nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.OrNop(d.Logger)
	sim, err := simulation.New(d.Scheduler, cfg.Simulation, log)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		matcher:  d.Matcher,
		neg:      d.Negotiator,
		sched:    d.Scheduler,
		clock:    d.Scheduler.Clock(),
		sim:      sim,
		store:    d.Blacklist,
		notifier: d.Notifier,
		bus:      d.Bus,
		rnd:      d.Rand,
		log:      log,
		newID:    d.NewID,
		requests: make(map[string]*entry),
		active:   make(map[string]string),
	}
	if e.store == nil {
		e.store = blacklist.NewMemory()
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.rnd == nil {
		e.rnd = rng.New(0)
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

// Create opens a request for requesterID and starts matching. If nobody can
// be matched the returned request is already terminally declined with a
// reason; this is not an error.
func (e *Engine) Create(ctx context.Context, requesterID string, st model.ServiceType, loc model.Coordinate) (model.ServiceRequest, error) {
	if requesterID == "" {
		return model.ServiceRequest{}, errors.New("requester id is required")
	}
	st, err := model.ParseServiceType(string(st))
	if err != nil {
		return model.ServiceRequest{}, err
	}
	if !loc.Valid() {
		return model.ServiceRequest{}, fmt.Errorf("invalid location %v", loc)
	}

	now := e.clock.Now()
	en := &entry{
		req: model.ServiceRequest{
			ID:          e.newID(),
			RequesterID: requesterID,
			Type:        st,
			Location:    loc,
			Status:      model.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		session: negotiation.NewSession(),
	}
	en.mu.Lock()
	defer en.mu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return model.ServiceRequest{}, errors.New("engine closed")
	}
	if id, ok := e.active[requesterID]; ok {
		e.mu.Unlock()
		e.notify(notify.Notification{
			Type:        notify.TypeConflict,
			RequestID:   id,
			RequesterID: requesterID,
			Title:       "Request in Progress",
			Message:     "Please wait for your current request to be completed before making a new one.",
		})
		return model.ServiceRequest{}, fmt.Errorf("%w: requester %s has request %s", model.ErrConflict, requesterID, id)
	}
	e.requests[en.req.ID] = en
	e.active[requesterID] = en.req.ID
	e.mu.Unlock()

	e.log.Infof("request %s created by %s (%s)", en.req.ID, requesterID, st)
	e.publishState(en, "")
	e.notify(e.message(en, notify.TypeRequestSent, "Request Sent", "Your request has been sent to our team."))

	tech, err := e.matcher.Find(ctx, en.session.Blacklist())
	if err != nil {
		e.declineTerminal(en, err)
		return en.req.Clone(), nil
	}
	e.assign(en, tech)
	return en.req.Clone(), nil
}

// Get returns a snapshot of request id.
func (e *Engine) Get(id string) (model.ServiceRequest, error) {
	en, err := e.lookup(id)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.req.Clone(), nil
}

// Active returns the requester's non-terminal request, if any.
func (e *Engine) Active(requesterID string) (model.ServiceRequest, bool) {
	e.mu.RLock()
	id, ok := e.active[requesterID]
	e.mu.RUnlock()
	if !ok {
		return model.ServiceRequest{}, false
	}
	req, err := e.Get(id)
	if err != nil || req.Terminal() {
		return model.ServiceRequest{}, false
	}
	return req, true
}

// Progress returns the dispatch progress of an accepted request.
func (e *Engine) Progress(id string) (model.DispatchProgress, bool) {
	return e.sim.Progress(id)
}

// Blacklist returns the technicians excluded from request id in this process.
func (e *Engine) Blacklist(id string) ([]string, error) {
	en, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.session == nil {
		return nil, nil
	}
	return en.session.BlacklistIDs(), nil
}

// Close cancels all outstanding work and waits for in-flight notifications.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	ids := make([]string, 0, len(e.requests))
	for id := range e.requests {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		e.sim.Stop(id)
		e.sched.Cancel(id)
		e.sched.Cancel(retentionKey(id))
	}
	e.notifyWG.Wait()
	return nil
}

func (e *Engine) lookup(id string) (*entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	en, ok := e.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return en, nil
}

// release frees the requester's slot and schedules the request for removal.
// Called with en.mu held.
func (e *Engine) release(en *entry) {
	id := en.req.ID
	e.sim.Stop(id)
	if n := e.sched.Cancel(id); n > 0 {
		e.log.Debugw("cancelled deferred actions", map[string]any{"request_id": id, "count": n})
	}
	en.session = nil
	e.mu.Lock()
	if e.active[en.req.RequesterID] == id {
		delete(e.active, en.req.RequesterID)
	}
	closed := e.closed
	e.mu.Unlock()
	if !closed {
		e.sched.After(retentionKey(id), e.cfg.Retention, func() { e.forget(id) })
	}
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.requests, id)
}

func retentionKey(id string) string { return "retention/" + id }

// transition moves en to status and publishes the change. Called with en.mu held.
func (e *Engine) transition(en *entry, to model.Status) {
	from := en.req.Status
	en.req.Status = to
	en.req.UpdatedAt = e.clock.Now()
	en.gen++
	e.log.Infof("request %s: %s -> %s", en.req.ID, from, to)
	e.publishState(en, from)
}

func (e *Engine) publishState(en *entry, from model.Status) {
	e.publish(events.StateChanged{
		Request: en.req.Clone(),
		From:    from,
		To:      en.req.Status,
		Time:    en.req.UpdatedAt,
	})
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// stale reports whether a deferred action scheduled under gen must be
// dropped. Called with en.mu held.
func (e *Engine) stale(en *entry, gen uint64, action string) bool {
	if en.gen == gen && !en.req.Terminal() {
		return false
	}
	e.log.Debugw(model.ErrStaleTransition.Error(), map[string]any{
		"request_id": en.req.ID,
		"action":     action,
		"status":     en.req.Status.String(),
	})
	return true
}

// after schedules fn under the request key. fn runs with en.mu held and
// only if nothing changed since scheduling.
func (e *Engine) after(en *entry, d time.Duration, action string, fn func()) {
	gen := en.gen
	e.sched.After(en.req.ID, d, func() {
		en.mu.Lock()
		defer en.mu.Unlock()
		if e.stale(en, gen, action) {
			return
		}
		fn()
	})
}

func (e *Engine) dependencyContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.DependencyTimeout)
}
