package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/negotiation"
	"github.com/kilianp07/roadside/core/notify"
	"github.com/kilianp07/roadside/core/simulation"
)

const (
	reasonNoTechnician    = "No available employees. Please try again later."
	reasonDirectoryFailed = "Error finding available employees. Please try again."
)

// ApplyQuote sets a quote entered by technicianID, who must be the assigned
// technician. It is valid while the request waits for its first quote or for
// a revision. The amount must respect the pricing floor and a revision may
// not exceed the declined quote.
func (e *Engine) ApplyQuote(_ context.Context, id, technicianID string, amount float64) (model.ServiceRequest, error) {
	en, err := e.lookup(id)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if err := quotable(en); err != nil {
		return model.ServiceRequest{}, err
	}
	if en.req.Technician.ID != technicianID {
		return model.ServiceRequest{}, fmt.Errorf("%w: %q is not assigned to %s", model.ErrNotAssigned, technicianID, id)
	}
	revised := en.req.Status == model.StatusDeclined
	var previous *float64
	if revised {
		previous = en.req.Quote
	}
	if err := e.neg.Validate(amount, previous); err != nil {
		return model.ServiceRequest{}, err
	}
	if err := e.applyQuote(en, amount, revised); err != nil {
		return model.ServiceRequest{}, err
	}
	return en.req.Clone(), nil
}

func quotable(en *entry) error {
	switch {
	case en.req.Technician == nil:
		return model.InvalidTransition("apply quote without technician", en.req.Status)
	case en.req.Status == model.StatusPending:
	case en.req.Status == model.StatusDeclined && en.session != nil && en.session.AwaitingRevision():
	default:
		return model.InvalidTransition("apply quote", en.req.Status)
	}
	return nil
}

func (e *Engine) applyQuote(en *entry, amount float64, revised bool) error {
	if err := quotable(en); err != nil {
		return err
	}
	q := amount
	en.req.Quote = &q
	e.transition(en, model.StatusQuoteReceived)

	tech := *en.req.Technician
	e.publish(events.QuoteReceived{
		RequestID:   en.req.ID,
		ServiceType: en.req.Type,
		Technician:  tech.Clone(),
		Amount:      amount,
		Revised:     revised,
		Time:        en.req.UpdatedAt,
	})
	title, kind := "Price Quote Received", "quote"
	if revised {
		title, kind = "Revised Price Quote Received", "revised quote"
	}
	e.notify(e.message(en, notify.TypeQuoteReceived, title,
		fmt.Sprintf("%s sent you a %s of %s.", tech.DisplayName(), kind, e.neg.FormatAmount(amount))))
	return nil
}

// Accept takes the current quote and dispatches the technician.
func (e *Engine) Accept(_ context.Context, id string) (model.ServiceRequest, error) {
	en, err := e.lookup(id)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.req.Status != model.StatusQuoteReceived {
		return model.ServiceRequest{}, model.InvalidTransition("accept", en.req.Status)
	}
	tech := en.req.Technician
	start := e.startLocation(en.req.Location, tech)
	eta := e.eta(start, en.req.Location)
	if err := e.sim.Start(simulation.Params{
		RequestID:  en.req.ID,
		ETASeconds: eta,
		From:       start,
		To:         en.req.Location,
	}, e); err != nil {
		return model.ServiceRequest{}, fmt.Errorf("start dispatch: %w", err)
	}
	e.transition(en, model.StatusAccepted)
	e.notify(e.message(en, notify.TypeAccepted, "Quote Accepted", "The service provider is on their way!"))
	return en.req.Clone(), nil
}

// Decline rejects the current quote. The first decline against a technician
// asks them for a revision; the second excludes them and searches again.
func (e *Engine) Decline(ctx context.Context, id string) (model.ServiceRequest, error) {
	en, err := e.lookup(id)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.req.Status != model.StatusQuoteReceived {
		return model.ServiceRequest{}, model.InvalidTransition("decline", en.req.Status)
	}
	tech := *en.req.Technician
	e.transition(en, model.StatusDeclined)

	switch d := e.neg.OnDecline(en.session, tech.ID); d {
	case negotiation.DecisionRevise:
		e.notify(e.message(en, notify.TypeQuoteDeclined, "Quote Declined",
			fmt.Sprintf("%s will send you a revised quote.", tech.DisplayName())))
		e.after(en, e.cfg.RevisionDelay, "revise", func() {
			q := e.neg.GenerateQuote(en.req.Type, true)
			if err := e.applyQuote(en, q.Amount, true); err != nil {
				e.log.Warnf("request %s: revised quote dropped: %v", en.req.ID, err)
			}
		})
	case negotiation.DecisionRematch:
		e.excludeTechnician(ctx, en, tech)
		en.req.Technician = nil
		en.req.Quote = nil
		e.transition(en, model.StatusPending)
		e.notify(e.message(en, notify.TypeRematching, "Quote Declined", "Looking for another available employee..."))
		e.after(en, e.cfg.RematchDelay, "rematch", func() { e.rematch(en) })
	default:
		e.log.Errorf("request %s: decline produced no decision (count %d)", en.req.ID, en.session.DeclineCount)
	}
	return en.req.Clone(), nil
}

// Cancel ends an active request and stops all of its timers.
func (e *Engine) Cancel(_ context.Context, id string) (model.ServiceRequest, error) {
	en, err := e.lookup(id)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.req.Terminal() {
		return model.ServiceRequest{}, model.InvalidTransition("cancel", en.req.Status)
	}
	e.release(en)
	e.transition(en, model.StatusCancelled)
	e.notify(e.message(en, notify.TypeCancelled, "Request Cancelled", "Your request has been cancelled."))
	return en.req.Clone(), nil
}

// Complete closes an accepted request.
func (e *Engine) Complete(_ context.Context, id string) (model.ServiceRequest, error) {
	en, err := e.lookup(id)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.req.Status != model.StatusAccepted {
		return model.ServiceRequest{}, model.InvalidTransition("complete", en.req.Status)
	}
	e.release(en)
	e.transition(en, model.StatusCompleted)
	name := "The technician"
	if en.req.Technician != nil {
		name = en.req.Technician.DisplayName()
	}
	e.notify(e.message(en, notify.TypeCompleted, "Service Completed",
		fmt.Sprintf("%s has arrived and completed the service.", name)))
	return en.req.Clone(), nil
}

// assign sets the matched technician and schedules their first quote.
// Called with en.mu held.
func (e *Engine) assign(en *entry, tech model.Technician) {
	t := tech.Clone()
	en.req.Technician = &t
	en.req.UpdatedAt = e.clock.Now()
	en.gen++
	e.log.Infof("request %s matched with technician %s", en.req.ID, tech.ID)
	e.after(en, e.quoteDelay(), "quote", func() {
		q := e.neg.GenerateQuote(en.req.Type, false)
		if err := e.applyQuote(en, q.Amount, false); err != nil {
			e.log.Warnf("request %s: quote dropped: %v", en.req.ID, err)
		}
	})
}

// excludeTechnician blacklists tech in the session and the durable store.
// Store failures are logged; the in-memory blacklist still applies.
func (e *Engine) excludeTechnician(ctx context.Context, en *entry, tech model.Technician) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.DependencyTimeout)
	defer cancel()
	if err := e.store.Add(ctx, en.req.ID, tech.ID, en.req.RequesterID); err != nil {
		e.log.Warnf("request %s: %v", en.req.ID, model.Transient("blacklist add", err))
	}
	e.publish(events.TechnicianBlacklisted{RequestID: en.req.ID, TechnicianID: tech.ID, Time: e.clock.Now()})
}

// rematch searches for a replacement excluding the stored and in-memory
// blacklists. Called with en.mu held.
func (e *Engine) rematch(en *entry) {
	ctx, cancel := e.dependencyContext()
	defer cancel()
	stored, err := e.store.Get(ctx, en.req.ID)
	if err != nil {
		e.log.Warnf("request %s: %v", en.req.ID, model.Transient("blacklist get", err))
	}
	excluded := blacklist.Union(stored, en.session.Blacklist())
	for id := range stored {
		en.session.Exclude(id)
	}
	tech, err := e.matcher.Find(ctx, excluded)
	if err == nil {
		if _, banned := excluded[tech.ID]; banned {
			e.log.Errorf("request %s: matcher returned excluded technician %s", en.req.ID, tech.ID)
			err = model.ErrNoTechnicianAvailable
		}
	}
	if err != nil {
		e.declineTerminal(en, err)
		return
	}
	e.assign(en, tech)
}

// declineTerminal ends the request because nobody could be matched.
// Called with en.mu held.
func (e *Engine) declineTerminal(en *entry, cause error) {
	reason := reasonNoTechnician
	if model.IsTransient(cause) || !errors.Is(cause, model.ErrNoTechnicianAvailable) {
		reason = reasonDirectoryFailed
	}
	e.log.Warnf("request %s declined: %v", en.req.ID, cause)
	en.req.Reason = reason
	en.req.Technician = nil
	en.req.Quote = nil
	e.release(en)
	e.transition(en, model.StatusDeclined)
	e.notify(e.message(en, notify.TypeNoTechnician, "No Technician Available", reason))
}

func (e *Engine) quoteDelay() time.Duration {
	return e.cfg.QuoteDelayMin + time.Duration(e.rnd.Float64()*float64(e.cfg.QuoteDelaySpread))
}

// startLocation is the technician's known position, or a point near the
// requester.
func (e *Engine) startLocation(target model.Coordinate, tech *model.Technician) model.Coordinate {
	if tech != nil && tech.Location != nil && tech.Location.Valid() {
		return *tech.Location
	}
	s := e.cfg.StartSpreadDegrees
	return target.Offset((e.rnd.Float64()-0.5)*s, (e.rnd.Float64()-0.5)*s)
}

func (e *Engine) eta(from, to model.Coordinate) int {
	if !e.cfg.EstimateETA {
		return e.cfg.ETASeconds
	}
	secs := int(math.Ceil(model.Haversine(from, to) / e.cfg.AverageSpeedMPS))
	if secs < 2 {
		secs = 2
	}
	return secs
}
