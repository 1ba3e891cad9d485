package lifecycle

import (
	"context"
	"errors"

	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/notify"
)

// ETAUpdated implements simulation.Observer.
func (e *Engine) ETAUpdated(requestID string, remaining int) {
	e.publish(events.ETAUpdated{RequestID: requestID, RemainingSeconds: remaining, Time: e.clock.Now()})
}

// LocationUpdated implements simulation.Observer.
func (e *Engine) LocationUpdated(requestID string, p model.DispatchProgress) {
	e.publish(events.LocationUpdated{
		RequestID:  requestID,
		Location:   p.Location,
		Step:       p.Step,
		TotalSteps: p.TotalSteps,
		Time:       e.clock.Now(),
	})
}

// Arrived implements simulation.Observer by completing the request.
func (e *Engine) Arrived(requestID string) {
	if _, err := e.Complete(context.Background(), requestID); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrNotFound) {
			e.log.Debugw(model.ErrStaleTransition.Error(), map[string]any{"request_id": requestID, "action": "complete"})
			return
		}
		e.log.Errorf("request %s: complete: %v", requestID, err)
	}
}

// message builds a notification for en. Called with en.mu held.
func (e *Engine) message(en *entry, t notify.Type, title, msg string) notify.Notification {
	return notify.Notification{
		Type:        t,
		RequestID:   en.req.ID,
		RequesterID: en.req.RequesterID,
		Title:       title,
		Message:     msg,
	}
}

// notify publishes n on the bus and hands it to the notifier without
// waiting for delivery. Once Close has started nothing is handed over, so
// notifyWG.Add never races with its Wait.
func (e *Engine) notify(n notify.Notification) {
	n.Time = e.clock.Now()
	e.publish(events.Notification{
		RequestID:   n.RequestID,
		RequesterID: n.RequesterID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		Time:        n.Time,
	})
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		e.log.Debugw("notification dropped, engine closed", map[string]any{"request_id": n.RequestID, "type": string(n.Type)})
		return
	}
	e.notifyWG.Add(1)
	e.mu.RUnlock()
	go func() {
		defer e.notifyWG.Done()
		ctx, cancel := e.dependencyContext()
		defer cancel()
		if err := e.notifier.Notify(ctx, n); err != nil {
			e.log.Warnf("notify %s for request %s failed: %v", n.Type, n.RequestID, err)
		}
	}()
}
