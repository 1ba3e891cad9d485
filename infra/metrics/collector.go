package metrics

import (
	"context"

	"github.com/kilianp07/roadside/core/events"
	coremetrics "github.com/kilianp07/roadside/core/metrics"
	"github.com/kilianp07/roadside/infra/logger"
	"github.com/kilianp07/roadside/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector goroutine has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	c := &collector{sink: sink, active: map[string]struct{}{}, log: logger.New("metrics-collector")}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := c.record(ev); err != nil {
					c.log.Warnf("record %s: %v", ev.Kind(), err)
				}
			}
		}
	}()
	return done
}

type collector struct {
	sink   coremetrics.MetricsSink
	active map[string]struct{}
	log    logger.Logger
}

func (c *collector) record(ev events.Event) error {
	switch e := ev.(type) {
	case events.StateChanged:
		return c.transition(e)
	case events.QuoteReceived:
		if r, ok := c.sink.(coremetrics.QuoteRecorder); ok {
			return r.RecordQuote(coremetrics.QuoteEvent{
				RequestID:    e.RequestID,
				ServiceType:  e.ServiceType.String(),
				TechnicianID: e.Technician.ID,
				Amount:       e.Amount,
				Revised:      e.Revised,
				Time:         e.Time,
			})
		}
	case events.TechnicianBlacklisted:
		if r, ok := c.sink.(coremetrics.BlacklistRecorder); ok {
			return r.RecordBlacklist(coremetrics.BlacklistEvent{
				RequestID:    e.RequestID,
				TechnicianID: e.TechnicianID,
				Time:         e.Time,
			})
		}
	case events.LocationUpdated:
		if r, ok := c.sink.(coremetrics.LocationRecorder); ok {
			return r.RecordLocation(coremetrics.LocationEvent{
				RequestID: e.RequestID,
				Lat:       e.Location.Lat,
				Lng:       e.Location.Lng,
				Step:      e.Step,
				Time:      e.Time,
			})
		}
	}
	return nil
}

func (c *collector) transition(e events.StateChanged) error {
	req := e.Request
	terminal := req.Terminal()
	err := c.sink.RecordTransition(coremetrics.TransitionEvent{
		RequestID:   req.ID,
		ServiceType: req.Type.String(),
		From:        e.From.String(),
		To:          e.To.String(),
		Terminal:    terminal,
		Reason:      req.Reason,
		Lifetime:    e.Time.Sub(req.CreatedAt),
		Time:        e.Time,
	})
	if terminal {
		delete(c.active, req.ID)
	} else {
		c.active[req.ID] = struct{}{}
	}
	if r, ok := c.sink.(coremetrics.ActiveRequestsRecorder); ok {
		if aerr := r.RecordActiveRequests(len(c.active)); err == nil {
			err = aerr
		}
	}
	return err
}
