// Package notify emits user-visible messages produced by the engine.
package notify

import (
	"context"
	"errors"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeRequestSent   Type = "request_sent"
	TypeConflict      Type = "conflict"
	TypeQuoteReceived Type = "quote_received"
	TypeQuoteDeclined Type = "quote_declined"
	TypeRematching    Type = "rematching"
	TypeNoTechnician  Type = "no_technician"
	TypeAccepted      Type = "accepted"
	TypeCancelled     Type = "cancelled"
	TypeCompleted     Type = "completed"
)

// Notification is a short titled message for a requester.
type Notification struct {
	Type        Type      `json:"type"`
	RequestID   string    `json:"request_id"`
	RequesterID string    `json:"requester_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Time        time.Time `json:"time"`
}

// Notifier delivers notifications. Implementations may block; the engine
// calls them off its critical path and only logs failures.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
