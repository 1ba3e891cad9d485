package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when the requester already has an active request.
	ErrConflict = errors.New("an active request already exists")
	// ErrNoTechnicianAvailable is returned when the eligible pool is empty.
	ErrNoTechnicianAvailable = errors.New("no technician available")
	// ErrStaleTransition marks a deferred action whose originating state changed.
	ErrStaleTransition = errors.New("stale transition")
	// ErrNotFound is returned for unknown request ids.
	ErrNotFound = errors.New("request not found")
	// ErrInvalidTransition is returned when an operation is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidServiceType is returned for unknown service categories.
	ErrInvalidServiceType = errors.New("invalid service type")
	// ErrInvalidQuote is returned for a manual quote that breaks the pricing rules.
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrNotAssigned is returned when a technician acts on a request assigned to someone else.
	ErrNotAssigned = errors.New("technician not assigned to request")
)

// TransientDependencyError wraps a failure of an external collaborator
// (directory, pricing, blacklist store).
type TransientDependencyError struct {
	Op  string
	Err error
}

func (e *TransientDependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientDependencyError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientDependencyError for op.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientDependencyError{Op: op, Err: err}
}

// IsTransient reports whether err stems from a failing collaborator.
func IsTransient(err error) bool {
	var te *TransientDependencyError
	return errors.As(err, &te)
}

// InvalidTransition builds an ErrInvalidTransition for op from status.
func InvalidTransition(op string, from Status) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, from)
}
