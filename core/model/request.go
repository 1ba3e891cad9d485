package model

import (
	"fmt"
	"strings"
	"time"
)

// ServiceType identifies the kind of roadside assistance requested.
type ServiceType string

const (
	ServiceFlatTyre         ServiceType = "flat-tyre"
	ServiceOutOfFuel        ServiceType = "out-of-fuel"
	ServiceCarBattery       ServiceType = "car-battery"
	ServiceTowTruck         ServiceType = "tow-truck"
	ServiceEmergency        ServiceType = "emergency"
	ServiceOtherCarProblems ServiceType = "other-car-problems"
	ServiceSupport          ServiceType = "support"
)

// ServiceTypes lists every known service category.
var ServiceTypes = []ServiceType{
	ServiceFlatTyre,
	ServiceOutOfFuel,
	ServiceCarBattery,
	ServiceTowTruck,
	ServiceEmergency,
	ServiceOtherCarProblems,
	ServiceSupport,
}

// ParseServiceType normalizes s into a ServiceType. "other" is accepted as an
// alias for other-car-problems.
func ParseServiceType(s string) (ServiceType, error) {
	v := ServiceType(strings.ToLower(strings.TrimSpace(s)))
	if v == "other" {
		return ServiceOtherCarProblems, nil
	}
	for _, t := range ServiceTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidServiceType, s)
}

func (t ServiceType) String() string { return string(t) }

// Status is the lifecycle state of a ServiceRequest.
type Status string

const (
	StatusPending       Status = "pending"
	StatusQuoteReceived Status = "quote_received"
	StatusAccepted      Status = "accepted"
	StatusDeclined      Status = "declined"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

func (s Status) String() string { return string(s) }

// ServiceRequest is one requester's service ticket.
type ServiceRequest struct {
	ID          string      `json:"id"`
	RequesterID string      `json:"requester_id"`
	Type        ServiceType `json:"type"`
	Location    Coordinate  `json:"location"`
	Status      Status      `json:"status"`
	Quote       *float64    `json:"quote,omitempty"`
	Technician  *Technician `json:"technician,omitempty"`
	// Reason is set when the request ended declined without a technician.
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether no further transition can happen.
func (r ServiceRequest) Terminal() bool {
	switch r.Status {
	case StatusCompleted, StatusCancelled:
		return true
	case StatusDeclined:
		return r.Reason != ""
	}
	return false
}

// Active reports whether the request still occupies its requester's slot.
// A declined request waiting for a revision or a rematch is still active.
func (r ServiceRequest) Active() bool { return !r.Terminal() }

// TechnicianID returns the assigned technician id or "".
func (r ServiceRequest) TechnicianID() string {
	if r.Technician == nil {
		return ""
	}
	return r.Technician.ID
}

// Clone returns a deep copy safe to hand out of the engine.
func (r ServiceRequest) Clone() ServiceRequest {
	c := r
	if r.Quote != nil {
		q := *r.Quote
		c.Quote = &q
	}
	if r.Technician != nil {
		t := r.Technician.Clone()
		c.Technician = &t
	}
	return c
}
