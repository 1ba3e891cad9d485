package events

import (
	"time"

	"github.com/kilianp07/roadside/core/model"
)

// Event is implemented by every type published on the bus.
type Event interface {
	// Kind is a stable identifier used by sinks and the journal.
	Kind() string
	// Subject is the request id the event belongs to.
	Subject() string
}

const (
	KindStateChanged          = "request.state_changed"
	KindQuoteReceived         = "request.quote_received"
	KindTechnicianBlacklisted = "request.technician_blacklisted"
	KindETAUpdated            = "dispatch.eta_updated"
	KindLocationUpdated       = "dispatch.location_updated"
	KindNotification          = "notification"
)

// StateChanged is published after every accepted transition.
type StateChanged struct {
	Request model.ServiceRequest `json:"request"`
	From    model.Status         `json:"from"`
	To      model.Status         `json:"to"`
	Time    time.Time            `json:"time"`
}

func (StateChanged) Kind() string      { return KindStateChanged }
func (e StateChanged) Subject() string { return e.Request.ID }

// QuoteReceived is published when a quote is applied to a request.
type QuoteReceived struct {
	RequestID   string            `json:"request_id"`
	ServiceType model.ServiceType `json:"service_type"`
	Technician  model.Technician  `json:"technician"`
	Amount      float64           `json:"amount"`
	Revised     bool              `json:"revised"`
	Time        time.Time         `json:"time"`
}

func (QuoteReceived) Kind() string      { return KindQuoteReceived }
func (e QuoteReceived) Subject() string { return e.RequestID }

// TechnicianBlacklisted is published on the second decline against a technician.
type TechnicianBlacklisted struct {
	RequestID    string    `json:"request_id"`
	TechnicianID string    `json:"technician_id"`
	Time         time.Time `json:"time"`
}

func (TechnicianBlacklisted) Kind() string      { return KindTechnicianBlacklisted }
func (e TechnicianBlacklisted) Subject() string { return e.RequestID }
