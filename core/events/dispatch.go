package events

import (
	"time"

	"github.com/kilianp07/roadside/core/model"
)

// ETAUpdated carries the remaining countdown of an accepted request.
type ETAUpdated struct {
	RequestID        string    `json:"request_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Time             time.Time `json:"time"`
}

func (ETAUpdated) Kind() string      { return KindETAUpdated }
func (e ETAUpdated) Subject() string { return e.RequestID }

// LocationUpdated carries the interpolated technician position.
type LocationUpdated struct {
	RequestID  string           `json:"request_id"`
	Location   model.Coordinate `json:"location"`
	Step       int              `json:"step"`
	TotalSteps float64          `json:"total_steps"`
	Time       time.Time        `json:"time"`
}

func (LocationUpdated) Kind() string      { return KindLocationUpdated }
func (e LocationUpdated) Subject() string { return e.RequestID }

// Notification mirrors a user-visible message sent through the notifiers.
type Notification struct {
	RequestID   string    `json:"request_id"`
	RequesterID string    `json:"requester_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Time        time.Time `json:"time"`
}

func (Notification) Kind() string      { return KindNotification }
func (e Notification) Subject() string { return e.RequestID }
