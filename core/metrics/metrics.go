package metrics

import "time"

// TransitionEvent is one accepted lifecycle transition.
type TransitionEvent struct {
	RequestID   string
	ServiceType string
	From        string
	To          string
	// Terminal is set when the request can no longer change.
	Terminal bool
	Reason   string
	// Lifetime is the age of the request at the time of the transition.
	Lifetime time.Duration
	Time     time.Time
}

// MetricsSink records request transitions.
type MetricsSink interface {
	RecordTransition(ev TransitionEvent) error
}

// QuoteEvent is a quote applied to a request.
type QuoteEvent struct {
	RequestID    string
	ServiceType  string
	TechnicianID string
	Amount       float64
	Revised      bool
	Time         time.Time
}

// QuoteRecorder records quotes.
type QuoteRecorder interface {
	RecordQuote(ev QuoteEvent) error
}

// BlacklistEvent is a technician excluded from a request.
type BlacklistEvent struct {
	RequestID    string
	TechnicianID string
	Time         time.Time
}

// BlacklistRecorder records exclusions.
type BlacklistRecorder interface {
	RecordBlacklist(ev BlacklistEvent) error
}

// LocationEvent is an interpolated technician position.
type LocationEvent struct {
	RequestID string
	Lat       float64
	Lng       float64
	Step      int
	Time      time.Time
}

// LocationRecorder records technician positions.
type LocationRecorder interface {
	RecordLocation(ev LocationEvent) error
}

// ActiveRequestsRecorder records the number of non-terminal requests.
type ActiveRequestsRecorder interface {
	RecordActiveRequests(n int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTransition(TransitionEvent) error { return nil }
func (NopSink) RecordQuote(QuoteEvent) error           { return nil }
func (NopSink) RecordBlacklist(BlacklistEvent) error   { return nil }
func (NopSink) RecordLocation(LocationEvent) error     { return nil }
func (NopSink) RecordActiveRequests(int) error         { return nil }
