package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTransition forwards to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTransition(ev TransitionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransition(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordQuote forwards quotes to sinks that support them.
func (m *MultiSink) RecordQuote(ev QuoteEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(QuoteRecorder); ok {
			if err := r.RecordQuote(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBlacklist forwards exclusions.
func (m *MultiSink) RecordBlacklist(ev BlacklistEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(BlacklistRecorder); ok {
			if err := r.RecordBlacklist(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordLocation forwards positions.
func (m *MultiSink) RecordLocation(ev LocationEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(LocationRecorder); ok {
			if err := r.RecordLocation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordActiveRequests forwards the active request count.
func (m *MultiSink) RecordActiveRequests(n int) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ActiveRequestsRecorder); ok {
			if err := r.RecordActiveRequests(n); err != nil {
				return err
			}
		}
	}
	return nil
}
