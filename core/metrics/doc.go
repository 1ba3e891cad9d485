// Package metrics defines the sinks that record request lifecycle metrics.
// Every sink implements MetricsSink; richer sinks opt into the recorder
// interfaces (QuoteRecorder, BlacklistRecorder, LocationRecorder,
// ActiveRequestsRecorder) which callers discover by type assertion.
// NewMetricsSink returns a MultiSink automatically when several sinks are
// configured.
package metrics
