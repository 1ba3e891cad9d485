package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/roadside/core/metrics"
)

// PromSink records request lifecycle metrics in Prometheus collectors.
type PromSink struct {
	transitions *prometheus.CounterVec
	lifetime    *prometheus.HistogramVec
	quotes      *prometheus.HistogramVec
	blacklisted prometheus.Counter
	active      prometheus.Gauge
}

// NewPromSink registers the collectors on the default Prometheus registerer.
// The /metrics endpoint is served by the HTTP API.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the collectors on reg. Collectors that
// are already registered are reused, so several sinks may share a registry.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	transitions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roadside_request_transitions_total",
		Help: "Lifecycle transitions by origin and target status",
	}, []string{"service_type", "from", "to"}))
	if err != nil {
		return nil, err
	}
	lifetime, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roadside_request_lifetime_seconds",
		Help:    "Time from creation to a terminal status",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"service_type", "status"}))
	if err != nil {
		return nil, err
	}
	quotes, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roadside_quote_amount",
		Help:    "Quoted amounts applied to requests",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	}, []string{"service_type", "revised"}))
	if err != nil {
		return nil, err
	}
	blacklisted, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roadside_technicians_blacklisted_total",
		Help: "Technicians excluded from a request after a second decline",
	}))
	if err != nil {
		return nil, err
	}
	active, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roadside_active_requests",
		Help: "Requests that have not reached a terminal status",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{
		transitions: transitions,
		lifetime:    lifetime,
		quotes:      quotes,
		blacklisted: blacklisted,
		active:      active,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTransition counts the transition and observes the lifetime of
// requests that just became terminal.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.ServiceType, ev.From, ev.To).Inc()
	if ev.Terminal {
		s.lifetime.WithLabelValues(ev.ServiceType, ev.To).Observe(ev.Lifetime.Seconds())
	}
	return nil
}

func (s *PromSink) RecordQuote(ev coremetrics.QuoteEvent) error {
	s.quotes.WithLabelValues(ev.ServiceType, strconv.FormatBool(ev.Revised)).Observe(ev.Amount)
	return nil
}

func (s *PromSink) RecordBlacklist(coremetrics.BlacklistEvent) error {
	s.blacklisted.Inc()
	return nil
}

// RecordActiveRequests sets the gauge.
func (s *PromSink) RecordActiveRequests(n int) error {
	s.active.Set(float64(n))
	return nil
}
