package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/roadside/core/metrics"
	"github.com/kilianp07/roadside/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes request events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTransition writes one request_transition point.
func (s *InfluxSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	p := write.NewPointWithMeasurement("request_transition").
		AddTag("request_id", ev.RequestID).
		AddTag("service_type", ev.ServiceType).
		AddTag("from", ev.From).
		AddTag("to", ev.To).
		AddTag("terminal", strconv.FormatBool(ev.Terminal)).
		AddField("lifetime_s", round3(ev.Lifetime.Seconds()))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordQuote(ev coremetrics.QuoteEvent) error {
	p := write.NewPointWithMeasurement("quote").
		AddTag("request_id", ev.RequestID).
		AddTag("service_type", ev.ServiceType).
		AddTag("technician_id", ev.TechnicianID).
		AddTag("revised", strconv.FormatBool(ev.Revised)).
		AddField("amount", round3(ev.Amount)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordBlacklist(ev coremetrics.BlacklistEvent) error {
	p := write.NewPointWithMeasurement("technician_blacklisted").
		AddTag("request_id", ev.RequestID).
		AddTag("technician_id", ev.TechnicianID).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordLocation writes the interpolated technician position.
func (s *InfluxSink) RecordLocation(ev coremetrics.LocationEvent) error {
	p := write.NewPointWithMeasurement("technician_location").
		AddTag("request_id", ev.RequestID).
		AddField("lat", ev.Lat).
		AddField("lng", ev.Lng).
		AddField("step", ev.Step).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
