package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/roadside/api/requests"
	_ "github.com/kilianp07/roadside/app/plugins"
	"github.com/kilianp07/roadside/config"
	"github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/lifecycle"
	"github.com/kilianp07/roadside/core/matcher"
	coremetrics "github.com/kilianp07/roadside/core/metrics"
	"github.com/kilianp07/roadside/core/negotiation"
	"github.com/kilianp07/roadside/core/notify"
	"github.com/kilianp07/roadside/core/pricing"
	"github.com/kilianp07/roadside/core/rng"
	"github.com/kilianp07/roadside/infra/journal"
	"github.com/kilianp07/roadside/infra/logger"
	"github.com/kilianp07/roadside/infra/metrics"
	"github.com/kilianp07/roadside/internal/eventbus"
)

// Service wires the request engine to its backends and the HTTP API.
type Service struct {
	Engine *lifecycle.Engine

	cfg     *config.Config
	bus     *eventbus.TypedBus[events.Event]
	sink    coremetrics.MetricsSink
	journal *journal.Journal
	handler http.Handler
	closers []io.Closer
	log     logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	s := &Service{cfg: cfg, bus: eventbus.New(), log: logg}
	if err := s.build(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build() error {
	cfg := s.cfg
	clk := clock.Real()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rng.New(seed)

	src, err := directory.New(cfg.Directory.ModuleConfig)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	dir := directory.NewCached(src, cfg.Directory.Cache, clk, logger.New("directory"))
	m, err := matcher.New(dir, rnd, logger.New("matcher"))
	if err != nil {
		return fmt.Errorf("matcher: %w", err)
	}
	table, err := pricing.NewStaticTable(cfg.Pricing.BasePrices, cfg.Pricing.Default)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	neg, err := negotiation.New(table, rnd, cfg.Pricing, logger.New("negotiation"))
	if err != nil {
		return fmt.Errorf("negotiation: %w", err)
	}

	store, err := blacklist.New(cfg.Blacklist)
	if err != nil {
		return fmt.Errorf("blacklist store: %w", err)
	}
	s.track(store)
	notifier, err := notify.New(cfg.Notifiers)
	if err != nil {
		return fmt.Errorf("notifiers: %w", err)
	}
	s.track(notifier)
	s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	s.track(s.sink)
	if cfg.Journal.Path != "" {
		s.journal, err = journal.New(cfg.Journal)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		s.track(s.journal)
	}

	s.Engine, err = lifecycle.New(cfg.Engine, lifecycle.Deps{
		Matcher:    m,
		Negotiator: neg,
		Scheduler:  clock.NewScheduler(clk),
		Blacklist:  store,
		Notifier:   notifier,
		Bus:        s.bus,
		Rand:       rnd,
		Logger:     logger.New("engine"),
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	opt := requests.Options{Token: cfg.HTTP.Token, Bus: s.bus, Logger: logger.New("http")}
	if s.journal != nil {
		opt.History = s.journal
	}
	if prometheusEnabled(cfg) {
		opt.Metrics = promhttp.Handler()
	}
	s.handler = requests.NewRouter(s.Engine, opt)
	return nil
}

func (s *Service) track(v any) {
	if c, ok := v.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	if multi, ok := v.(notify.Multi); ok {
		for _, n := range multi {
			s.track(n)
		}
	}
	if multi, ok := v.(*coremetrics.MultiSink); ok {
		for _, sink := range multi.Sinks {
			s.track(sink)
		}
	}
}

func prometheusEnabled(cfg *config.Config) bool {
	for _, c := range cfg.Metrics.Sinks {
		if c.Type == "prometheus" {
			return true
		}
	}
	return false
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts the event consumers and serves the API until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTP.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.journal != nil {
		s.journal.Start(ctx, s.bus)
	}
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: s.cfg.HTTP.ReadTimeout}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Infof("serving requests on %s", ln.Addr())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("http shutdown: %v", err)
	}
	return nil
}

// Close stops the engine, then the bus consumers, then the backends.
func (s *Service) Close() error {
	var errs []error
	if s.Engine != nil {
		errs = append(errs, s.Engine.Close())
	}
	s.bus.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
