package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/lifecycle"
	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/matcher"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/negotiation"
	"github.com/kilianp07/roadside/core/pricing"
	"github.com/kilianp07/roadside/core/rng"
)

// Start is the manual clock origin of every run.
var Start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Options tune a run. Out, when set, receives one line per engine event.
type Options struct {
	Out    io.Writer
	Logger logger.Logger
	// Publisher also receives every event, e.g. a live event bus.
	Publisher lifecycle.Publisher
}

// Report is the outcome of a run.
type Report struct {
	Name     string
	Request  model.ServiceRequest
	Events   map[string]int
	Failures []string
}

func (r *Report) Passed() bool { return len(r.Failures) == 0 }

func (r *Report) failf(step int, format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf("step %d: ", step)+fmt.Sprintf(format, args...))
}

// recorder counts events by kind and optionally prints them.
type recorder struct {
	mu     sync.Mutex
	clk    clock.Clock
	counts map[string]int
	out    io.Writer
	next   lifecycle.Publisher
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	r.counts[ev.Kind()]++
	if r.out != nil {
		body, _ := json.Marshal(ev)
		_, _ = fmt.Fprintf(r.out, "+%-6s %-32s %s\n", r.clk.Now().Sub(Start), ev.Kind(), body)
	}
	r.mu.Unlock()
	if r.next != nil {
		r.next.Publish(ev)
	}
}

func (r *recorder) snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Run plays sc against a fresh engine on a manual clock. Failed
// expectations are collected in the report; the error is reserved for
// engines that cannot be built.
func Run(ctx context.Context, sc *Scenario, opt Options) (*Report, error) {
	clk := clock.NewManual(Start)
	sched := clock.NewScheduler(clk)
	rnd := rng.NewScripted(sc.Draws...)
	table, err := pricing.NewStaticTable(nil, pricing.DefaultPrice)
	if err != nil {
		return nil, err
	}
	neg, err := negotiation.New(table, rnd, pricing.Config{}, opt.Logger)
	if err != nil {
		return nil, err
	}
	m, err := matcher.New(directory.Static(sc.Technicians), rnd, opt.Logger)
	if err != nil {
		return nil, err
	}
	rec := &recorder{clk: clk, counts: map[string]int{}, out: opt.Out, next: opt.Publisher}
	seq := 0
	eng, err := lifecycle.New(lifecycle.Config{ETASeconds: sc.ETASeconds}, lifecycle.Deps{
		Matcher:    m,
		Negotiator: neg,
		Scheduler:  sched,
		Blacklist:  blacklist.NewMemory(),
		Bus:        rec,
		Rand:       rnd,
		Logger:     opt.Logger,
		NewID: func() string {
			seq++
			return fmt.Sprintf("%s-%d", slug(sc.Name), seq)
		},
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = eng.Close() }()

	rep := &Report{Name: sc.Name}
	current := ""
	for i, st := range sc.Steps {
		n := i + 1
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		var actErr error
		switch {
		case st.Create != nil:
			var req model.ServiceRequest
			req, actErr = eng.Create(ctx, st.Create.Requester, model.ServiceType(st.Create.Type), st.Create.Location)
			if actErr == nil {
				current = req.ID
			}
		case st.Advance > 0:
			clk.Advance(st.Advance)
		case st.Quote != 0:
			// Quotes are entered by whoever is assigned at this point.
			var req model.ServiceRequest
			if req, actErr = eng.Get(current); actErr == nil {
				_, actErr = eng.ApplyQuote(ctx, current, req.TechnicianID(), st.Quote)
			}
		case st.Accept:
			_, actErr = eng.Accept(ctx, current)
		case st.Decline:
			_, actErr = eng.Decline(ctx, current)
		case st.Cancel:
			_, actErr = eng.Cancel(ctx, current)
		}
		checkError(rep, n, st.Error, actErr)
		if st.Expect != nil {
			check(rep, n, eng, current, *st.Expect, rec.snapshot())
		}
	}
	if current != "" {
		rep.Request, _ = eng.Get(current)
	}
	rep.Events = rec.snapshot()
	return rep, nil
}

func checkError(rep *Report, n int, want string, got error) {
	switch {
	case want == "" && got != nil:
		rep.failf(n, "unexpected error: %v", got)
	case want != "" && got == nil:
		rep.failf(n, "expected error containing %q", want)
	case want != "" && !strings.Contains(got.Error(), want):
		rep.failf(n, "error %q does not contain %q", got, want)
	}
}

func check(rep *Report, n int, eng *lifecycle.Engine, id string, exp Expect, counts map[string]int) {
	req, err := eng.Get(id)
	if err != nil {
		rep.failf(n, "get %q: %v", id, err)
		return
	}
	if exp.Status != "" && string(req.Status) != exp.Status {
		rep.failf(n, "status %s, want %s", req.Status, exp.Status)
	}
	if exp.Technician != "" && req.TechnicianID() != exp.Technician {
		rep.failf(n, "technician %q, want %q", req.TechnicianID(), exp.Technician)
	}
	if exp.Quote != nil {
		switch {
		case req.Quote == nil:
			rep.failf(n, "no quote, want %.2f", *exp.Quote)
		case math.Abs(*req.Quote-*exp.Quote) > 0.005:
			rep.failf(n, "quote %.2f, want %.2f", *req.Quote, *exp.Quote)
		}
	}
	if exp.Reason != "" && req.Reason != exp.Reason {
		rep.failf(n, "reason %q, want %q", req.Reason, exp.Reason)
	}
	if exp.Blacklisted != nil {
		got, err := eng.Blacklist(id)
		if err != nil {
			rep.failf(n, "blacklist: %v", err)
		} else {
			got = append([]string(nil), got...)
			want := append([]string(nil), exp.Blacklisted...)
			sort.Strings(got)
			sort.Strings(want)
			if strings.Join(got, ",") != strings.Join(want, ",") {
				rep.failf(n, "blacklist %v, want %v", got, want)
			}
		}
	}
	if exp.Active != nil && req.Active() != *exp.Active {
		rep.failf(n, "active %t, want %t", req.Active(), *exp.Active)
	}
	for kind, want := range exp.Events {
		if counts[kind] != want {
			rep.failf(n, "%d %s events, want %d", counts[kind], kind, want)
		}
	}
}

func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	if s == "" {
		return "scenario"
	}
	return s
}
