package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/lifecycle"
	"github.com/kilianp07/roadside/core/matcher"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/negotiation"
	"github.com/kilianp07/roadside/core/pricing"
	"github.com/kilianp07/roadside/core/rng"
	"github.com/kilianp07/roadside/infra/journal"
	"github.com/kilianp07/roadside/internal/eventbus"
)

type env struct {
	clk *clock.Manual
	eng *lifecycle.Engine
	bus *eventbus.TypedBus[events.Event]
	srv *httptest.Server
}

func newEnv(t *testing.T, opt Options) *env {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rnd := rng.NewScripted(0.5)
	table, err := pricing.NewStaticTable(nil, pricing.DefaultPrice)
	require.NoError(t, err)
	neg, err := negotiation.New(table, rnd, pricing.Config{}, nil)
	require.NoError(t, err)
	m, err := matcher.New(directory.Static{{ID: "t1", Name: "Georgi"}, {ID: "t2", Name: "Elena"}}, rnd, nil)
	require.NoError(t, err)
	bus := eventbus.New()
	eng, err := lifecycle.New(lifecycle.Config{ETASeconds: 10}, lifecycle.Deps{
		Matcher:    m,
		Negotiator: neg,
		Scheduler:  clock.NewScheduler(clk),
		Bus:        bus,
		Rand:       rnd,
	})
	require.NoError(t, err)
	if opt.Bus == nil {
		opt.Bus = bus
	}
	srv := httptest.NewServer(NewRouter(eng, opt))
	t.Cleanup(func() {
		srv.Close()
		_ = eng.Close()
		bus.Close()
	})
	return &env{clk: clk, eng: eng, bus: bus, srv: srv}
}

func (e *env) do(t *testing.T, method, path, requester string, body any) (*http.Response, View) {
	t.Helper()
	h := http.Header{}
	if requester != "" {
		h.Set(RequesterHeader, requester)
	}
	return e.send(t, method, path, h, body)
}

func (e *env) quote(t *testing.T, id, technician string, amount float64) (*http.Response, View) {
	t.Helper()
	h := http.Header{}
	if technician != "" {
		h.Set(TechnicianHeader, technician)
	}
	return e.send(t, http.MethodPost, "/api/requests/"+id+"/quote", h, map[string]any{"amount": amount})
}

func (e *env) send(t *testing.T, method, path string, h http.Header, body any) (*http.Response, View) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	for k, vs := range h {
		req.Header[k] = vs
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var v View
	if resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	}
	return resp, v
}

var sofia = map[string]any{"lat": 42.6977, "lng": 23.3219}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t, Options{})

	resp, v := e.do(t, http.MethodPost, "/api/requests", "u1", map[string]any{"type": "flat-tyre", "location": sofia})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.StatusPending, v.Status)
	assert.Equal(t, "t2", v.TechnicianID())
	id := v.ID

	resp, _ = e.do(t, http.MethodPost, "/api/requests", "u1", map[string]any{"type": "tow-truck", "location": sofia})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/requests/"+id+"/accept", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "no quote yet")

	e.clk.Advance(4 * time.Second)
	resp, v = e.do(t, http.MethodGet, "/api/requests/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusQuoteReceived, v.Status)
	require.NotNil(t, v.Quote)
	assert.InDelta(t, 40.0, *v.Quote, 1e-9)

	resp, _ = e.do(t, http.MethodPost, "/api/requests/"+id+"/accept", "u2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, v = e.do(t, http.MethodPost, "/api/requests/"+id+"/accept", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusAccepted, v.Status)
	require.NotNil(t, v.Progress)
	assert.Equal(t, 10, v.Progress.RemainingETA)

	resp, v = e.do(t, http.MethodGet, "/api/requests/active", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, v.ID)

	resp, v = e.do(t, http.MethodPost, "/api/requests/"+id+"/cancel", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusCancelled, v.Status)
	assert.Nil(t, v.Progress)

	resp, _ = e.do(t, http.MethodGet, "/api/requests/active", "u1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeclineAndManualQuote(t *testing.T) {
	e := newEnv(t, Options{})
	_, v := e.do(t, http.MethodPost, "/api/requests", "u1", map[string]any{"type": "car-battery", "location": sofia})
	id := v.ID

	require.Equal(t, "t2", v.TechnicianID())

	resp, v := e.quote(t, id, "t2", 55.5)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 55.5, *v.Quote, 1e-9)

	resp, v = e.do(t, http.MethodPost, "/api/requests/"+id+"/decline", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusDeclined, v.Status)

	resp, _ = e.quote(t, id, "t2", -1)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.quote(t, id, "t2", 60)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "revision above the declined quote")

	resp, v = e.quote(t, id, "t2", 44.4)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusQuoteReceived, v.Status)
	assert.InDelta(t, 44.4, *v.Quote, 1e-9)
}

func TestManualQuoteRejected(t *testing.T) {
	e := newEnv(t, Options{})
	_, v := e.do(t, http.MethodPost, "/api/requests", "u1", map[string]any{"type": "flat-tyre", "location": sofia})
	id := v.ID

	cases := []struct {
		name       string
		technician string
		amount     float64
		status     int
	}{
		{"below floor", "t2", 12.5, http.StatusBadRequest},
		{"zero", "t2", 0, http.StatusBadRequest},
		{"other technician", "t1", 45, http.StatusForbidden},
		{"no technician", "", 45, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, _ := e.quote(t, id, c.technician, c.amount)
			assert.Equal(t, c.status, resp.StatusCode)
		})
	}
	resp, v := e.do(t, http.MethodGet, "/api/requests/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusPending, v.Status)
	assert.Nil(t, v.Quote)
}

func TestBadInput(t *testing.T) {
	e := newEnv(t, Options{})
	cases := []struct {
		name      string
		requester string
		body      any
	}{
		{"no requester", "", map[string]any{"type": "flat-tyre", "location": sofia}},
		{"unknown type", "u1", map[string]any{"type": "spaceship", "location": sofia}},
		{"bad location", "u1", map[string]any{"type": "flat-tyre", "location": map[string]any{"lat": 123, "lng": 0}}},
		{"not json", "u1", "{"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, _ := e.do(t, http.MethodPost, "/api/requests", c.requester, c.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	resp, _ := e.do(t, http.MethodGet, "/api/requests/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	e := newEnv(t, Options{Token: "secret"})

	resp, err := http.Get(e.srv.URL + "/api/requests/x")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/requests/x", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("roadside_active_requests 0")) })
	e := newEnv(t, Options{Token: "secret", Metrics: metrics})
	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakeHistory struct {
	got journal.Query
	err error
}

func (f *fakeHistory) Query(_ context.Context, q journal.Query) ([]journal.Record, error) {
	f.got = q
	return []journal.Record{{Kind: events.KindStateChanged, RequestID: q.RequestID}}, f.err
}

func TestHistory(t *testing.T) {
	h := &fakeHistory{}
	e := newEnv(t, Options{History: h})
	resp, err := http.Get(e.srv.URL + "/api/requests/r1/history?kind=request.state_changed&start=2026-03-01T09:00:00Z")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recs []journal.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", h.got.RequestID)
	assert.Equal(t, events.KindStateChanged, h.got.Kind)
	assert.False(t, h.got.Start.IsZero())

	h.err = errors.New("disk gone")
	resp2, err := http.Get(e.srv.URL + "/api/requests/r1/history")
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp2.StatusCode)
}

func TestEventStream(t *testing.T) {
	e := newEnv(t, Options{})
	_, v := e.do(t, http.MethodPost, "/api/requests", "u1", map[string]any{"type": "flat-tyre", "location": sofia})

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/requests/" + v.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var f struct {
		Kind  string          `json:"kind"`
		Event json.RawMessage `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "snapshot", f.Kind)

	e.clk.Advance(4 * time.Second)
	for {
		require.NoError(t, conn.ReadJSON(&f))
		if f.Kind == events.KindQuoteReceived {
			break
		}
	}
	var q events.QuoteReceived
	require.NoError(t, json.Unmarshal(f.Event, &q))
	assert.Equal(t, v.ID, q.RequestID)
	assert.InDelta(t, 40.0, q.Amount, 1e-9)
}
