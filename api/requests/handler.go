// Package requests exposes the request engine over HTTP.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/core/logger"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/infra/journal"
)

const (
	// RequesterHeader identifies the caller on requester-side routes.
	RequesterHeader = "X-Requester-ID"
	// TechnicianHeader identifies the technician entering a quote.
	TechnicianHeader = "X-Technician-ID"
)

// Engine is the subset of lifecycle.Engine served by the API.
type Engine interface {
	Create(ctx context.Context, requesterID string, st model.ServiceType, loc model.Coordinate) (model.ServiceRequest, error)
	Get(id string) (model.ServiceRequest, error)
	Active(requesterID string) (model.ServiceRequest, bool)
	Progress(id string) (model.DispatchProgress, bool)
	Blacklist(id string) ([]string, error)
	ApplyQuote(ctx context.Context, id, technicianID string, amount float64) (model.ServiceRequest, error)
	Accept(ctx context.Context, id string) (model.ServiceRequest, error)
	Decline(ctx context.Context, id string) (model.ServiceRequest, error)
	Cancel(ctx context.Context, id string) (model.ServiceRequest, error)
}

// Subscriber is the part of the event bus used by the live stream.
type Subscriber interface {
	SubscribeFiltered(func(events.Event) bool) <-chan events.Event
	Unsubscribe(<-chan events.Event)
}

// History answers journal queries.
type History interface {
	Query(ctx context.Context, q journal.Query) ([]journal.Record, error)
}

// Options holds the optional parts of the API. Token, when set, must be
// presented as a bearer token on every route except /healthz and /metrics.
type Options struct {
	Token   string
	Bus     Subscriber
	History History
	Metrics http.Handler
	Logger  logger.Logger
}

type handler struct {
	eng Engine
	opt Options
	log logger.Logger
}

// NewRouter builds the API routes.
func NewRouter(eng Engine, opt Options) *mux.Router {
	h := &handler{eng: eng, opt: opt, log: logger.OrNop(opt.Logger)}
	r := mux.NewRouter()
	r.Use(h.recoverMiddleware, h.logMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authMiddleware)
	api.HandleFunc("/requests", h.create).Methods(http.MethodPost)
	api.HandleFunc("/requests/active", h.active).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/accept", h.owned(h.eng.Accept)).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/decline", h.owned(h.eng.Decline)).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/cancel", h.owned(h.eng.Cancel)).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/quote", h.quote).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/events", h.events).Methods(http.MethodGet)
	return r
}

type createBody struct {
	Type     string           `json:"type"`
	Location model.Coordinate `json:"location"`
}

type quoteBody struct {
	Amount float64 `json:"amount"`
}

// View is the JSON representation of a request.
type View struct {
	model.ServiceRequest
	Blacklist []string                `json:"blacklist,omitempty"`
	Progress  *model.DispatchProgress `json:"progress,omitempty"`
}

func (h *handler) view(req model.ServiceRequest) View {
	v := View{ServiceRequest: req}
	if ids, err := h.eng.Blacklist(req.ID); err == nil && len(ids) > 0 {
		v.Blacklist = ids
	}
	if p, ok := h.eng.Progress(req.ID); ok {
		v.Progress = &p
	}
	return v
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get(RequesterHeader)
	if requester == "" {
		writeError(w, http.StatusBadRequest, "missing "+RequesterHeader)
		return
	}
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := h.eng.Create(r.Context(), requester, model.ServiceType(body.Type), body.Location)
	if err != nil {
		h.fail(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(req))
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.eng.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.view(req))
}

func (h *handler) active(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get(RequesterHeader)
	if requester == "" {
		writeError(w, http.StatusBadRequest, "missing "+RequesterHeader)
		return
	}
	req, ok := h.eng.Active(requester)
	if !ok {
		writeError(w, http.StatusNotFound, "no active request")
		return
	}
	writeJSON(w, http.StatusOK, h.view(req))
}

// owned runs a requester action after checking the caller owns the request.
func (h *handler) owned(action func(context.Context, string) (model.ServiceRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		req, err := h.eng.Get(id)
		if err != nil {
			h.fail(w, err, http.StatusInternalServerError)
			return
		}
		if req.RequesterID != r.Header.Get(RequesterHeader) {
			writeError(w, http.StatusForbidden, "request belongs to another requester")
			return
		}
		req, err = action(r.Context(), id)
		if err != nil {
			h.fail(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, h.view(req))
	}
}

// quote lets the assigned technician price the request.
func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	technician := r.Header.Get(TechnicianHeader)
	if technician == "" {
		writeError(w, http.StatusBadRequest, "missing "+TechnicianHeader)
		return
	}
	var body quoteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := h.eng.ApplyQuote(r.Context(), mux.Vars(r)["id"], technician, body.Amount)
	if err != nil {
		h.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.view(req))
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	if h.opt.History == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	q := journal.Query{RequestID: mux.Vars(r)["id"], Kind: r.URL.Query().Get("kind")}
	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	recs, err := h.opt.History.Query(r.Context(), q)
	if err != nil {
		h.fail(w, err, http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// fail maps engine errors to status codes; unknown errors get fallback.
func (h *handler) fail(w http.ResponseWriter, err error, fallback int) {
	status := fallback
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidServiceType), errors.Is(err, model.ErrInvalidQuote):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotAssigned):
		status = http.StatusForbidden
	}
	if status >= http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
