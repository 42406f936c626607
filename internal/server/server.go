package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/iwvelando/property-costs/internal/session"
	"github.com/iwvelando/property-costs/internal/view"
	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/input"
	"github.com/iwvelando/property-costs/pkg/loans"
	"github.com/iwvelando/property-costs/pkg/snapshot"
	"github.com/iwvelando/property-costs/pkg/tariff"
	"go.uber.org/zap"
)

// Dependencies are the calculator services the handler shares between
// sessions. Zero values fall back to canonical tariffs, no persistence and
// default initial states.
type Dependencies struct {
	Calculator *costs.Calculator
	Adapter    *snapshot.Adapter
	Persister  *snapshot.Persister
	// InitialState seeds a calculator that has no snapshot yet.
	InitialState func(listedPrice float64) costs.State
}

type handler struct {
	logger      *zap.Logger
	maxBodySize int64
	version     string
	deps        Dependencies

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry serialises edits to one session.
type entry struct {
	mu      sync.Mutex
	session *session.Session
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type calculateResponse struct {
	Breakdown costs.Breakdown   `json:"breakdown"`
	Summary   costs.LoanSummary `json:"summary"`
	Layout    view.Layout       `json:"layout"`
	Warnings  []string          `json:"warnings,omitempty"`
}

type sessionResponse struct {
	ID        string          `json:"id"`
	State     costs.State     `json:"state"`
	Breakdown costs.Breakdown `json:"breakdown"`
	Layout    view.Layout     `json:"layout"`
}

type scheduleResponse struct {
	ID       string              `json:"id"`
	Summary  costs.LoanSummary   `json:"summary"`
	Schedule []loans.YearSummary `json:"schedule"`
}

type updateResponse struct {
	session.Update
	// Layout is only sent when the visible sections changed.
	Layout *view.Layout `json:"layout,omitempty"`
}

// NewHandler constructs the HTTP handler that serves the calculator API.
func NewHandler(logger *zap.Logger, maxBodySize int64, version string, deps Dependencies) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	if deps.Calculator == nil {
		deps.Calculator = costs.NewCalculator(tariff.Default())
	}
	if deps.InitialState == nil {
		deps.InitialState = costs.SeededState
	}

	h := &handler{
		logger:      logger,
		maxBodySize: maxBodySize,
		version:     trimmedVersion,
		deps:        deps,
		sessions:    make(map[string]*entry),
	}

	r := chi.NewRouter()
	r.Post("/api/calculate", h.handleCalculate)
	r.Get("/api/version", h.handleVersion)

	r.Route("/api/sessions/{propertyID}", func(r chi.Router) {
		h.sessionRoutes(r, propertyKey)
	})

	r.Post("/api/standalone", h.handleNewStandalone)
	r.Route("/api/standalone/{sessionID}", func(r chi.Router) {
		h.sessionRoutes(r, standaloneKey)
	})

	return r
}

// keyFunc maps a request to a snapshot key, or "" when the path is invalid.
type keyFunc func(r *http.Request) (key, id string)

func propertyKey(r *http.Request) (string, string) {
	id := strings.TrimSpace(chi.URLParam(r, "propertyID"))
	key, err := snapshot.PropertyKey(id)
	if err != nil {
		return "", ""
	}
	return key, id
}

func standaloneKey(r *http.Request) (string, string) {
	id := chi.URLParam(r, "sessionID")
	if _, err := uuid.Parse(id); err != nil {
		return "", ""
	}
	return constants.StandaloneKeyPrefix + id, id
}

func (h *handler) sessionRoutes(r chi.Router, keyOf keyFunc) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		h.handleGetSession(w, r, keyOf)
	})
	r.Get("/schedule", func(w http.ResponseWriter, r *http.Request) {
		h.handleSchedule(w, r, keyOf)
	})
	r.Post("/fields", func(w http.ResponseWriter, r *http.Request) {
		h.handleField(w, r, keyOf)
	})
	r.Post("/sections/{name}", func(w http.ResponseWriter, r *http.Request) {
		h.handleSection(w, r, keyOf)
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"

	var state costs.State
	if !h.decodeBody(w, r, &state, op) {
		return
	}
	state = state.Normalize()

	breakdown, warnings := h.deps.Calculator.Evaluate(state)
	for _, warning := range warnings {
		h.logger.Warn("data quality: "+warning,
			zap.String("op", op),
		)
	}

	h.writeJSON(w, http.StatusOK, calculateResponse{
		Breakdown: breakdown,
		Summary:   h.deps.Calculator.Summarize(state),
		Layout:    view.Build(state, h.deps.Calculator),
		Warnings:  warnings,
	})
}

func (h *handler) handleNewStandalone(w http.ResponseWriter, r *http.Request) {
	key := snapshot.StandaloneKey()
	listedPrice := input.ParseAmount(r.URL.Query().Get("price"))

	e := h.open(r.Context(), key, listedPrice)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Save()

	h.writeJSON(w, http.StatusCreated, h.describe(strings.TrimPrefix(key, constants.StandaloneKeyPrefix), e.session))
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request, keyOf keyFunc) {
	key, id := keyOf(r)
	if key == "" {
		h.respondErrorWithOp(w, http.StatusNotFound, "unknown calculator", "server.handleGetSession")
		return
	}
	listedPrice := input.ParseAmount(r.URL.Query().Get("price"))

	e := h.open(r.Context(), key, listedPrice)
	e.mu.Lock()
	defer e.mu.Unlock()

	h.writeJSON(w, http.StatusOK, h.describe(id, e.session))
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request, keyOf keyFunc) {
	const op = "server.handleSchedule"

	key, id := keyOf(r)
	if key == "" {
		h.respondErrorWithOp(w, http.StatusNotFound, "unknown calculator", op)
		return
	}

	e := h.open(r.Context(), key, 0)
	e.mu.Lock()
	state := e.session.State()
	e.mu.Unlock()

	calc := e.session.Calculator()
	years, err := calc.RepaymentSchedule(state)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}
	if years == nil {
		years = []loans.YearSummary{}
	}

	h.writeJSON(w, http.StatusOK, scheduleResponse{
		ID:       id,
		Summary:  calc.Summarize(state),
		Schedule: years,
	})
}

func (h *handler) handleField(w http.ResponseWriter, r *http.Request, keyOf keyFunc) {
	const op = "server.handleField"

	key, _ := keyOf(r)
	if key == "" {
		h.respondErrorWithOp(w, http.StatusNotFound, "unknown calculator", op)
		return
	}

	var req fieldRequest
	if !h.decodeBody(w, r, &req, op) {
		return
	}

	e := h.open(r.Context(), key, 0)
	e.mu.Lock()
	defer e.mu.Unlock()

	update, err := e.session.Apply(req.Field, req.Value)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrUnknownField) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, h.buildUpdate(e.session, update))
}

func (h *handler) handleSection(w http.ResponseWriter, r *http.Request, keyOf keyFunc) {
	const op = "server.handleSection"

	key, _ := keyOf(r)
	if key == "" {
		h.respondErrorWithOp(w, http.StatusNotFound, "unknown calculator", op)
		return
	}
	name := chi.URLParam(r, "name")
	switch name {
	case constants.SectionProperty, constants.SectionBond, constants.SectionMonthly, constants.SectionOnceOff:
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("unknown section %q", name), op)
		return
	}

	e := h.open(r.Context(), key, 0)
	e.mu.Lock()
	defer e.mu.Unlock()

	h.writeJSON(w, http.StatusOK, h.buildUpdate(e.session, e.session.ToggleSection(name)))
}

// open returns the live session for key, restoring it from the snapshot
// store the first time it is requested.
func (h *handler) open(ctx context.Context, key string, listedPrice float64) *entry {
	h.mu.Lock()
	e, ok := h.sessions[key]
	h.mu.Unlock()
	if ok {
		return e
	}

	// Load outside the registry lock; a second check below keeps one entry per key.
	s := session.Open(ctx, h.deps.Adapter, key, h.deps.InitialState(listedPrice),
		session.WithLogger(h.logger),
		session.WithCalculator(h.deps.Calculator),
		session.WithPersister(h.deps.Persister),
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.sessions[key]; ok {
		return e
	}
	e = &entry{session: s}
	h.sessions[key] = e
	h.logger.Debug("opened calculator session",
		zap.String("op", "server.open"),
		zap.String("key", key),
		zap.Int("sessions", len(h.sessions)),
	)
	return e
}

func (h *handler) describe(id string, s *session.Session) sessionResponse {
	state := s.State()
	return sessionResponse{
		ID:        id,
		State:     state,
		Breakdown: s.Breakdown(),
		Layout:    view.Build(state, s.Calculator()),
	}
}

func (h *handler) buildUpdate(s *session.Session, update session.Update) updateResponse {
	resp := updateResponse{Update: update}
	if update.Structural {
		layout := view.Build(update.State, s.Calculator())
		resp.Layout = &layout
	}
	return resp
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("calculator request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
