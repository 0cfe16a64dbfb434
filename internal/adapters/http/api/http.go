// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/skanlab/internal/catalog"
	"github.com/okian/skanlab/internal/domain/session"
	"github.com/okian/skanlab/internal/domain/types"
	"github.com/okian/skanlab/pkg/logger"
	"github.com/okian/skanlab/pkg/metrics"
)

// Simulator scores conversion simulations.
type Simulator interface {
	Simulate(ctx context.Context, events []string, revenue float64) types.Outcome
}

// ContentProvider exposes the educational catalog.
type ContentProvider interface {
	Sample(ctx context.Context, typ string) (catalog.CodeSample, bool)
	CampaignLimits(ctx context.Context, network string) (string, catalog.Limits, bool)
	// ProtectedScript returns the already obfuscated browser script.
	ProtectedScript(ctx context.Context) (string, error)
}

// Authorizer validates session tokens.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (session.Claims, error)
}

// SessionRevoker ends sessions before they expire.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, key string)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) types.Stats
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Simulator
	ContentProvider
	Authorizer
	SessionRevoker
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	simulateHandler  *SimulateHandler
	codeHandler      *CodeHandler
	protectedHandler *ProtectedHandler
	sessionHandler   *SessionHandler
	campaignHandler  *CampaignHandler
	eventsHandler    *EventValuesHandler
	statsHandler     *StatsHandler
	healthHandler    *HealthHandler

	maxBodyBytes int64
	corsOrigins  []string
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		simulateHandler:  NewSimulateHandler(deps),
		codeHandler:      NewCodeHandler(deps),
		protectedHandler: NewProtectedHandler(deps, deps),
		sessionHandler:   NewSessionHandler(deps, deps),
		campaignHandler:  NewCampaignHandler(deps),
		eventsHandler:    NewEventValuesHandler(),
		statsHandler:     NewStatsHandler(deps),
		healthHandler:    NewHealthHandler(),
		maxBodyBytes:     defaultMaxBodyBytes,
		corsOrigins:      []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux, including the JSON 404 fallback.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/simulate-conversion", MetricsMiddleware(s.simulateHandler.HandleSimulate, "simulate_conversion"))
	mux.HandleFunc("/api/get-flutter-code/{type}", MetricsMiddleware(s.codeHandler.HandleGetCode, "get_flutter_code"))
	mux.HandleFunc("/api/protected-js", MetricsMiddleware(s.protectedHandler.HandleProtectedJS, "protected_js"))
	mux.HandleFunc("/api/session", MetricsMiddleware(s.sessionHandler.HandleRevoke, "session"))
	mux.HandleFunc("/api/campaign-limits/{network}", MetricsMiddleware(s.campaignHandler.HandleCampaignLimits, "campaign_limits"))
	mux.HandleFunc("/api/event-values", MetricsMiddleware(s.eventsHandler.HandleEventValues, "event_values"))
	mux.HandleFunc("/", MetricsMiddleware(HandleNotFound, "not_found"))
}

// Handler wraps next with the cross-cutting middleware chain.
func (s *Server) Handler(next http.Handler) http.Handler {
	h := LimitBody(next, s.maxBodyBytes)
	h = Compress(h)
	h = CORS(h, s.corsOrigins)
	h = Recover(h, s.logger)
	return RequestID(h)
}

// HandleNotFound answers unmatched routes.
func HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
}

type errorResponse struct {
	Error string `json:"error"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// internalErrorBody is written when a response cannot be encoded.
var internalErrorBody = []byte(`{"error":"Internal server error"}` + "\n")

// writeJSON encodes v before committing status, so an encode failure turns
// into a JSON 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Get().Named("api").Error(context.Background(), "encode response", logger.Error(err))
		metrics.RecordErrorByComponent("http", "encode")
		status, body = http.StatusInternalServerError, internalErrorBody
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps err to a status code and a short public message. Causes
// are logged, never returned to the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(ctx, "request failed", logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		var e *Error
		if errors.As(err, &e) && e.Err != nil {
			return http.StatusBadRequest, "Bad request: " + e.Err.Error()
		}
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "Request entity too large"
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "Method not allowed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// allowMethods answers 405 unless r uses one of methods. HEAD is accepted
// wherever GET is.
func allowMethods(w http.ResponseWriter, r *http.Request, op string, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m || (m == http.MethodGet && r.Method == http.MethodHead) {
			return true
		}
	}
	allow := methods[0]
	for _, m := range methods[1:] {
		allow += ", " + m
	}
	w.Header().Set("Allow", allow)
	writeError(r.Context(), w, NewKind(op, ErrMethodNotAllowed))
	return false
}
