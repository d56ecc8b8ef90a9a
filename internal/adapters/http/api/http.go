// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/overtime"
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// ComputeOvertime runs one aggregation. Only invalid windows fail.
	ComputeOvertime(ctx context.Context, mode overtime.Mode, window calendar.Window) (overtime.Result, error)

	// Defaults applied when a request leaves mode or window out.
	DefaultMode() overtime.Mode
	DefaultWindow() calendar.Window
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	overtimeHandler *OvertimeHandler
	summaryHandler  *SummaryHandler
	personHandler   *PersonHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		overtimeHandler: NewOvertimeHandler(deps, maxLimit),
		summaryHandler:  NewSummaryHandler(deps),
		personHandler:   NewPersonHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/overtime/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "overtime_summary"))
	mux.HandleFunc("/overtime/person/", MetricsMiddleware(s.personHandler.HandleGetPerson, "overtime_person"))
	mux.HandleFunc("/overtime", MetricsMiddleware(s.overtimeHandler.HandleGetOvertime, "overtime"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// compute parses the shared query parameters, runs the aggregation and
// writes an error response when anything fails. ok is false in that case.
func compute(w http.ResponseWriter, r *http.Request, deps Dependencies) (req request, res overtime.Result, ok bool) {
	req, err := parseRequest(r, deps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return req, res, false
	}
	res, err = deps.ComputeOvertime(r.Context(), req.Mode, req.Window)
	switch {
	case errors.Is(err, calendar.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err)
		return req, res, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("compute overtime: %w", err))
		return req, res, false
	}
	return req, res, true
}
