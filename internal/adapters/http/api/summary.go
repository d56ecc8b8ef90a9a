package api

import (
	"net/http"

	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/internal/domain/overtime"
)

// SummaryHandler serves cross-person statistics.
type SummaryHandler struct {
	deps Dependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps Dependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

type summaryResponse struct {
	Mode           string                      `json:"mode"`
	Baseline       model.RequiredHoursBaseline `json:"baseline"`
	Summary        model.OvertimeSummary       `json:"summary"`
	UsedFallback   bool                        `json:"used_fallback"`
	FallbackReason string                      `json:"fallback_reason,omitempty"`
}

// HandleGetSummary handles GET /overtime/summary requests.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, res, ok := compute(w, r, h.deps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Mode:           req.Mode.String(),
		Baseline:       res.Baseline,
		Summary:        overtime.ComputeSummary(res.Records),
		UsedFallback:   res.UsedFallback,
		FallbackReason: res.FallbackReason,
	})
}
