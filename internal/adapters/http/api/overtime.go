package api

import (
	"net/http"
	"strconv"

	"github.com/okian/overtime/internal/domain/model"
)

// OvertimeHandler serves the sorted record list.
type OvertimeHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewOvertimeHandler creates a new overtime handler.
func NewOvertimeHandler(deps Dependencies, maxLimit int) *OvertimeHandler {
	return &OvertimeHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type overtimeResponse struct {
	Mode           string                      `json:"mode"`
	Baseline       model.RequiredHoursBaseline `json:"baseline"`
	Records        []model.OvertimeRecord      `json:"records"`
	UsedFallback   bool                        `json:"used_fallback"`
	FallbackReason string                      `json:"fallback_reason,omitempty"`
}

// HandleGetOvertime handles GET /overtime requests. An optional limit keeps
// the first N records.
func (h *OvertimeHandler) HandleGetOvertime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest("limit must be a positive integer"))
			return
		}
		if h.maxLimit > 0 && n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", badRequest("limit must not exceed %d", h.maxLimit))
			return
		}
		limit = n
	}

	req, res, ok := compute(w, r, h.deps)
	if !ok {
		return
	}
	records := res.Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	writeJSON(w, http.StatusOK, overtimeResponse{
		Mode:           req.Mode.String(),
		Baseline:       res.Baseline,
		Records:        records,
		UsedFallback:   res.UsedFallback,
		FallbackReason: res.FallbackReason,
	})
}
