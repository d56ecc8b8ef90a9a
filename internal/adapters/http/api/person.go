package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/overtime/internal/domain/model"
)

// PersonHandler serves one person's record and position.
type PersonHandler struct {
	deps Dependencies
}

// NewPersonHandler creates a new person handler.
func NewPersonHandler(deps Dependencies) *PersonHandler {
	return &PersonHandler{deps: deps}
}

type personResponse struct {
	Rank           int                         `json:"rank"`
	Of             int                         `json:"of"`
	Record         model.OvertimeRecord        `json:"record"`
	Baseline       model.RequiredHoursBaseline `json:"baseline"`
	UsedFallback   bool                        `json:"used_fallback"`
	FallbackReason string                      `json:"fallback_reason,omitempty"`
}

// HandleGetPerson handles GET /overtime/person/{id} requests. Rank is the
// 1-based position in the overtime ordering.
func (h *PersonHandler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/overtime/person/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest("person id is required"))
		return
	}

	_, res, ok := compute(w, r, h.deps)
	if !ok {
		return
	}
	for i, rec := range res.Records {
		if rec.PersonID == id {
			writeJSON(w, http.StatusOK, personResponse{
				Rank:           i + 1,
				Of:             len(res.Records),
				Record:         rec,
				Baseline:       res.Baseline,
				UsedFallback:   res.UsedFallback,
				FallbackReason: res.FallbackReason,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: person %q", ErrNotFound, id))
}
