package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/pkg/market"
)

// TimeShiftHandler serves the time-shift planner.
type TimeShiftHandler struct {
	engine *engine.Engine
}

func NewTimeShiftHandler(eng *engine.Engine) *TimeShiftHandler {
	return &TimeShiftHandler{engine: eng}
}

// Plan computes the cheapest feasible execution window for a job.
func (h *TimeShiftHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req market.TimeShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.engine.PlanTimeShift(r.Context(), req))
}
