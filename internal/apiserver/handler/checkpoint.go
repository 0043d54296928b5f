package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/pkg/market"
)

// CheckpointHandler serves the spot interruption simulator.
type CheckpointHandler struct {
	engine *engine.Engine
}

func NewCheckpointHandler(eng *engine.Engine) *CheckpointHandler {
	return &CheckpointHandler{engine: eng}
}

// Simulate runs the evacuation protocol for a simulated eviction and
// returns the migration timeline.
func (h *CheckpointHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req market.CheckpointSimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.engine.SimulateInterruption(r.Context(), req))
}
