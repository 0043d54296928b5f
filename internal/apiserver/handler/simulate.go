package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/pkg/market"
)

// SimulateHandler serves the placement simulator.
type SimulateHandler struct {
	engine *engine.Engine
}

func NewSimulateHandler(eng *engine.Engine) *SimulateHandler {
	return &SimulateHandler{engine: eng}
}

// Simulate scores the live market for the requested job and returns the
// full placement recommendation. A job no GPU can satisfy yields 422.
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req market.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.engine.Simulate(r.Context(), req)
	if err != nil {
		var noFit *engine.NoFitError
		if errors.As(err, &noFit) {
			writeError(w, http.StatusUnprocessableEntity, noFit.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
