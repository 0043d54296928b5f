package handler

import (
	"net/http"

	"github.com/nervelabs/nerve/internal/state"
)

// ScraperStatusHandler serves the scraper diagnostics.
type ScraperStatusHandler struct {
	state *state.MarketState
}

func NewScraperStatusHandler(st *state.MarketState) *ScraperStatusHandler {
	return &ScraperStatusHandler{state: st}
}

func (h *ScraperStatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}
