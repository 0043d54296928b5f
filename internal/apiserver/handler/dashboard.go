package handler

import (
	"net/http"
	"time"

	"github.com/nervelabs/nerve/internal/stats"
)

// DashboardHandler serves the aggregated FinOps/GreenOps counters.
type DashboardHandler struct {
	stats *stats.Store
}

func NewDashboardHandler(st *stats.Store) *DashboardHandler {
	return &DashboardHandler{stats: st}
}

func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot(time.Now().UTC()))
}
