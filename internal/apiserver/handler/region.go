package handler

import (
	"net/http"
	"time"

	"github.com/nervelabs/nerve/internal/state"
)

// RegionHandler serves the per-region market views.
type RegionHandler struct {
	state *state.MarketState
}

func NewRegionHandler(st *state.MarketState) *RegionHandler {
	return &RegionHandler{state: st}
}

// GetRegion returns the full region view with AZ-projected prices.
// Unknown region IDs fall back to the default region.
func (h *RegionHandler) GetRegion(w http.ResponseWriter, r *http.Request) {
	regionID := r.URL.Query().Get("region_id")
	view := h.state.RegionView(regionID, time.Now().UTC())
	writeJSON(w, http.StatusOK, view)
}

// GetAZs returns only the availability zones of a region.
func (h *RegionHandler) GetAZs(w http.ResponseWriter, r *http.Request) {
	regionID := r.URL.Query().Get("region_id")
	view := h.state.RegionView(regionID, time.Now().UTC())
	writeJSON(w, http.StatusOK, view.AvailabilityZones)
}
