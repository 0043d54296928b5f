// Package apiserver wires the NERVE REST API: market views, the placement
// simulator, the time-shifter, the checkpoint simulator, dashboard stats
// and the live event feed.
package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nervelabs/nerve/internal/apiserver/handler"
	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/internal/stats"
)

// NewRouter creates the API router with all endpoints.
func NewRouter(marketState *state.MarketState, eng *engine.Engine, statsStore *stats.Store, bus *events.Bus) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	regionHandler := handler.NewRegionHandler(marketState)
	simulateHandler := handler.NewSimulateHandler(eng)
	checkpointHandler := handler.NewCheckpointHandler(eng)
	timeShiftHandler := handler.NewTimeShiftHandler(eng)
	dashboardHandler := handler.NewDashboardHandler(statsStore)
	scraperHandler := handler.NewScraperStatusHandler(marketState)
	eventsHandler := handler.NewEventsHandler(bus)

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/region", regionHandler.GetRegion)
		r.Get("/azs", regionHandler.GetAZs)
		r.Post("/simulate", simulateHandler.Simulate)
		r.Post("/checkpoint/simulate", checkpointHandler.Simulate)
		r.Post("/timeshifting/plan", timeShiftHandler.Plan)
		r.Get("/dashboard/stats", dashboardHandler.GetStats)
		r.Get("/scraper/status", scraperHandler.GetStatus)
		r.Get("/events/feed", eventsHandler.Feed)
	})

	return r
}
