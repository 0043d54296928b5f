package apiserver

import (
	"net/http"
	"time"

	"github.com/nervelabs/nerve/internal/config"
	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/internal/stats"
)

// NewServer creates the HTTP server for the REST API.
func NewServer(cfg *config.Config, marketState *state.MarketState, eng *engine.Engine, statsStore *stats.Store, bus *events.Bus) *http.Server {
	router := NewRouter(marketState, eng, statsStore, bus)

	return &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
