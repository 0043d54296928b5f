// Package engine implements the NERVE decision core: multi-factor scoring
// of every (AZ, GPU) candidate, time-shift window search over the live
// price and carbon curves, and the spot interruption / AZ-hop simulator.
package engine

import (
	"log/slog"
	"math"
	"time"

	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/internal/stats"
)

// DefaultMinPriceReductionPct is the time-shift recommendation threshold:
// a shifted window must cut cost by more than this to be worth proposing.
const DefaultMinPriceReductionPct = 5.0

// Options configures an Engine.
type Options struct {
	// MinPriceReductionPct overrides the time-shift threshold.
	MinPriceReductionPct float64
	Logger               *slog.Logger
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// Engine evaluates placements against the live market state.
type Engine struct {
	state  *state.MarketState
	bus    *events.Bus
	stats  *stats.Store
	logger *slog.Logger

	minPriceReductionPct float64
	now                  func() time.Time
}

func New(st *state.MarketState, bus *events.Bus, stats *stats.Store, opts Options) *Engine {
	if opts.MinPriceReductionPct <= 0 {
		opts.MinPriceReductionPct = DefaultMinPriceReductionPct
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		state:                st,
		bus:                  bus,
		stats:                stats,
		logger:               opts.Logger,
		minPriceReductionPct: opts.MinPriceReductionPct,
		now:                  opts.Now,
	}
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
