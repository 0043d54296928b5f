// Package state holds the live market state: the last observations from
// every data source, the bounded price history ring, and the projection of
// region-level observations onto availability zones.
//
// The state has one writer (the scrape loop) and many readers (API
// handlers, scorer, time-shifter, checkpoint simulator). Per-region records
// are replaced atomically under the lock; readers receive copies and never
// observe a partially updated region.
package state

import (
	"sync"
	"time"

	"github.com/nervelabs/nerve/pkg/market"
)

// MaxHistoryPoints caps the per-region price history ring: 24h of data at
// one scrape per minute.
const MaxHistoryPoints = 1440

// maxErrors caps the scrape error log.
const maxErrors = 10

// MarketState is the in-memory observation store.
type MarketState struct {
	mu          sync.RWMutex
	lastScrape  time.Time
	scrapeCount int
	prices      map[string][]market.GpuInstance
	weather     map[string]market.WeatherObservation
	carbon      map[string]market.CarbonObservation
	history     map[string][]market.PriceHistoryEntry
	errors      []string
}

func New() *MarketState {
	return &MarketState{
		prices:  make(map[string][]market.GpuInstance),
		weather: make(map[string]market.WeatherObservation),
		carbon:  make(map[string]market.CarbonObservation),
		history: make(map[string][]market.PriceHistoryEntry),
	}
}

// SetRegionObservations replaces the full per-region record in one step.
// Readers see either the previous record or this one, never a mix.
func (s *MarketState) SetRegionObservations(regionID string, prices []market.GpuInstance, weather market.WeatherObservation, carbon market.CarbonObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[regionID] = prices
	s.weather[regionID] = weather
	s.carbon[regionID] = carbon
}

// SetPrices replaces only the price observations for a region. Used when
// seeding from the persistent cache before the first live scrape.
func (s *MarketState) SetPrices(regionID string, prices []market.GpuInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[regionID] = prices
}

// Prices returns a copy of the current price observations for a region.
func (s *MarketState) Prices(regionID string) []market.GpuInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps := s.prices[regionID]
	out := make([]market.GpuInstance, len(ps))
	copy(out, ps)
	return out
}

// Weather returns the last weather snapshot for a region.
func (s *MarketState) Weather(regionID string) (market.WeatherObservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weather[regionID]
	return w, ok
}

// Carbon returns the last carbon observation for a region.
func (s *MarketState) Carbon(regionID string) (market.CarbonObservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carbon[regionID]
	return c, ok
}

// AppendHistory appends one price-history entry, evicting the oldest once
// the ring holds MaxHistoryPoints entries.
func (s *MarketState) AppendHistory(regionID string, entry market.PriceHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[regionID], entry)
	if len(h) > MaxHistoryPoints {
		h = h[len(h)-MaxHistoryPoints:]
	}
	s.history[regionID] = h
}

// History returns a copy of the price history ring for a region.
func (s *MarketState) History(regionID string) []market.PriceHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[regionID]
	out := make([]market.PriceHistoryEntry, len(h))
	copy(out, h)
	return out
}

// RecordError appends a scrape error, keeping only the most recent few.
func (s *MarketState) RecordError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
	if len(s.errors) > maxErrors {
		s.errors = s.errors[len(s.errors)-maxErrors:]
	}
}

// Errors returns a copy of the recent scrape errors.
func (s *MarketState) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

// MarkScrape records a completed scrape cycle.
func (s *MarketState) MarkScrape(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScrape = t
	s.scrapeCount++
}

// LastScrape returns the completion time of the most recent cycle.
func (s *MarketState) LastScrape() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScrape
}

// ScrapeCount returns the number of completed cycles.
func (s *MarketState) ScrapeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scrapeCount
}

// Status is a diagnostic snapshot of the scraper state.
type Status struct {
	LastScrape         *time.Time     `json:"last_scrape"`
	ScrapeCount        int            `json:"scrape_count"`
	TotalGPUs          int            `json:"total_gpus"`
	Regions            []string       `json:"regions"`
	PriceHistoryPoints map[string]int `json:"price_history_points"`
	Errors             []string       `json:"errors"`
}

// Snapshot builds the diagnostic status served by the API.
func (s *MarketState) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		ScrapeCount:        s.scrapeCount,
		PriceHistoryPoints: make(map[string]int, len(s.history)),
		Errors:             append([]string(nil), s.errors...),
	}
	if !s.lastScrape.IsZero() {
		t := s.lastScrape
		st.LastScrape = &t
	}
	for r, ps := range s.prices {
		st.Regions = append(st.Regions, r)
		st.TotalGPUs += len(ps)
	}
	for r, h := range s.history {
		st.PriceHistoryPoints[r] = len(h)
	}
	return st
}
