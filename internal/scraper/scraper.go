// Package scraper runs the live data collection loop: Azure spot prices,
// Open-Meteo weather and grid carbon intensity for every monitored region,
// feeding the in-memory market state, the persistent price cache, the
// price history rings and the event bus.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/metrics"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/internal/store"
	"github.com/nervelabs/nerve/pkg/market"
)

// Options configures the scrape loop.
type Options struct {
	// Interval between scrape cycles. Defaults to one minute.
	Interval time.Duration
	// VisionPaths are the files the full market snapshot is exported to
	// after every cycle. Empty disables the export.
	VisionPaths []string
	// Client overrides the HTTP client, used by tests.
	Client *http.Client
	Logger *slog.Logger
}

// Scraper owns the collection loop. One instance runs per process.
type Scraper struct {
	state  *state.MarketState
	bus    *events.Bus
	cache  *store.PriceCache
	client *http.Client
	logger *slog.Logger

	interval    time.Duration
	visionPaths []string

	mu      sync.Mutex // serializes cycles if one overruns the interval
	running bool
}

func New(st *state.MarketState, bus *events.Bus, cache *store.PriceCache, opts Options) *Scraper {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scraper{
		state:       st,
		bus:         bus,
		cache:       cache,
		client:      opts.Client,
		logger:      opts.Logger,
		interval:    opts.Interval,
		visionPaths: opts.VisionPaths,
	}
}

// WarmStart seeds the in-memory state with the last persisted prices so
// the API has data before the first live cycle completes.
func (s *Scraper) WarmStart() {
	for _, regionID := range catalog.RegionIDs() {
		if prices := s.cache.LoadRegion(regionID); len(prices) > 0 {
			s.state.SetPrices(regionID, prices)
			s.logger.Info("warm start from price cache", "region", regionID, "skus", len(prices))
		}
	}
}

// Run scrapes once immediately, then on every interval tick until ctx is
// cancelled.
func (s *Scraper) Run(ctx context.Context) error {
	s.logger.Info("starting live scraper", "interval", s.interval)
	s.ScrapeOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.ScrapeOnce(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling scrape loop: %w", err)
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	s.logger.Info("scraper stopped")
	return ctx.Err()
}

// ScrapeOnce runs a full cycle over all regions. Cycles never overlap.
func (s *Scraper) ScrapeOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous scrape cycle still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	for _, region := range catalog.Regions() {
		if ctx.Err() != nil {
			return
		}
		s.scrapeRegion(ctx, &region)
	}

	now := time.Now().UTC()
	s.state.MarkScrape(now)
	metrics.ScrapeCyclesTotal.Inc()
	metrics.ScrapeDuration.Observe(time.Since(start).Seconds())

	total := 0
	for _, id := range catalog.RegionIDs() {
		total += len(s.state.Prices(id))
	}
	s.logger.Info("scrape cycle complete",
		"cycle", s.state.ScrapeCount(), "gpus", total, "duration", time.Since(start))

	if len(s.visionPaths) > 0 {
		if err := s.ExportVision(now); err != nil {
			s.logger.Warn("vision export failed", "error", err)
		}
	}
}

// scrapeRegion runs the three fetchers concurrently and commits the whole
// region record atomically. Only the UK has a live carbon feed; everywhere
// else (and on a failed UK fetch) carbon is modelled after the join, since
// the model needs the fresh weather.
func (s *Scraper) scrapeRegion(ctx context.Context, region *catalog.Region) {
	now := time.Now().UTC()

	var (
		wg         sync.WaitGroup
		gpus       []market.GpuInstance
		weather    market.WeatherObservation
		carbonObs  market.CarbonObservation
		carbonLive bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		gpus = s.fetchGPUPrices(ctx, region.ID)
	}()
	go func() {
		defer wg.Done()
		weather = s.fetchWeather(ctx, region, now)
	}()
	if region.ID == "uksouth" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs, err := s.fetchCarbonUK(ctx)
			if err != nil {
				s.recordError("carbon", region.ID, fmt.Sprintf("Carbon UK: %v", err))
				return
			}
			carbonObs, carbonLive = obs, true
		}()
	}
	wg.Wait()

	if !carbonLive {
		carbonObs = s.carbonFromModel(region.ID, weather)
	}

	old := s.state.Prices(region.ID)
	s.state.SetRegionObservations(region.ID, gpus, weather, carbonObs)

	s.detectPriceChanges(region, old, gpus)
	s.recordPriceHistory(region.ID, gpus, now)
	s.cache.SaveRegion(region.ID, gpus)

	metrics.GPUCount.WithLabelValues(region.ID).Set(float64(len(gpus)))
	metrics.CarbonIntensity.WithLabelValues(region.ID).Set(carbonObs.GCO2KWh)
	for _, g := range gpus {
		metrics.SpotPriceUSDHr.WithLabelValues(region.ID, g.SKU).Set(g.SpotPriceUSDHr)
	}
}

// detectPriceChanges publishes an update event for every SKU whose spot
// price moved since the previous cycle.
func (s *Scraper) detectPriceChanges(region *catalog.Region, old, new []market.GpuInstance) {
	oldPrices := make(map[string]float64, len(old))
	for _, g := range old {
		oldPrices[g.SKU] = g.SpotPriceUSDHr
	}
	for _, g := range new {
		oldPrice, ok := oldPrices[g.SKU]
		if !ok || oldPrice == g.SpotPriceUSDHr {
			continue
		}
		s.publish(market.NewEvent(market.EventPriceUpdate, map[string]any{
			"region":    region.ID,
			"az":        region.AZs[0].ID,
			"instance":  g.SKU,
			"gpu_name":  g.GPUName,
			"old_price": oldPrice,
			"new_price": g.SpotPriceUSDHr,
			"currency":  "USD",
		}))
	}
}

// recordPriceHistory appends one aggregate snapshot to the region's 24h
// ring. Compute SKUs (NC/ND) get their own average because they drive the
// time-shift price curve; when a cycle has none, the overall average
// stands in.
func (s *Scraper) recordPriceHistory(regionID string, gpus []market.GpuInstance, now time.Time) {
	if len(gpus) == 0 {
		return
	}

	var sum, min, max, computeSum float64
	var computeCount int
	min = gpus[0].SpotPriceUSDHr
	max = gpus[0].SpotPriceUSDHr
	for _, g := range gpus {
		p := g.SpotPriceUSDHr
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
		if strings.HasPrefix(g.SKU, "Standard_NC") || strings.HasPrefix(g.SKU, "Standard_ND") {
			computeSum += p
			computeCount++
		}
	}
	avgCompute := sum / float64(len(gpus))
	if computeCount > 0 {
		avgCompute = computeSum / float64(computeCount)
	}

	s.state.AppendHistory(regionID, market.PriceHistoryEntry{
		Timestamp:      now,
		Hour:           now.Hour(),
		AvgSpot:        round(sum/float64(len(gpus)), 6),
		MinSpot:        round(min, 6),
		MaxSpot:        round(max, 6),
		AvgComputeSpot: round(avgCompute, 6),
		GPUCount:       len(gpus),
	})
}

func (s *Scraper) publish(ev market.Event) {
	s.bus.Publish(ev)
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()
}

func (s *Scraper) recordError(source, regionID, msg string) {
	s.logger.Warn("fetch failed", "source", source, "region", regionID, "error", msg)
	s.state.RecordError(msg)
	metrics.ScrapeErrorsTotal.WithLabelValues(source, regionID).Inc()
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
