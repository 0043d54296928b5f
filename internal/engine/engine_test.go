package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/internal/stats"
	"github.com/nervelabs/nerve/pkg/market"
)

func newTestEngine(t *testing.T, st *state.MarketState, now time.Time) (*Engine, *events.Bus, *stats.Store) {
	t.Helper()
	bus := events.NewBus()
	store := stats.Open("", slog.Default())
	e := New(st, bus, store, Options{Now: func() time.Time { return now }})
	return e, bus, store
}

func TestScoreGPUDeterministic(t *testing.T) {
	g := market.GpuInstance{SpotPriceUSDHr: 1.5, Availability: market.AvailabilityHigh}

	a := scoreGPU(g, 100, 12, 25)
	b := scoreGPU(g, 100, 12, 25)
	if a != b {
		t.Fatalf("score not reproducible: %v vs %v", a, b)
	}

	// 0.50*(1.5/15) + 0.20*(100/500) + 0.15*0 + 0.10*(12/40) + 0.05*(1-25/50)
	want := 0.50*0.1 + 0.20*0.2 + 0.10*0.3 + 0.05*0.5
	if math.Abs(a-want) > 1e-9 {
		t.Errorf("score = %v, want %v", a, want)
	}
}

func TestScoreGPUNegativeTempClamped(t *testing.T) {
	g := market.GpuInstance{SpotPriceUSDHr: 1.0, Availability: market.AvailabilityHigh}
	cold := scoreGPU(g, 100, -5, 0)
	zero := scoreGPU(g, 100, 0, 0)
	if cold != zero {
		t.Errorf("score at -5°C = %v, want same as 0°C = %v", cold, zero)
	}
}

func TestSimulateMemoryFilter(t *testing.T) {
	st := state.New()
	st.SetPrices("francecentral", []market.GpuInstance{
		{SKU: "Standard_NC8as_T4_v3", GPUName: "Tesla T4 (16GB)", RAMGB: 16,
			SpotPriceUSDHr: 0.10, OnDemandUSDHr: 0.75, SavingsPct: 86.7,
			Availability: market.AvailabilityHigh, Tier: "mid"},
		{SKU: "Standard_NC8ads_A10_v4", GPUName: "A10 (24GB)", RAMGB: 24,
			SpotPriceUSDHr: 0.80, OnDemandUSDHr: 3.20, SavingsPct: 75.0,
			Availability: market.AvailabilityHigh, Tier: "mid"},
	})
	e, _, _ := newTestEngine(t, st, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

	resp, err := e.Simulate(context.Background(), market.SimulateRequest{
		PreferredRegion: "francecentral",
		MinGPUMemoryGB:  24,
		Deadline:        time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if resp.Decision.GPUSKU != "Standard_NC8ads_A10_v4" {
		t.Errorf("decision SKU = %q, want the A10 (T4 ineligible)", resp.Decision.GPUSKU)
	}
	if resp.Decision.StartStrategy != market.StartImmediate {
		t.Errorf("strategy = %q, want immediate (deadline in the past)", resp.Decision.StartStrategy)
	}
}

func TestSimulateNoFit(t *testing.T) {
	st := state.New()
	st.SetPrices("francecentral", []market.GpuInstance{
		{SKU: "Standard_NC8as_T4_v3", RAMGB: 56, SpotPriceUSDHr: 0.15,
			OnDemandUSDHr: 0.75, Availability: market.AvailabilityHigh, Tier: "mid"},
	})
	e, _, _ := newTestEngine(t, st, time.Now().UTC())

	_, err := e.Simulate(context.Background(), market.SimulateRequest{
		PreferredRegion: "francecentral",
		MinGPUMemoryGB:  2000,
	})
	var noFit *NoFitError
	if !errors.As(err, &noFit) {
		t.Fatalf("err = %v, want NoFitError", err)
	}
	if noFit.MinGPUMemoryGB != 2000 {
		t.Errorf("MinGPUMemoryGB = %d, want 2000", noFit.MinGPUMemoryGB)
	}
}

func TestSimulateRoundTrips(t *testing.T) {
	st := state.New()
	st.SetRegionObservations("westeurope",
		[]market.GpuInstance{
			{SKU: "Standard_NC24s_v3", GPUName: "Tesla V100 (16GB)", RAMGB: 448,
				SpotPriceUSDHr: 1.20, OnDemandUSDHr: 12.0, SavingsPct: 90.0,
				Availability: market.AvailabilityHigh, Tier: "high"},
		},
		market.WeatherObservation{CurrentTempC: 9, CurrentWindKmh: 25},
		market.CarbonObservation{GCO2KWh: 180, Index: market.CarbonModerate},
	)
	e, _, store := newTestEngine(t, st, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))

	resp, err := e.Simulate(context.Background(), market.SimulateRequest{
		PreferredRegion:   "westeurope",
		EstimatedGPUHours: 10,
		MinGPUMemoryGB:    16,
		Deadline:          time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	s := resp.Savings
	if diff := math.Abs(s.SpotCostTotalUSD + s.SavingsUSD - s.OnDemandCostTotalUSD); diff > 0.01 {
		t.Errorf("spot_total + savings = %v, want ondemand_total %v",
			s.SpotCostTotalUSD+s.SavingsUSD, s.OnDemandCostTotalUSD)
	}
	g := resp.GreenImpact
	if diff := math.Abs(g.CO2VsWorstGrams - g.TotalCO2Grams - g.CO2SavedGrams); diff > 0.1 {
		t.Errorf("worst - total = %v, want co2_saved %v",
			g.CO2VsWorstGrams-g.TotalCO2Grams, g.CO2SavedGrams)
	}
	if g.CarbonGCO2KWh != 180 {
		t.Errorf("carbon intensity = %v, want 180", g.CarbonGCO2KWh)
	}
	if len(resp.ServerPath) != 3 {
		t.Errorf("server path steps = %d, want 3", len(resp.ServerPath))
	}
	if resp.RiskAssessment.SpotInterruptionProbability != market.RiskLow {
		t.Errorf("risk = %q, want low for high availability", resp.RiskAssessment.SpotInterruptionProbability)
	}

	snap := store.Snapshot(time.Now())
	if snap.TotalJobsManaged != 1 {
		t.Errorf("TotalJobsManaged = %d, want 1 after simulation", snap.TotalJobsManaged)
	}
}

func TestPriceCurve(t *testing.T) {
	st := state.New()
	e, _, _ := newTestEngine(t, st, time.Now().UTC())

	// No observations: flat $0.50 curve.
	curve := e.priceCurve("francecentral")
	for h, p := range curve {
		if p != 0.5 {
			t.Fatalf("empty curve[%d] = %v, want 0.5", h, p)
		}
	}

	st.SetPrices("francecentral", []market.GpuInstance{
		{SKU: "a", SpotPriceUSDHr: 0.5},
		{SKU: "b", SpotPriceUSDHr: 1.5},
	})
	curve = e.priceCurve("francecentral")
	if curve[3] != 0.58 {
		t.Errorf("curve[3] = %v, want 0.58 (avg 1.0 x night factor)", curve[3])
	}
	if curve[12] != 1.12 {
		t.Errorf("curve[12] = %v, want 1.12 (avg 1.0 x peak factor)", curve[12])
	}
}

func TestCarbonCurve(t *testing.T) {
	st := state.New()
	e, _, _ := newTestEngine(t, st, time.Now().UTC())

	// No forecast: flat 100.
	curve := e.carbonCurve("westeurope")
	if curve[0] != 100.0 || curve[23] != 100.0 {
		t.Fatalf("empty curve = %v/%v, want flat 100", curve[0], curve[23])
	}

	hourly := []market.HourlyWeather{
		{Hour: "00:00", WindKmh: 50, SolarWM2: 0},  // wind factor floors at 0.7
		{Hour: "01:00", WindKmh: 10, SolarWM2: 250}, // 0.9 wind x 0.8 solar floor
	}
	st.SetRegionObservations("westeurope", nil,
		market.WeatherObservation{Hourly: hourly},
		market.CarbonObservation{GCO2KWh: 200},
	)

	curve = e.carbonCurve("westeurope")
	if curve[0] != 140.0 {
		t.Errorf("curve[0] = %v, want 200 x 0.7 = 140", curve[0])
	}
	if curve[1] != 144.0 {
		t.Errorf("curve[1] = %v, want 200 x 0.9 x 0.8 = 144", curve[1])
	}
	if curve[5] != 200.0 {
		t.Errorf("curve[5] = %v, want base 200 past the forecast", curve[5])
	}
}

func TestPlanTimeShiftPicksCheapWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	st := state.New()
	st.SetPrices("francecentral", []market.GpuInstance{
		{SKU: "Standard_NC6s_v3", SpotPriceUSDHr: 1.0},
	})
	e, _, _ := newTestEngine(t, st, now)

	plan := e.PlanTimeShift(context.Background(), market.TimeShiftRequest{
		EstimatedGPUHours: 2,
		Deadline:          now.Add(10 * time.Hour),
		Flexible:          true,
	})
	if !plan.Recommended {
		t.Fatalf("plan not recommended: %+v", plan)
	}
	if !plan.MeetsDeadline {
		t.Error("MeetsDeadline = false, want true")
	}
	// Cheapest 3h window reachable before the deadline starts at 20:00.
	if plan.OptimalWindowStart == nil || plan.OptimalWindowStart.Hour() != 20 {
		t.Fatalf("window start = %v, want hour 20", plan.OptimalWindowStart)
	}
	if plan.CurrentSpotUSDHr != 1.12 {
		t.Errorf("current price = %v, want 1.12 (peak hour)", plan.CurrentSpotUSDHr)
	}
	if plan.EstimatedSpotUSDHr != 0.75 {
		t.Errorf("estimated price = %v, want 0.75 (hour 20 factor)", plan.EstimatedSpotUSDHr)
	}
	if plan.PriceReductionPct <= 5 {
		t.Errorf("price reduction = %v, want > 5", plan.PriceReductionPct)
	}
}

func TestPlanTimeShiftInfeasibleDeadline(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	e, _, _ := newTestEngine(t, state.New(), now)

	plan := e.PlanTimeShift(context.Background(), market.TimeShiftRequest{
		EstimatedGPUHours: 4,
		Deadline:          now.Add(time.Hour),
		Flexible:          true,
	})
	if plan.Recommended {
		t.Error("Recommended = true for an infeasible deadline")
	}
	if plan.OptimalWindowStart != nil {
		t.Errorf("window start = %v, want nil", plan.OptimalWindowStart)
	}
}

func TestPlanTimeShiftInflexibleJob(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	st := state.New()
	st.SetPrices("francecentral", []market.GpuInstance{{SKU: "a", SpotPriceUSDHr: 1.0}})
	e, _, _ := newTestEngine(t, st, now)

	plan := e.PlanTimeShift(context.Background(), market.TimeShiftRequest{
		EstimatedGPUHours: 2,
		Deadline:          now.Add(10 * time.Hour),
		Flexible:          false,
	})
	if plan.Recommended {
		t.Error("Recommended = true for an inflexible job")
	}
}

func TestWindowSearchDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	st := state.New()
	st.SetPrices("francecentral", []market.GpuInstance{{SKU: "a", SpotPriceUSDHr: 2.0}})
	e, _, _ := newTestEngine(t, st, now)

	s1, _, p1, _ := e.optimalWindow(3, now.Add(20*time.Hour), "francecentral")
	s2, _, p2, _ := e.optimalWindow(3, now.Add(20*time.Hour), "francecentral")
	if s1 == nil || s2 == nil || !s1.Equal(*s2) || p1 != p2 {
		t.Errorf("window search not deterministic: %v/%v vs %v/%v", s1, p1, s2, p2)
	}
}

func TestSimulateInterruptionNeighborRing(t *testing.T) {
	tests := []struct {
		currentAZ string
		wantAZ    string
	}{
		{"fr-central-2", "fr-central-3"},
		{"fr-central-3", "fr-central-1"},
		{"we-1", "we-2"},
		{"uk-south-3", "uk-south-1"},
		{"unknown-az", "fr-central-2"},
	}
	e, _, _ := newTestEngine(t, state.New(), time.Now().UTC())

	for _, tt := range tests {
		ev := e.SimulateInterruption(context.Background(), market.CheckpointSimulateRequest{
			JobID: "job-1", CurrentRegion: "francecentral",
			CurrentAZ: tt.currentAZ, ModelSizeGB: 10,
		})
		if ev.ToAZ != tt.wantAZ {
			t.Errorf("interruption in %q evacuated to %q, want %q", tt.currentAZ, ev.ToAZ, tt.wantAZ)
		}
	}
}

func TestSimulateInterruptionTimeline(t *testing.T) {
	e, bus, store := newTestEngine(t, state.New(), time.Now().UTC())
	ch, cancel := bus.Subscribe()
	defer cancel()

	ev := e.SimulateInterruption(context.Background(), market.CheckpointSimulateRequest{
		JobID: "job-42", CurrentRegion: "francecentral", CurrentAZ: "fr-central-1",
		CurrentSKU: "Standard_NC6s_v3", EpochProgressPct: 67.5, ModelSizeGB: 12,
	})

	if ev.Status != "migrated" || !ev.Resumed || !ev.CheckpointSaved {
		t.Errorf("event = %+v, want migrated/resumed/saved", ev)
	}
	if ev.CheckpointSizeGB != 9.6 {
		t.Errorf("checkpoint size = %v, want 12 x 0.8 = 9.6", ev.CheckpointSizeGB)
	}
	if ev.SaveDurationSec != 8.0 {
		t.Errorf("save duration = %v, want 9.6 / 1.2 = 8.0", ev.SaveDurationSec)
	}
	if ev.DowntimeMs != 0 {
		t.Errorf("downtime = %d, want 0", ev.DowntimeMs)
	}
	if len(ev.Timeline) != 7 {
		t.Fatalf("timeline steps = %d, want 7", len(ev.Timeline))
	}
	if ev.Timeline[6].TimeSec != 48.0 {
		t.Errorf("final step at %vs, want 40 + upload = 48", ev.Timeline[6].TimeSec)
	}

	// Two bus events: checkpoint_event then migration_complete.
	first := <-ch
	second := <-ch
	if first.Type != market.EventCheckpoint {
		t.Errorf("first event type = %q, want checkpoint_event", first.Type)
	}
	if second.Type != market.EventMigrationComplete {
		t.Errorf("second event type = %q, want migration_complete", second.Type)
	}
	if second.Data["to_az"] != "fr-central-2" {
		t.Errorf("to_az = %v, want fr-central-2", second.Data["to_az"])
	}

	snap := store.Snapshot(time.Now())
	if snap.TotalCheckpointsSaved != 1 || snap.TotalEvictionsHandled != 1 {
		t.Errorf("stats = %d checkpoints / %d evictions, want 1/1",
			snap.TotalCheckpointsSaved, snap.TotalEvictionsHandled)
	}
}

func TestStatsMonotonicity(t *testing.T) {
	st := state.New()
	st.SetPrices("francecentral", []market.GpuInstance{
		{SKU: "Standard_NC6s_v3", GPUName: "Tesla V100 (16GB)", RAMGB: 112,
			SpotPriceUSDHr: 0.9, OnDemandUSDHr: 3.06, SavingsPct: 70.6,
			Availability: market.AvailabilityHigh, Tier: "high"},
	})
	e, _, store := newTestEngine(t, st, time.Now().UTC())

	for i := 0; i < 2; i++ {
		if _, err := e.Simulate(context.Background(), market.SimulateRequest{
			PreferredRegion: "francecentral", MinGPUMemoryGB: 16,
		}); err != nil {
			t.Fatalf("Simulate %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		e.SimulateInterruption(context.Background(), market.CheckpointSimulateRequest{
			JobID: "j", CurrentAZ: "we-1", ModelSizeGB: 5,
		})
	}

	snap := store.Snapshot(time.Now())
	if snap.TotalJobsManaged != 2 {
		t.Errorf("TotalJobsManaged = %d, want 2", snap.TotalJobsManaged)
	}
	if snap.TotalCheckpointsSaved != 3 {
		t.Errorf("TotalCheckpointsSaved = %d, want 3", snap.TotalCheckpointsSaved)
	}
	if snap.TotalEvictionsHandled != 3 {
		t.Errorf("TotalEvictionsHandled = %d, want 3", snap.TotalEvictionsHandled)
	}
}
