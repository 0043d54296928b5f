package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/metrics"
	"github.com/nervelabs/nerve/pkg/market"
)

// Scoring weights. Price dominates; carbon, availability, cooling and
// renewable potential break ties.
const (
	weightPrice        = 0.50
	weightCarbon       = 0.20
	weightAvailability = 0.15
	weightCooling      = 0.10
	weightRenewable    = 0.05
)

// Normalization ceilings for the score terms.
const (
	maxSpotUSDHr   = 15.0  // $/h considered the top of the GPU spot range
	maxCarbonGCO2  = 500.0 // gCO2/kWh, roughly a coal-heavy grid
	maxCoolingTemp = 40.0  // °C
	maxWindKmh     = 50.0  // km/h
)

const datacenterPUE = 1.2

// worstCaseCarbon is the reference grid for the CO2-saved figure.
const worstCaseCarbon = 500.0

var availabilityScores = map[market.Availability]float64{
	market.AvailabilityHigh:    1.0,
	market.AvailabilityMedium:  0.7,
	market.AvailabilityLow:     0.4,
	market.AvailabilityVeryLow: 0.1,
}

// ScoringWeights describes the scoring function for the vision export.
func ScoringWeights() map[string]any {
	return map[string]any{
		"w_price":        weightPrice,
		"w_carbon":       weightCarbon,
		"w_availability": weightAvailability,
		"w_cooling":      weightCooling,
		"w_renewable":    weightRenewable,
		"formula": "score = w_price * norm_spot + w_carbon * norm_carbon" +
			" + w_availability * (1-avail) + w_cooling * norm_cooling" +
			" + w_renewable * (1-renew)",
	}
}

// scoreGPU computes the NERVE score of one candidate; lower is better.
func scoreGPU(g market.GpuInstance, carbonGCO2, tempC, windKmh float64) float64 {
	normPrice := clampMax(g.SpotPriceUSDHr/maxSpotUSDHr, 1.0)
	normCarbon := clampMax(carbonGCO2/maxCarbonGCO2, 1.0)

	availScore, ok := availabilityScores[g.Availability]
	if !ok {
		availScore = 0.5
	}

	// Cold air is free cooling; strong wind means renewable headroom.
	if tempC < 0 {
		tempC = 0
	}
	normCooling := clampMax(tempC/maxCoolingTemp, 1.0)
	renewScore := clampMax(windKmh/maxWindKmh, 1.0)

	return weightPrice*normPrice +
		weightCarbon*normCarbon +
		weightAvailability*(1-availScore) +
		weightCooling*normCooling +
		weightRenewable*(1-renewScore)
}

// NoFitError reports that no candidate GPU satisfies the job's memory
// requirement.
type NoFitError struct {
	MinGPUMemoryGB int
}

func (e *NoFitError) Error() string {
	return fmt.Sprintf("no GPU candidate with at least %d GB memory", e.MinGPUMemoryGB)
}

// Simulate scores every (AZ, GPU) candidate across the requested regions
// and assembles the full placement recommendation.
func (e *Engine) Simulate(ctx context.Context, req market.SimulateRequest) (market.SimulateResponse, error) {
	req.Defaults()

	regionIDs := catalog.RegionIDs()
	if req.PreferredRegion != "" {
		regionIDs = []string{req.PreferredRegion}
	}

	now := e.now().UTC()

	var (
		best         *market.GpuInstance
		bestAZ       *market.AZInfo
		bestRegion   string
		bestScoreVal float64
		haveBest     bool
		fallbackGPU  *market.GpuInstance
		fallbackAZ   *market.AZInfo
	)

	for _, regionID := range regionIDs {
		view := e.state.RegionView(regionID, now)
		for i := range view.AvailabilityZones {
			az := &view.AvailabilityZones[i]
			for j := range az.GpuInstances {
				g := &az.GpuInstances[j]
				if g.RAMGB < req.MinGPUMemoryGB {
					continue
				}
				score := scoreGPU(*g, az.CarbonGCO2KWh, az.TemperatureC, az.WindKmh)
				if !haveBest || score < bestScoreVal {
					// The dethroned best becomes the fallback.
					if haveBest {
						fallbackGPU = best
						fallbackAZ = bestAZ
					}
					haveBest = true
					bestScoreVal = score
					best = g
					bestAZ = az
					bestRegion = view.RegionID
				} else if fallbackGPU == nil {
					fallbackGPU = g
					fallbackAZ = az
				}
			}
		}
	}

	if !haveBest {
		metrics.SimulationsTotal.WithLabelValues("no_fit").Inc()
		return market.SimulateResponse{}, &NoFitError{MinGPUMemoryGB: req.MinGPUMemoryGB}
	}
	if fallbackGPU == nil {
		fallbackGPU = best
		fallbackAZ = bestAZ
	}

	shift := e.shouldTimeShift(req.Deadline, req.EstimatedGPUHours, catalog.DefaultRegion().ID)
	strategy := market.StartImmediate
	var optimalStart *time.Time
	if shift.Recommended {
		strategy = market.StartTimeShifted
		optimalStart = shift.Start
	}

	family := catalog.GPUFamily(best.GPUName)
	kwhPerHr := catalog.KWhPerGPUHour(family)

	spotTotal := best.SpotPriceUSDHr * req.EstimatedGPUHours
	ondemandTotal := best.OnDemandUSDHr * req.EstimatedGPUHours
	savingsUSD := ondemandTotal - spotTotal
	var timeShiftBonus float64
	if strategy == market.StartTimeShifted {
		timeShiftBonus = savingsUSD * 0.08
	}

	totalKWh := kwhPerHr * req.EstimatedGPUHours * datacenterPUE
	totalCO2 := totalKWh * bestAZ.CarbonGCO2KWh
	worstCO2 := totalKWh * worstCaseCarbon
	co2Saved := worstCO2 - totalCO2

	launchTime := now
	if optimalStart != nil {
		launchTime = *optimalStart
	}

	resp := market.SimulateResponse{
		Decision: market.Decision{
			PrimaryRegion:    bestRegion,
			PrimaryAZ:        bestAZ.AZID,
			GPUSKU:           best.SKU,
			GPUName:          best.GPUName,
			SpotPriceUSDHr:   best.SpotPriceUSDHr,
			StartStrategy:    strategy,
			OptimalStartTime: optimalStart,
			Reason: fmt.Sprintf("Best NERVE score (%.3f): %.1f%% cheaper than on-demand, carbon %s",
				bestScoreVal, best.SavingsPct, bestAZ.CarbonIndex),
		},
		Fallback: market.Fallback{
			SecondaryAZ:    fallbackAZ.AZID,
			SecondarySKU:   fallbackGPU.SKU,
			FallbackReason: "Backup AZ in case of spot interruption",
		},
		Checkpointing: market.CheckpointConfig{
			RecommendedIntervalMin: req.CheckpointIntervalMin,
			StorageTarget:          "s3",
			EstimatedSizeGB:        float64(req.MinGPUMemoryGB) * 0.8,
			Reason: fmt.Sprintf("Checkpoint every %d min to S3, resume guaranteed in under 90s",
				req.CheckpointIntervalMin),
		},
		Savings: market.Savings{
			SpotCostTotalUSD:     round(spotTotal, 2),
			OnDemandCostTotalUSD: round(ondemandTotal, 2),
			SavingsUSD:           round(savingsUSD, 2),
			SavingsEUR:           round(savingsUSD*market.EURPerUSD, 2),
			SavingsPct:           round(best.SavingsPct, 1),
			TimeShiftExtraUSD:    round(timeShiftBonus, 2),
		},
		GreenImpact: market.GreenImpact{
			CarbonGCO2KWh:   bestAZ.CarbonGCO2KWh,
			TotalEnergyKWh:  round(totalKWh, 2),
			TotalCO2Grams:   round(totalCO2, 1),
			CO2VsWorstGrams: round(worstCO2, 1),
			CO2SavedGrams:   round(co2Saved, 1),
			Equivalent:      fmt.Sprintf("Equivalent to %.1f km of car travel avoided", co2Saved/120),
		},
		ServerPath: []market.ServerStep{
			{Step: 1, Action: "Launch job on spot GPU", Region: bestRegion, AZ: bestAZ.AZID, GPU: best.SKU, Time: launchTime},
			{Step: 2, Action: "Checkpoint saved to S3 (automatic)", Region: bestRegion, AZ: bestAZ.AZID, GPU: best.SKU, Time: launchTime},
			{Step: 3, Action: "Job complete, results available", Region: bestRegion, AZ: bestAZ.AZID, GPU: best.SKU, Time: req.Deadline},
		},
		RiskAssessment: market.RiskAssessment{
			SpotInterruptionProbability: interruptionRisk(best.Availability),
			EvictionMitigation:          "Smart Checkpointing + AZ-Hopping",
			MaxEvictionsPerHour:         2,
		},
	}

	e.stats.RecordJob(savingsUSD, co2Saved)
	metrics.SimulationsTotal.WithLabelValues("placed").Inc()

	if strategy == market.StartTimeShifted {
		e.publish(market.NewEvent(market.EventTimeshiftScheduled, map[string]any{
			"job_type":            string(req.JobType),
			"model":               req.ModelName,
			"region":              bestRegion,
			"optimal_start":       optimalStart.Format(time.RFC3339),
			"price_reduction_pct": round(shift.PriceReductionPct, 1),
		}))
	}

	e.logger.Info("simulation complete", "region", bestRegion, "az", bestAZ.AZID,
		"sku", best.SKU, "score", round(bestScoreVal, 3), "strategy", strategy)

	return resp, nil
}

func interruptionRisk(a market.Availability) market.InterruptionRisk {
	if a == market.AvailabilityHigh || a == market.AvailabilityMedium {
		return market.RiskLow
	}
	return market.RiskMedium
}

func (e *Engine) publish(ev market.Event) {
	e.bus.Publish(ev)
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()
}

func clampMax(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
