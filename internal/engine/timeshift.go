package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/metrics"
	"github.com/nervelabs/nerve/pkg/market"
)

// intradayFactors scale the average spot price across the day: deep
// discounts at night, peak around midday. Indexed by UTC hour.
var intradayFactors = [24]float64{
	0.72, 0.65, 0.60, 0.58, 0.60, 0.65,
	0.75, 0.85, 0.92, 0.98, 1.05, 1.10,
	1.12, 1.10, 1.05, 0.98, 0.92, 0.88,
	0.82, 0.78, 0.75, 0.73, 0.72, 0.72,
}

// priceCurve builds the 24h spot price curve for a region from the live
// average price. Without observations the curve is flat at $0.50/h.
func (e *Engine) priceCurve(regionID string) [24]float64 {
	var curve [24]float64

	prices := e.state.Prices(regionID)
	if len(prices) == 0 {
		for h := range curve {
			curve[h] = 0.5
		}
		return curve
	}

	var sum float64
	for _, g := range prices {
		sum += g.SpotPriceUSDHr
	}
	avg := sum / float64(len(prices))
	for h, factor := range intradayFactors {
		curve[h] = round(avg*factor, 4)
	}
	return curve
}

// carbonCurve builds the 24h carbon curve: the current intensity scaled
// down in hours with strong wind or solar. Hours past the forecast keep
// the base value; without a forecast the curve is flat at 100 g.
func (e *Engine) carbonCurve(regionID string) [24]float64 {
	var curve [24]float64

	weather, ok := e.state.Weather(regionID)
	if !ok || len(weather.Hourly) == 0 {
		for h := range curve {
			curve[h] = 100.0
		}
		return curve
	}

	base := 100.0
	if c, ok := e.state.Carbon(regionID); ok {
		base = c.GCO2KWh
	}

	for i := range curve {
		if i >= len(weather.Hourly) {
			curve[i] = base
			continue
		}
		entry := weather.Hourly[i]
		windFactor := 1.0 - entry.WindKmh/100.0
		if windFactor < 0.7 {
			windFactor = 0.7
		}
		solarFactor := 1.0 - entry.SolarWM2/500.0
		if solarFactor < 0.8 {
			solarFactor = 0.8
		}
		curve[i] = round(base*windFactor*solarFactor, 1)
	}
	return curve
}

// optimalWindow finds the cheapest feasible start for a job of the given
// length before the deadline. Returns nil start when the deadline leaves
// no room. Reductions are relative to starting now, clamped at zero.
func (e *Engine) optimalWindow(hoursNeeded float64, deadline time.Time, regionID string) (start, end *time.Time, priceRed, carbonRed float64) {
	now := e.now().UTC()
	hoursInt := int(hoursNeeded) + 1

	hoursUntilDeadline := deadline.Sub(now).Hours()
	if hoursUntilDeadline < hoursNeeded {
		return nil, nil, 0, 0
	}

	priceCurve := e.priceCurve(regionID)
	carbonCurve := e.carbonCurve(regionID)

	windowCost := func(startHour int) float64 {
		var cost float64
		for h := 0; h < hoursInt; h++ {
			cost += priceCurve[(startHour+h)%24]
		}
		return cost
	}
	windowCarbon := func(startHour int) float64 {
		var total float64
		for h := 0; h < hoursInt; h++ {
			total += carbonCurve[(startHour+h)%24]
		}
		return total
	}

	bestOffset := -1
	bestCost := 0.0
	maxOffset := int(hoursUntilDeadline-hoursNeeded) + 1
	for offset := 0; offset < maxOffset; offset++ {
		cost := windowCost((now.Hour() + offset) % 24)
		if bestOffset < 0 || cost < bestCost {
			bestOffset = offset
			bestCost = cost
		}
	}
	if bestOffset < 0 {
		return nil, nil, 0, 0
	}

	optimalStart := now.Add(time.Duration(bestOffset) * time.Hour)
	optimalEnd := optimalStart.Add(time.Duration(hoursNeeded * float64(time.Hour)))

	if currentCost := windowCost(now.Hour()); currentCost > 0 {
		priceRed = (currentCost - bestCost) / currentCost * 100
	}
	if currentCarbon := windowCarbon(now.Hour()); currentCarbon > 0 {
		carbonRed = (currentCarbon - windowCarbon(optimalStart.Hour())) / currentCarbon * 100
	}
	if priceRed < 0 {
		priceRed = 0
	}
	if carbonRed < 0 {
		carbonRed = 0
	}
	return &optimalStart, &optimalEnd, priceRed, carbonRed
}

// timeShiftResult is the internal verdict consumed by the scorer.
type timeShiftResult struct {
	Recommended        bool
	Start, End         *time.Time
	PriceReductionPct  float64
	CarbonReductionPct float64
}

func (e *Engine) shouldTimeShift(deadline time.Time, gpuHours float64, regionID string) timeShiftResult {
	start, end, priceRed, carbonRed := e.optimalWindow(gpuHours, deadline, regionID)
	if start == nil || priceRed <= e.minPriceReductionPct {
		return timeShiftResult{}
	}
	return timeShiftResult{
		Recommended:        true,
		Start:              start,
		End:                end,
		PriceReductionPct:  priceRed,
		CarbonReductionPct: carbonRed,
	}
}

// PlanTimeShift computes the full time-shift recommendation for a job.
func (e *Engine) PlanTimeShift(ctx context.Context, req market.TimeShiftRequest) market.TimeShiftPlan {
	regionID := req.PreferredRegion
	if regionID == "" {
		regionID = catalog.DefaultRegion().ID
	}

	start, end, priceRed, carbonRed := e.optimalWindow(req.EstimatedGPUHours, req.Deadline, regionID)

	recommended := start != nil && priceRed > e.minPriceReductionPct && req.Flexible
	meetsDeadline := true
	if end != nil && end.After(req.Deadline) {
		recommended = false
		meetsDeadline = false
	}

	priceCurve := e.priceCurve(regionID)
	nowHour := e.now().UTC().Hour()
	currentPrice := priceCurve[nowHour]
	optimalPrice := currentPrice
	if start != nil {
		optimalPrice = priceCurve[start.Hour()]
	}

	reason := "The current window is already optimal or the deadline leaves no room to shift"
	if recommended {
		reason = fmt.Sprintf("Shifting the job to %s cuts cost by %.0f%% and carbon by %.0f%% (live %s data)",
			start.Format("15h04"), priceRed, carbonRed, regionID)
	}

	metrics.TimeShiftPlansTotal.WithLabelValues(fmt.Sprintf("%t", recommended)).Inc()
	e.logger.Info("time-shift plan computed", "region", regionID,
		"recommended", recommended, "price_reduction_pct", round(priceRed, 1))

	return market.TimeShiftPlan{
		Recommended:        recommended,
		OptimalWindowStart: start,
		OptimalWindowEnd:   end,
		Reason:             reason,
		EstimatedSpotUSDHr: round(optimalPrice, 4),
		CurrentSpotUSDHr:   round(currentPrice, 4),
		PriceReductionPct:  round(priceRed, 1),
		CarbonReductionPct: round(carbonRed, 1),
		MeetsDeadline:      meetsDeadline,
	}
}
