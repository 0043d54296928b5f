// Package carbon estimates grid carbon intensity for regions without a
// live intensity feed, using the regional generation mix and live weather.
//
// The model: wind and solar capacity factors are derived from the current
// weather, scale the variable share of the mix, and displace gas. The
// weighted sum of per-source emission factors gives gCO2/kWh.
package carbon

import (
	"fmt"
	"math"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/pkg/market"
)

// DefaultIntensity is used when neither a live feed nor a modelled mix is
// available for a region.
const DefaultIntensity = 100.0

// Index maps a gCO2/kWh value onto its categorical band.
func Index(gco2 float64) market.CarbonIndex {
	switch {
	case gco2 < 80:
		return market.CarbonVeryLow
	case gco2 < 150:
		return market.CarbonLow
	case gco2 < 250:
		return market.CarbonModerate
	case gco2 < 400:
		return market.CarbonHigh
	default:
		return market.CarbonVeryHigh
	}
}

// EstimateFromWeather computes the live carbon intensity of a region's grid
// from wind speed (km/h) and direct solar radiation (W/m2). Regions without
// a modelled mix get the default intensity.
func EstimateFromWeather(regionID string, windKmh, solarWM2 float64) market.CarbonObservation {
	mix, ok := catalog.GridMixFor(regionID)
	if !ok {
		return market.CarbonObservation{
			GCO2KWh: DefaultIntensity,
			Index:   market.CarbonLow,
			Source:  "default",
		}
	}

	// Wind capacity factor: cut-in around 5 km/h, rated around 45 km/h.
	windCF := clamp01((windKmh - 5) / 40.0)
	windShare := mix.WindMax * windCF

	// Solar capacity factor: max direct radiation ~800 W/m2 of usable input.
	solarCF := clamp01(solarWM2 / 800.0)
	solarShare := mix.SolarMax * solarCF

	clean := mix.Nuclear + mix.Hydro + windShare + solarShare
	gasShare := 1.0 - clean - mix.CoalBase
	if floor := mix.GasBase * 0.5; gasShare < floor {
		gasShare = floor
	}

	gco2 := mix.Nuclear*catalog.EmissionNuclear +
		mix.Hydro*catalog.EmissionHydro +
		windShare*catalog.EmissionWind +
		solarShare*catalog.EmissionSolar +
		gasShare*catalog.EmissionGas +
		mix.CoalBase*catalog.EmissionCoal

	gco2 = round1(gco2)

	return market.CarbonObservation{
		GCO2KWh: gco2,
		Index:   Index(gco2),
		Source:  fmt.Sprintf("weather model (wind=%.0fkm/h, solar=%.0fW/m2)", windKmh, solarWM2),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
