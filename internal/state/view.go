package state

import (
	"time"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/pkg/market"
)

// Defaults substituted when a region has no observation yet.
const (
	DefaultTempC   = 10.0
	DefaultWindKmh = 15.0
	defaultGCO2    = 56.0
)

// ProjectAZInstances maps region-level price observations onto one AZ:
// jittered spot price, recomputed savings and availability. On-demand
// prices are uniform across zones.
func ProjectAZInstances(prices []market.GpuInstance, azID string, hour int) []market.GpuInstance {
	out := make([]market.GpuInstance, 0, len(prices))
	for _, g := range prices {
		azSpot := AZPriceVariation(g.SpotPriceUSDHr, azID, g.SKU, hour)
		savings := g.SavingsPct
		if g.OnDemandUSDHr > 0 {
			savings = round((1-azSpot/g.OnDemandUSDHr)*100, 1)
		}
		avail := AZAvailabilityShift(
			EstimateAvailability(azSpot, g.OnDemandUSDHr, g.Tier, azSpot), azID)

		g.SpotPriceUSDHr = azSpot
		g.SavingsPct = savings
		g.Availability = avail
		out = append(out, g)
	}
	return out
}

// RegionView assembles the full per-region view: every AZ with its own
// projected GPU offers and a micro-climate offset on the region weather.
// Unknown region ids resolve to the default region.
func (s *MarketState) RegionView(regionID string, now time.Time) market.RegionInfo {
	region := catalog.NormalizeRegion(regionID)
	hour := now.UTC().Hour()

	prices := s.Prices(region.ID)
	weather, ok := s.Weather(region.ID)
	if !ok {
		weather = market.WeatherObservation{CurrentTempC: DefaultTempC, CurrentWindKmh: DefaultWindKmh}
	}
	carbon, ok := s.Carbon(region.ID)
	if !ok {
		carbon = market.CarbonObservation{GCO2KWh: defaultGCO2, Index: market.CarbonLow}
	}

	azs := make([]market.AZInfo, 0, len(region.AZs))
	for i, az := range region.AZs {
		azs = append(azs, market.AZInfo{
			AZID:          az.ID,
			AZName:        az.Name,
			GpuInstances:  ProjectAZInstances(prices, az.ID, hour),
			CarbonGCO2KWh: carbon.GCO2KWh,
			CarbonIndex:   carbon.Index,
			TemperatureC:  round(weather.CurrentTempC+(float64(i)*0.2-0.2), 1),
			WindKmh:       round(weather.CurrentWindKmh+(float64(i)*0.5-0.5), 1),
		})
	}

	return market.RegionInfo{
		RegionID:          region.ID,
		RegionName:        region.Name,
		CloudProvider:     region.CloudProvider,
		Location:          region.Location,
		AvailabilityZones: azs,
	}
}
