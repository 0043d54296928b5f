package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/nervelabs/nerve/internal/carbon"
	"github.com/nervelabs/nerve/pkg/market"
)

// carbonIntensityURL serves the live national grid intensity for the UK.
const carbonIntensityURL = "https://api.carbonintensity.org.uk/intensity"

const carbonFetchTimeout = 10 * time.Second

type carbonIntensityResponse struct {
	Data []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Intensity struct {
			Forecast float64  `json:"forecast"`
			Actual   *float64 `json:"actual"`
			Index    string   `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

// carbonFromModel synthesizes the grid carbon intensity of a region from
// the current weather. Used for regions without a live feed, and as the
// fallback when the live UK fetch fails.
func (s *Scraper) carbonFromModel(regionID string, weather market.WeatherObservation) market.CarbonObservation {
	obs := carbon.EstimateFromWeather(regionID, weather.CurrentWindKmh, weather.CurrentSolarWM2)
	s.logger.Info("carbon modelled", "region", regionID,
		"gco2_kwh", obs.GCO2KWh, "index", obs.Index)
	return obs
}

func (s *Scraper) fetchCarbonUK(ctx context.Context) (market.CarbonObservation, error) {
	cCtx, cancel := context.WithTimeout(ctx, carbonFetchTimeout)
	defer cancel()
	var resp carbonIntensityResponse
	if err := s.getJSON(cCtx, carbonIntensityURL, &resp); err != nil {
		return market.CarbonObservation{}, err
	}
	if len(resp.Data) == 0 {
		return market.CarbonObservation{}, fmt.Errorf("empty intensity data")
	}

	entry := resp.Data[0]
	value := entry.Intensity.Forecast
	if entry.Intensity.Actual != nil && *entry.Intensity.Actual != 0 {
		value = *entry.Intensity.Actual
	}
	if value == 0 {
		value = 120
	}
	index := market.CarbonIndex(entry.Intensity.Index)
	if index == "" {
		index = market.CarbonLow
	}

	s.logger.Info("carbon fetched", "region", "uksouth", "gco2_kwh", value, "index", index)
	return market.CarbonObservation{
		GCO2KWh: value,
		Index:   index,
		Source:  "carbonintensity.org.uk (LIVE)",
		From:    entry.From,
		To:      entry.To,
	}, nil
}
