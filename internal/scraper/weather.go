package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/pkg/market"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

const weatherFetchTimeout = 10 * time.Second

// openMeteoResponse holds the hourly forecast columns we request.
type openMeteoResponse struct {
	Hourly struct {
		Time            []string  `json:"time"`
		Temperature2M   []float64 `json:"temperature_2m"`
		Windspeed10M    []float64 `json:"windspeed_10m"`
		DirectRadiation []float64 `json:"direct_radiation"`
	} `json:"hourly"`
}

// fetchWeather pulls today's hourly forecast for a region and picks the
// current UTC hour as the live reading. On failure it returns a neutral
// observation so downstream consumers always have values to work with.
func (s *Scraper) fetchWeather(ctx context.Context, region *catalog.Region, now time.Time) market.WeatherObservation {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(region.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(region.Lon, 'f', 4, 64))
	q.Set("hourly", "temperature_2m,windspeed_10m,direct_radiation")
	q.Set("timezone", region.Timezone)
	q.Set("forecast_days", "1")

	wCtx, cancel := context.WithTimeout(ctx, weatherFetchTimeout)
	defer cancel()
	var resp openMeteoResponse
	if err := s.getJSON(wCtx, openMeteoURL+"?"+q.Encode(), &resp); err != nil {
		s.recordError("weather", region.ID, fmt.Sprintf("Weather %s: %v", region.ID, err))
		return market.WeatherObservation{
			CurrentTempC:   state.DefaultTempC,
			CurrentWindKmh: state.DefaultWindKmh,
		}
	}

	temps := resp.Hourly.Temperature2M
	winds := resp.Hourly.Windspeed10M
	solar := resp.Hourly.DirectRadiation
	hours := resp.Hourly.Time

	nowHour := now.UTC().Hour()
	obs := market.WeatherObservation{
		CurrentTempC:   state.DefaultTempC,
		CurrentWindKmh: state.DefaultWindKmh,
	}
	if nowHour < len(temps) {
		obs.CurrentTempC = temps[nowHour]
	} else if len(temps) > 0 {
		obs.CurrentTempC = temps[0]
	}
	if nowHour < len(winds) {
		obs.CurrentWindKmh = winds[nowHour]
	} else if len(winds) > 0 {
		obs.CurrentWindKmh = winds[0]
	}
	if nowHour < len(solar) {
		obs.CurrentSolarWM2 = solar[nowHour]
	}

	n := len(temps)
	if n > 24 {
		n = 24
	}
	for i := 0; i < n; i++ {
		h := market.HourlyWeather{
			Hour:    fmt.Sprintf("%02d:00", i),
			TempC:   temps[i],
			WindKmh: state.DefaultWindKmh,
		}
		if i < len(hours) {
			h.Hour = hours[i]
		}
		if i < len(winds) {
			h.WindKmh = winds[i]
		}
		if i < len(solar) {
			h.SolarWM2 = solar[i]
		}
		obs.Hourly = append(obs.Hourly, h)
	}

	s.logger.Info("weather fetched", "region", region.ID,
		"temp_c", obs.CurrentTempC, "wind_kmh", obs.CurrentWindKmh)
	return obs
}
