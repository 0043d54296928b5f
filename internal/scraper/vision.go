package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/pkg/market"
)

// The vision export is a single self-contained JSON snapshot of the whole
// market state, written after every cycle for offline analysis tooling.

type visionFile struct {
	Metadata        visionMetadata          `json:"metadata"`
	JobContext      visionJobContext        `json:"job_context"`
	Regions         map[string]visionRegion `json:"regions"`
	ScoringWeights  map[string]any          `json:"scoring_weights"`
	ReferencePrices visionReference         `json:"reference_prices"`
}

type visionMetadata struct {
	ScrapeTimestamp string   `json:"scrape_timestamp"`
	Version         string   `json:"version"`
	ScrapeCount     int      `json:"scrape_count"`
	Sources         []string `json:"sources"`
	TargetRegions   []string `json:"target_regions"`
}

type visionJobContext struct {
	JobType               string `json:"job_type"`
	Model                 string `json:"model"`
	EstimatedGPUHours     int    `json:"estimated_gpu_hours"`
	CheckpointIntervalMin int    `json:"checkpoint_interval_min"`
	MinGPUMemoryGB        int    `json:"min_gpu_memory_gb"`
	Framework             string `json:"framework"`
}

type visionRegion struct {
	CloudProvider     string              `json:"cloud_provider"`
	Location          string              `json:"location"`
	Coordinates       visionCoords        `json:"coordinates"`
	AvailabilityZones map[string]visionAZ `json:"availability_zones"`
	Weather           visionWeather       `json:"weather"`
	CarbonIntensity   visionCarbon        `json:"carbon_intensity"`
}

type visionCoords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type visionAZ struct {
	Name          string           `json:"name"`
	GpuSpotPrices []visionGPUPrice `json:"gpu_spot_prices"`
}

type visionGPUPrice struct {
	SKU            string  `json:"sku"`
	GPU            string  `json:"gpu"`
	GPUCount       int     `json:"gpu_count"`
	VCPUs          int     `json:"vcpus"`
	RAMGB          int     `json:"ram_gb"`
	SpotPriceUSDHr float64 `json:"spot_price_usd_hr"`
	OnDemandUSDHr  float64 `json:"ondemand_price_usd_hr"`
	SavingsPct     float64 `json:"savings_pct"`
	Availability   string  `json:"availability"`
}

type visionWeather struct {
	Source             string             `json:"source"`
	CurrentTempC       float64            `json:"current_temp_c"`
	CurrentWindKmh     float64            `json:"current_wind_kmh"`
	CurrentSolarWM2    float64            `json:"current_solar_wm2"`
	HourlyForecast     []visionHourly     `json:"hourly_forecast"`
	CoolingAdvantage   string             `json:"cooling_advantage"`
	RenewablePotential string             `json:"renewable_potential"`
}

type visionHourly struct {
	Hour             string  `json:"hour"`
	TempC            float64 `json:"temp_c"`
	WindKmh          float64 `json:"wind_kmh"`
	SolarRadiationW  float64 `json:"solar_radiation_wm2"`
}

type visionCarbon struct {
	Source          string             `json:"source"`
	CurrentGCO2KWh  float64            `json:"current_gco2_kwh"`
	Index           market.CarbonIndex `json:"index"`
}

type visionReference struct {
	CurrencyEURUSD   float64            `json:"currency_eur_usd"`
	AvgDatacenterPUE float64            `json:"avg_datacenter_pue"`
	KWhPerGPUHour    map[string]float64 `json:"kwh_per_gpu_hour"`
}

// ExportVision writes the full market snapshot to every configured path,
// atomically per file.
func (s *Scraper) ExportVision(now time.Time) error {
	v := s.buildVision(now)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling vision snapshot: %w", err)
	}

	for _, path := range s.visionPaths {
		if err := writeFileAtomic(path, data); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		s.logger.Info("vision snapshot exported", "path", path)
	}
	return nil
}

func (s *Scraper) buildVision(now time.Time) visionFile {
	hour := now.UTC().Hour()
	regions := make(map[string]visionRegion, len(catalog.Regions()))

	for _, region := range catalog.Regions() {
		prices := s.state.Prices(region.ID)
		weather, ok := s.state.Weather(region.ID)
		if !ok {
			weather = market.WeatherObservation{CurrentTempC: state.DefaultTempC, CurrentWindKmh: state.DefaultWindKmh}
		}
		carbonObs, ok := s.state.Carbon(region.ID)
		if !ok {
			carbonObs = market.CarbonObservation{GCO2KWh: 100, Index: market.CarbonModerate, Source: "unknown"}
		}

		azs := make(map[string]visionAZ, len(region.AZs))
		for _, az := range region.AZs {
			projected := state.ProjectAZInstances(prices, az.ID, hour)
			rows := make([]visionGPUPrice, 0, len(projected))
			for _, g := range projected {
				rows = append(rows, visionGPUPrice{
					SKU:            g.SKU,
					GPU:            g.GPUName,
					GPUCount:       g.GPUCount,
					VCPUs:          g.VCPUs,
					RAMGB:          g.RAMGB,
					SpotPriceUSDHr: round(g.SpotPriceUSDHr, 4),
					OnDemandUSDHr:  round(g.OnDemandUSDHr, 4),
					SavingsPct:     g.SavingsPct,
					Availability:   string(g.Availability),
				})
			}
			azs[az.ID] = visionAZ{Name: az.Name, GpuSpotPrices: rows}
		}

		hourly := make([]visionHourly, 0, len(weather.Hourly))
		for _, h := range weather.Hourly {
			hourly = append(hourly, visionHourly{
				Hour:            h.Hour,
				TempC:           h.TempC,
				WindKmh:         h.WindKmh,
				SolarRadiationW: h.SolarWM2,
			})
		}

		regions[region.ID] = visionRegion{
			CloudProvider:     region.CloudProvider,
			Location:          region.Location,
			Coordinates:       visionCoords{Lat: region.Lat, Lng: region.Lon},
			AvailabilityZones: azs,
			Weather: visionWeather{
				Source:             "open-meteo.com (LIVE)",
				CurrentTempC:       weather.CurrentTempC,
				CurrentWindKmh:     weather.CurrentWindKmh,
				CurrentSolarWM2:    weather.CurrentSolarWM2,
				HourlyForecast:     hourly,
				CoolingAdvantage:   coolingSummary(weather.CurrentTempC),
				RenewablePotential: renewableSummary(weather.CurrentWindKmh, weather.CurrentSolarWM2),
			},
			CarbonIntensity: visionCarbon{
				Source:         carbonObs.Source,
				CurrentGCO2KWh: carbonObs.GCO2KWh,
				Index:          carbonObs.Index,
			},
		}
	}

	return visionFile{
		Metadata: visionMetadata{
			ScrapeTimestamp: now.Format(time.RFC3339),
			Version:         "2.0",
			ScrapeCount:     s.state.ScrapeCount(),
			Sources: []string{
				"Azure Retail Prices API (LIVE)",
				"Open-Meteo API (LIVE)",
				"Carbon Intensity UK API (LIVE)",
				"NERVE physics-based carbon model (FR/NL)",
			},
			TargetRegions: catalog.RegionIDs(),
		},
		JobContext: visionJobContext{
			JobType:               string(market.JobLLMFineTuning),
			Model:                 "LLaMA-7B",
			EstimatedGPUHours:     24,
			CheckpointIntervalMin: 30,
			MinGPUMemoryGB:        16,
			Framework:             "pytorch",
		},
		Regions:         regions,
		ScoringWeights:  engine.ScoringWeights(),
		ReferencePrices: visionReference{
			CurrencyEURUSD:   market.EURPerUSD,
			AvgDatacenterPUE: 1.2,
			KWhPerGPUHour:    catalog.KWhTable(),
		},
	}
}

func coolingSummary(tempC float64) string {
	cooling := "poor"
	if tempC < 10 {
		cooling = "good"
	} else if tempC < 18 {
		cooling = "moderate"
	}
	return fmt.Sprintf("%s - %.1f°C", cooling, tempC)
}

func renewableSummary(windKmh, solarWM2 float64) string {
	var wind string
	switch {
	case windKmh > 20:
		wind = fmt.Sprintf("high wind (%.0f km/h)", windKmh)
	case windKmh > 10:
		wind = fmt.Sprintf("moderate wind (%.0f km/h)", windKmh)
	default:
		wind = fmt.Sprintf("low wind (%.0f km/h)", windKmh)
	}
	var solar string
	switch {
	case solarWM2 > 200:
		solar = fmt.Sprintf("high solar (%.0f W/m2)", solarWM2)
	case solarWM2 > 50:
		solar = fmt.Sprintf("moderate solar (%.0f W/m2)", solarWM2)
	default:
		solar = fmt.Sprintf("low solar (%.0f W/m2)", solarWM2)
	}
	return wind + ", " + solar
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".vision-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
