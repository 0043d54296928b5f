// Package market defines the shared domain types of the NERVE engine:
// spot-market observations, availability and carbon classifications, and
// the request/response payloads served by the API.
package market

import "time"

// JobType classifies the workload being placed.
type JobType string

const (
	JobLLMFineTuning JobType = "llm_fine_tuning"
	JobLLMInference  JobType = "llm_inference"
	JobRendering3D   JobType = "rendering_3d"
	JobDataETL       JobType = "data_etl"
)

// Availability is the spot capacity tier derived from the spot/on-demand
// price ratio. A small discount means high contention and scarce capacity.
type Availability string

const (
	AvailabilityHigh    Availability = "high"
	AvailabilityMedium  Availability = "medium"
	AvailabilityLow     Availability = "low"
	AvailabilityVeryLow Availability = "very_low"
)

// Downgrade returns the next-worse availability tier.
func (a Availability) Downgrade() Availability {
	switch a {
	case AvailabilityHigh:
		return AvailabilityMedium
	case AvailabilityMedium:
		return AvailabilityLow
	}
	return a
}

// CarbonIndex is the categorical band of a grid carbon intensity value.
type CarbonIndex string

const (
	CarbonVeryLow  CarbonIndex = "very low"
	CarbonLow      CarbonIndex = "low"
	CarbonModerate CarbonIndex = "moderate"
	CarbonHigh     CarbonIndex = "high"
	CarbonVeryHigh CarbonIndex = "very high"
)

// StartStrategy says whether a job should launch now or be deferred into a
// cheaper window.
type StartStrategy string

const (
	StartImmediate   StartStrategy = "immediate"
	StartTimeShifted StartStrategy = "time_shifted"
)

// InterruptionRisk grades the probability of a spot eviction.
type InterruptionRisk string

const (
	RiskLow    InterruptionRisk = "low"
	RiskMedium InterruptionRisk = "medium"
	RiskHigh   InterruptionRisk = "high"
)

// GpuInstance is one priced (SKU, GPU) observation, either region-level as
// scraped or AZ-projected with deterministic jitter applied.
type GpuInstance struct {
	SKU               string       `json:"sku"`
	GPUName           string       `json:"gpu_name"`
	GPUCount          int          `json:"gpu_count"`
	VCPUs             int          `json:"vcpus"`
	RAMGB             int          `json:"ram_gb"`
	SpotPriceUSDHr    float64      `json:"spot_price_usd_hr"`
	OnDemandUSDHr     float64      `json:"ondemand_price_usd_hr"`
	SavingsPct        float64      `json:"savings_pct"`
	Availability      Availability `json:"availability"`
	Tier              string       `json:"-"`
}

// AZInfo is one availability zone with its projected GPU offers and the
// region-level environmental context it inherits.
type AZInfo struct {
	AZID            string        `json:"az_id"`
	AZName          string        `json:"az_name"`
	GpuInstances    []GpuInstance `json:"gpu_instances"`
	CarbonGCO2KWh   float64       `json:"carbon_intensity_gco2_kwh"`
	CarbonIndex     CarbonIndex   `json:"carbon_index"`
	TemperatureC    float64       `json:"temperature_c"`
	WindKmh         float64       `json:"wind_kmh"`
	Score           *float64      `json:"score,omitempty"`
}

// RegionInfo is the full per-region view served by the API.
type RegionInfo struct {
	RegionID          string   `json:"region_id"`
	RegionName        string   `json:"region_name"`
	CloudProvider     string   `json:"cloud_provider"`
	Location          string   `json:"location"`
	AvailabilityZones []AZInfo `json:"availability_zones"`
}

// HourlyWeather is one row of the 24h Open-Meteo forecast.
type HourlyWeather struct {
	Hour      string  `json:"hour"`
	TempC     float64 `json:"temp_c"`
	WindKmh   float64 `json:"wind_kmh"`
	SolarWM2  float64 `json:"solar_wm2"`
}

// WeatherObservation is the last scraped weather snapshot for a region.
type WeatherObservation struct {
	CurrentTempC    float64         `json:"current_temp_c"`
	CurrentWindKmh  float64         `json:"current_wind_kmh"`
	CurrentSolarWM2 float64         `json:"current_solar_wm2"`
	Hourly          []HourlyWeather `json:"hourly"`
}

// CarbonObservation is the last known grid carbon intensity for a region,
// either from the live UK API or synthesized by the weather model.
type CarbonObservation struct {
	GCO2KWh float64     `json:"gco2_kwh"`
	Index   CarbonIndex `json:"index"`
	Source  string      `json:"source"`
	From    string      `json:"from,omitempty"`
	To      string      `json:"to,omitempty"`
}

// PriceHistoryEntry is one per-cycle snapshot in the bounded history ring.
type PriceHistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Hour           int       `json:"hour"`
	AvgSpot        float64   `json:"avg_spot"`
	MinSpot        float64   `json:"min_spot"`
	MaxSpot        float64   `json:"max_spot"`
	AvgComputeSpot float64   `json:"avg_compute_spot"`
	GPUCount       int       `json:"gpu_count"`
}

// EventType enumerates the envelopes published on the event bus.
type EventType string

const (
	EventPriceUpdate        EventType = "az_price_update"
	EventCheckpoint         EventType = "checkpoint_event"
	EventMigrationComplete  EventType = "migration_complete"
	EventTimeshiftScheduled EventType = "timeshift_scheduled"
	EventSpotInterruption   EventType = "spot_interruption"
)

// Event is the envelope published to feed subscribers. Data carries the
// type-specific fields and is flattened into the JSON object on the wire.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"-"`
}
