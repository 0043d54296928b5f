package market

import "time"

// EURPerUSD is the fixed reference rate used for the EUR figures in
// responses. Savings are computed in USD; the EUR view is informational.
const EURPerUSD = 0.92

// SimulateRequest describes a training job to place on the spot market.
type SimulateRequest struct {
	JobType               JobType   `json:"job_type"`
	ModelName             string    `json:"model_name"`
	EstimatedGPUHours     float64   `json:"estimated_gpu_hours"`
	Deadline              time.Time `json:"deadline"`
	MinGPUMemoryGB        int       `json:"min_gpu_memory_gb"`
	Framework             string    `json:"framework"`
	CheckpointIntervalMin int       `json:"checkpoint_interval_min"`
	PreferredRegion       string    `json:"preferred_region,omitempty"`
}

// Defaults fills unset fields with the documented request defaults.
func (r *SimulateRequest) Defaults() {
	if r.JobType == "" {
		r.JobType = JobLLMFineTuning
	}
	if r.ModelName == "" {
		r.ModelName = "LLaMA-7B"
	}
	if r.EstimatedGPUHours == 0 {
		r.EstimatedGPUHours = 24.0
	}
	if r.MinGPUMemoryGB == 0 {
		r.MinGPUMemoryGB = 16
	}
	if r.Framework == "" {
		r.Framework = "pytorch"
	}
	if r.CheckpointIntervalMin == 0 {
		r.CheckpointIntervalMin = 30
	}
}

// CheckpointSimulateRequest asks for a simulated spot interruption and
// AZ-hop of a running job.
type CheckpointSimulateRequest struct {
	JobID            string  `json:"job_id"`
	CurrentRegion    string  `json:"current_region"`
	CurrentAZ        string  `json:"current_az"`
	CurrentSKU       string  `json:"current_sku"`
	EpochProgressPct float64 `json:"epoch_progress_pct"`
	ModelSizeGB      float64 `json:"model_size_gb"`
}

// TimeShiftRequest asks whether a job should be deferred into a cheaper
// window before its deadline.
type TimeShiftRequest struct {
	JobType           JobType   `json:"job_type"`
	EstimatedGPUHours float64   `json:"estimated_gpu_hours"`
	Deadline          time.Time `json:"deadline"`
	MinGPUMemoryGB    int       `json:"min_gpu_memory_gb"`
	PreferredRegion   string    `json:"preferred_region,omitempty"`
	Flexible          bool      `json:"flexible"`
}

// Decision is the primary placement recommendation.
type Decision struct {
	PrimaryRegion    string        `json:"primary_region"`
	PrimaryAZ        string        `json:"primary_az"`
	GPUSKU           string        `json:"gpu_sku"`
	GPUName          string        `json:"gpu_name"`
	SpotPriceUSDHr   float64       `json:"spot_price_usd_hr"`
	StartStrategy    StartStrategy `json:"start_strategy"`
	OptimalStartTime *time.Time    `json:"optimal_start_time,omitempty"`
	Reason           string        `json:"reason"`
}

// Fallback names the backup placement used on spot interruption.
type Fallback struct {
	SecondaryAZ    string `json:"secondary_az"`
	SecondarySKU   string `json:"secondary_sku"`
	FallbackReason string `json:"fallback_reason"`
}

// CheckpointConfig is the recommended checkpointing policy for the job.
type CheckpointConfig struct {
	RecommendedIntervalMin int     `json:"recommended_interval_min"`
	StorageTarget          string  `json:"storage_target"`
	EstimatedSizeGB        float64 `json:"estimated_checkpoint_size_gb"`
	Reason                 string  `json:"reason"`
}

// Savings summarizes the cost advantage of the recommended placement.
type Savings struct {
	SpotCostTotalUSD     float64 `json:"spot_cost_total_usd"`
	OnDemandCostTotalUSD float64 `json:"ondemand_cost_total_usd"`
	SavingsUSD           float64 `json:"savings_usd"`
	SavingsEUR           float64 `json:"savings_eur"`
	SavingsPct           float64 `json:"savings_pct"`
	TimeShiftExtraUSD    float64 `json:"time_shift_extra_savings_usd"`
}

// GreenImpact summarizes the carbon footprint of the recommended placement.
type GreenImpact struct {
	CarbonGCO2KWh      float64 `json:"carbon_intensity_gco2_kwh"`
	TotalEnergyKWh     float64 `json:"total_energy_kwh"`
	TotalCO2Grams      float64 `json:"total_co2_grams"`
	CO2VsWorstGrams    float64 `json:"co2_vs_worst_region_grams"`
	CO2SavedGrams      float64 `json:"co2_saved_grams"`
	Equivalent         string  `json:"equivalent"`
}

// ServerStep is one step of the job's planned lifecycle.
type ServerStep struct {
	Step   int       `json:"step"`
	Action string    `json:"action"`
	Region string    `json:"region"`
	AZ     string    `json:"az"`
	GPU    string    `json:"gpu"`
	Time   time.Time `json:"time"`
}

// RiskAssessment grades the interruption exposure of the placement.
type RiskAssessment struct {
	SpotInterruptionProbability InterruptionRisk `json:"spot_interruption_probability"`
	EvictionMitigation          string           `json:"eviction_mitigation"`
	MaxEvictionsPerHour         int              `json:"max_evictions_per_hour"`
}

// SimulateResponse is the full placement recommendation.
type SimulateResponse struct {
	Decision       Decision         `json:"decision"`
	Fallback       Fallback         `json:"fallback"`
	Checkpointing  CheckpointConfig `json:"checkpointing"`
	Savings        Savings          `json:"savings"`
	GreenImpact    GreenImpact      `json:"green_impact"`
	ServerPath     []ServerStep     `json:"server_path"`
	RiskAssessment RiskAssessment   `json:"risk_assessment"`
}

// TimelineStep is one entry of the simulated evacuation timeline.
type TimelineStep struct {
	TimeSec float64 `json:"time_sec"`
	Event   string  `json:"event"`
}

// CheckpointEvent is the result of a simulated interruption + migration.
type CheckpointEvent struct {
	JobID            string         `json:"job_id"`
	Status           string         `json:"status"`
	CheckpointSaved  bool           `json:"checkpoint_saved"`
	CheckpointSizeGB float64        `json:"checkpoint_size_gb"`
	SaveDurationSec  float64        `json:"save_duration_sec"`
	FromAZ           string         `json:"from_az"`
	ToAZ             string         `json:"to_az"`
	DowntimeMs       int            `json:"downtime_ms"`
	EpochProgressPct float64        `json:"epoch_progress_pct"`
	Resumed          bool           `json:"resumed"`
	Timeline         []TimelineStep `json:"timeline"`
}

// TimeShiftPlan is the recommendation returned by the time-shifter.
type TimeShiftPlan struct {
	Recommended         bool       `json:"recommended"`
	OptimalWindowStart  *time.Time `json:"optimal_window_start,omitempty"`
	OptimalWindowEnd    *time.Time `json:"optimal_window_end,omitempty"`
	Reason              string     `json:"reason"`
	EstimatedSpotUSDHr  float64    `json:"estimated_spot_price_usd_hr"`
	CurrentSpotUSDHr    float64    `json:"current_spot_price_usd_hr"`
	PriceReductionPct   float64    `json:"price_reduction_pct"`
	CarbonReductionPct  float64    `json:"carbon_reduction_pct"`
	MeetsDeadline       bool       `json:"meets_deadline"`
}

// DashboardStats is the aggregated FinOps/GreenOps counters view.
type DashboardStats struct {
	TotalJobsManaged       int       `json:"total_jobs_managed"`
	TotalSavingsUSD        float64   `json:"total_savings_usd"`
	TotalSavingsEUR        float64   `json:"total_savings_eur"`
	TotalCO2SavedGrams     float64   `json:"total_co2_saved_grams"`
	TotalCheckpointsSaved  int       `json:"total_checkpoints_saved"`
	TotalEvictionsHandled  int       `json:"total_evictions_handled"`
	AvgSavingsPct          float64   `json:"avg_savings_pct"`
	UptimePct              float64   `json:"uptime_pct"`
	RegionsMonitored       []string  `json:"regions_monitored"`
	LastUpdated            time.Time `json:"last_updated"`
}
