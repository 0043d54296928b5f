package engine

import (
	"context"
	"fmt"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/metrics"
	"github.com/nervelabs/nerve/pkg/market"
)

// s3UploadGBps is the assumed checkpoint upload throughput.
const s3UploadGBps = 1.2

// checkpointRatio: optimizer state plus weights compress to about 80% of
// the resident model size.
const checkpointRatio = 0.8

// SimulateInterruption runs the evacuation protocol for a simulated spot
// eviction: checkpoint to S3, cordon, re-provision in the neighbor AZ,
// restore, resume. Timeline text is enriched with live market data for the
// affected region when available.
func (e *Engine) SimulateInterruption(ctx context.Context, req market.CheckpointSimulateRequest) market.CheckpointEvent {
	targetAZ := catalog.NeighborAZ(req.CurrentAZ)
	checkpointSizeGB := req.ModelSizeGB * checkpointRatio
	uploadSec := checkpointSizeGB / s3UploadGBps

	targetGPUInfo := "same SKU"
	for _, g := range e.state.Prices(req.CurrentRegion) {
		if g.SKU == req.CurrentSKU {
			targetGPUInfo = fmt.Sprintf("%s @ $%v/h (LIVE)", g.GPUName, g.SpotPriceUSDHr)
			break
		}
	}

	tempText, carbonText := "?", "?"
	if w, ok := e.state.Weather(req.CurrentRegion); ok {
		tempText = fmt.Sprintf("%v", w.CurrentTempC)
	}
	if c, ok := e.state.Carbon(req.CurrentRegion); ok {
		carbonText = fmt.Sprintf("%v", c.GCO2KWh)
	}

	timeline := []market.TimelineStep{
		{TimeSec: 0.0, Event: "Spot interruption notice received (metadata endpoint 169.254.169.254)"},
		{TimeSec: 1.5, Event: "NERVE signals PyTorch: torch.save() triggered"},
		{TimeSec: round(1.5+uploadSec, 1), Event: fmt.Sprintf("Checkpoint (%.1f GB) uploaded to S3", checkpointSizeGB)},
		{TimeSec: round(2.0+uploadSec, 1), Event: fmt.Sprintf("kubectl cordon %s: node cordoned", req.CurrentAZ)},
		{TimeSec: round(25.0+uploadSec, 1), Event: fmt.Sprintf("New spot GPU provisioned in %s: %s", targetAZ, targetGPUInfo)},
		{TimeSec: round(35.0+uploadSec, 1), Event: "Checkpoint downloaded from S3: torch.load()"},
		{TimeSec: round(40.0+uploadSec, 1), Event: fmt.Sprintf("Training resumed at %v%%, zero loss (weather: %s°C, carbon: %s gCO2/kWh)",
			req.EpochProgressPct, tempText, carbonText)},
	}

	e.stats.RecordCheckpoint()
	e.stats.RecordEviction()
	metrics.CheckpointSimulationsTotal.Inc()

	e.publish(market.NewEvent(market.EventCheckpoint, map[string]any{
		"job_id":             req.JobID,
		"status":             "saved",
		"progress_pct":       req.EpochProgressPct,
		"checkpoint_size_gb": round(checkpointSizeGB, 2),
	}))
	e.publish(market.NewEvent(market.EventMigrationComplete, map[string]any{
		"job_id":      req.JobID,
		"from_az":     req.CurrentAZ,
		"to_az":       targetAZ,
		"downtime_ms": 0,
		"reason":      "Spot interruption: AZ-Hopping",
	}))

	e.logger.Info("interruption simulated", "job_id", req.JobID,
		"from_az", req.CurrentAZ, "to_az", targetAZ,
		"checkpoint_gb", round(checkpointSizeGB, 2))

	return market.CheckpointEvent{
		JobID:            req.JobID,
		Status:           "migrated",
		CheckpointSaved:  true,
		CheckpointSizeGB: round(checkpointSizeGB, 2),
		SaveDurationSec:  round(uploadSec, 2),
		FromAZ:           req.CurrentAZ,
		ToAZ:             targetAZ,
		DowntimeMs:       0,
		EpochProgressPct: req.EpochProgressPct,
		Resumed:          true,
		Timeline:         timeline,
	}
}
