package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/nervelabs/nerve/pkg/market"
)

// Sanity bounds for spot prices. Values outside these bounds are rejected
// to keep bad API data out of recommendations.
const (
	minValidPrice = 0.001
	maxValidPrice = 200.0
)

// ValidatePrice reports whether a price falls within sane bounds.
func ValidatePrice(price float64) bool {
	return price >= minValidPrice && price <= maxValidPrice
}

// snapshotTTL bounds how stale a persisted snapshot may be and still be
// used to warm-start the in-memory state.
const snapshotTTL = 24 * time.Hour

// PriceCache persists the last known GPU price observations per region.
// All methods are nil-safe: a PriceCache with a nil *sql.DB is a no-op, so
// the engine runs fine without a database.
type PriceCache struct {
	db *sql.DB
}

// NewPriceCache wraps db, which may be nil.
func NewPriceCache(db *sql.DB) *PriceCache {
	return &PriceCache{db: db}
}

// SaveRegion upserts the full price observation set of a region in one
// transaction. Failures are logged and swallowed; persistence is best
// effort and never fails a scrape cycle.
func (c *PriceCache) SaveRegion(regionID string, instances []market.GpuInstance) {
	if c == nil || c.db == nil {
		return
	}

	tx, err := c.db.Begin()
	if err != nil {
		slog.Error("price cache: begin tx", "region", regionID, "error", err)
		return
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO price_snapshots
		 (region, sku, gpu_name, gpu_count, vcpus, ram_gb, spot_price_usd_hr,
		  ondemand_price_usd_hr, savings_pct, availability, tier, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		slog.Error("price cache: prepare", "region", regionID, "error", err)
		return
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, g := range instances {
		if !ValidatePrice(g.SpotPriceUSDHr) {
			continue
		}
		if _, err := stmt.Exec(regionID, g.SKU, g.GPUName, g.GPUCount, g.VCPUs,
			g.RAMGB, g.SpotPriceUSDHr, g.OnDemandUSDHr, g.SavingsPct,
			string(g.Availability), g.Tier, now); err != nil {
			slog.Error("price cache: upsert", "region", regionID, "sku", g.SKU, "error", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("price cache: commit", "region", regionID, "error", err)
	}
}

// LoadRegion returns the persisted observations for a region that are
// fresher than the snapshot TTL. Returns nil on miss or error.
func (c *PriceCache) LoadRegion(regionID string) []market.GpuInstance {
	if c == nil || c.db == nil {
		return nil
	}

	cutoff := time.Now().Add(-snapshotTTL).Unix()
	rows, err := c.db.Query(
		`SELECT sku, gpu_name, gpu_count, vcpus, ram_gb, spot_price_usd_hr,
		        ondemand_price_usd_hr, savings_pct, availability, tier
		 FROM price_snapshots WHERE region = ? AND updated_at > ?
		 ORDER BY sku`,
		regionID, cutoff,
	)
	if err != nil {
		slog.Error("price cache: query", "region", regionID, "error", err)
		return nil
	}
	defer rows.Close()

	var out []market.GpuInstance
	for rows.Next() {
		var g market.GpuInstance
		var avail string
		if err := rows.Scan(&g.SKU, &g.GPUName, &g.GPUCount, &g.VCPUs, &g.RAMGB,
			&g.SpotPriceUSDHr, &g.OnDemandUSDHr, &g.SavingsPct, &avail, &g.Tier); err != nil {
			continue
		}
		g.Availability = market.Availability(avail)
		out = append(out, g)
	}
	return out
}
