package state

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nervelabs/nerve/pkg/market"
)

// EstimateAvailability derives spot capacity from the spot/on-demand price
// ratio. A small discount means the pool is contended; a deep discount
// means capacity is plentiful. Without an on-demand reference the GPU tier
// is the fallback signal.
func EstimateAvailability(spot, ondemand float64, tier string, price float64) market.Availability {
	if ondemand > 0 && spot > 0 {
		ratio := spot / ondemand
		switch {
		case ratio > 0.70:
			return market.AvailabilityLow
		case ratio > 0.45:
			return market.AvailabilityMedium
		default:
			return market.AvailabilityHigh
		}
	}

	switch tier {
	case "premium":
		return market.AvailabilityLow
	case "high":
		if price > 2.0 {
			return market.AvailabilityMedium
		}
		return market.AvailabilityHigh
	default:
		return market.AvailabilityHigh
	}
}

// AZPriceVariation applies the deterministic per-AZ price jitter. Each AZ
// has its own capacity pool, so the same SKU trades at slightly different
// prices across zones; the jitter is a pure function of (az, sku, hour) so
// every component projects identical AZ prices within the hour.
func AZPriceVariation(basePrice float64, azID, sku string, hour int) float64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%d", azID, sku, hour)))
	val := float64(binary.BigEndian.Uint32(sum[:4]))/0xFFFFFFFF*2 - 1
	return round(basePrice*(1+val*0.05), 6)
}

// AZAvailabilityShift downgrades availability one step for roughly one AZ
// in three, deterministically per zone.
func AZAvailabilityShift(base market.Availability, azID string) market.Availability {
	sum := md5.Sum([]byte(azID + ":load"))
	if binary.BigEndian.Uint16(sum[:2])%10 < 3 {
		return base.Downgrade()
	}
	return base
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
