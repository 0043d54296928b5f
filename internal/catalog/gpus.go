package catalog

import "strings"

// Tier buckets GPU SKUs by capability class.
type Tier string

const (
	TierLow     Tier = "low"
	TierMid     Tier = "mid"
	TierHigh    Tier = "high"
	TierPremium Tier = "premium"
	TierUltra   Tier = "ultra"
)

// GPUSpec describes the hardware behind an Azure GPU SKU.
type GPUSpec struct {
	Name     string
	Count    int
	VCPUs    int
	RAMGB    int
	Tier     Tier
}

// gpuCatalog is keyed by a lowercase SKU substring. Lookup picks the
// longest key contained in the SKU so more specific entries win.
var gpuCatalog = map[string]GPUSpec{
	"nc6s_v3":        {Name: "Tesla V100 (16GB)", Count: 1, VCPUs: 6, RAMGB: 112, Tier: TierHigh},
	"nc12s_v3":       {Name: "Tesla V100 (16GB)", Count: 2, VCPUs: 12, RAMGB: 224, Tier: TierHigh},
	"nc24s_v3":       {Name: "Tesla V100 (16GB)", Count: 4, VCPUs: 24, RAMGB: 448, Tier: TierHigh},
	"nc24rs_v3":      {Name: "Tesla V100 (16GB)", Count: 4, VCPUs: 24, RAMGB: 448, Tier: TierHigh},
	"nc4as_t4_v3":    {Name: "Tesla T4 (16GB)", Count: 1, VCPUs: 4, RAMGB: 28, Tier: TierMid},
	"nc8as_t4_v3":    {Name: "Tesla T4 (16GB)", Count: 1, VCPUs: 8, RAMGB: 56, Tier: TierMid},
	"nc16as_t4_v3":   {Name: "Tesla T4 (16GB)", Count: 1, VCPUs: 16, RAMGB: 110, Tier: TierMid},
	"nc64as_t4_v3":   {Name: "Tesla T4 (16GB)", Count: 4, VCPUs: 64, RAMGB: 440, Tier: TierMid},
	"nc8ads_a10_v4":  {Name: "A10 (24GB)", Count: 1, VCPUs: 8, RAMGB: 55, Tier: TierMid},
	"nc16ads_a10_v4": {Name: "A10 (24GB)", Count: 1, VCPUs: 16, RAMGB: 110, Tier: TierMid},
	"nc32ads_a10_v4": {Name: "A10 (24GB)", Count: 2, VCPUs: 32, RAMGB: 220, Tier: TierMid},
	"nc48ads_a100_v4": {Name: "A100 (80GB)", Count: 2, VCPUs: 48, RAMGB: 440, Tier: TierPremium},
	"nc96ads_a100_v4": {Name: "A100 (80GB)", Count: 4, VCPUs: 96, RAMGB: 880, Tier: TierPremium},
	"ncc40ads_h100_v5": {Name: "H100 (80GB)", Count: 1, VCPUs: 40, RAMGB: 320, Tier: TierPremium},
	"nc80adis_h100_v5": {Name: "H100 (80GB)", Count: 2, VCPUs: 80, RAMGB: 640, Tier: TierPremium},
	"nv6ads_a10_v5":  {Name: "A10 (6GB slice)", Count: 1, VCPUs: 6, RAMGB: 55, Tier: TierLow},
	"nv12ads_a10_v5": {Name: "A10 (12GB slice)", Count: 1, VCPUs: 12, RAMGB: 110, Tier: TierLow},
	"nv18ads_a10_v5": {Name: "A10 (18GB slice)", Count: 1, VCPUs: 18, RAMGB: 220, Tier: TierMid},
	"nv36ads_a10_v5": {Name: "A10 (24GB)", Count: 1, VCPUs: 36, RAMGB: 440, Tier: TierMid},
	"nv4as_v4":       {Name: "Radeon MI25 (4GB)", Count: 1, VCPUs: 4, RAMGB: 14, Tier: TierLow},
	"nv8as_v4":       {Name: "Radeon MI25 (8GB)", Count: 1, VCPUs: 8, RAMGB: 28, Tier: TierLow},
	"nv16as_v4":      {Name: "Radeon MI25 (16GB)", Count: 1, VCPUs: 16, RAMGB: 56, Tier: TierLow},
	"nv32as_v4":      {Name: "Radeon MI25 (32GB)", Count: 1, VCPUs: 32, RAMGB: 112, Tier: TierLow},
	"nv12s_v3":       {Name: "Tesla M60 (8GB)", Count: 1, VCPUs: 12, RAMGB: 112, Tier: TierLow},
	"nv24s_v3":       {Name: "Tesla M60 (16GB)", Count: 2, VCPUs: 24, RAMGB: 224, Tier: TierLow},
	"nv48s_v3":       {Name: "Tesla M60 (32GB)", Count: 4, VCPUs: 48, RAMGB: 448, Tier: TierLow},
}

// LookupGPU maps an Azure SKU name to its hardware spec. SKUs without a
// catalog entry are unknown and should be dropped by the caller.
func LookupGPU(sku string) (GPUSpec, bool) {
	s := strings.ToLower(sku)
	var best string
	for key := range gpuCatalog {
		if strings.Contains(s, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return GPUSpec{}, false
	}
	return gpuCatalog[best], true
}

// kwhPerGPUHour is the energy draw per GPU family, kWh per GPU-hour.
var kwhPerGPUHour = map[string]float64{
	"v100": 0.30,
	"t4":   0.07,
	"a10":  0.15,
	"a100": 0.40,
	"h100": 0.70,
	"mi25": 0.10,
	"m60":  0.12,
}

// gpuFamilies is checked in order so "a100" wins over "a10".
var gpuFamilies = []string{"h100", "a100", "a10", "v100", "t4", "mi25", "m60"}

// GPUFamily extracts the family token from a human-readable GPU name.
// Unrecognized names default to v100.
func GPUFamily(gpuName string) string {
	lower := strings.ToLower(gpuName)
	for _, fam := range gpuFamilies {
		if strings.Contains(lower, fam) {
			return fam
		}
	}
	return "v100"
}

// KWhPerGPUHour returns the energy draw of a GPU family.
func KWhPerGPUHour(family string) float64 {
	if v, ok := kwhPerGPUHour[family]; ok {
		return v
	}
	return 0.30
}

// KWhTable returns a copy of the per-family energy table (vision export).
func KWhTable() map[string]float64 {
	out := make(map[string]float64, len(kwhPerGPUHour))
	for k, v := range kwhPerGPUHour {
		out[k] = v
	}
	return out
}
