package catalog

// GridMix is the generation mix of a regional grid. Nuclear, hydro and coal
// are treated as constant baseload; wind and solar scale with live weather;
// gas fills whatever demand remains.
type GridMix struct {
	Nuclear  float64
	Hydro    float64
	WindMax  float64
	SolarMax float64
	GasBase  float64
	CoalBase float64
}

// gridMixes per region. UK South is absent: its intensity comes from the
// live carbonintensity.org.uk API instead of the model.
var gridMixes = map[string]GridMix{
	"francecentral": {
		Nuclear:  0.70,
		Hydro:    0.12,
		WindMax:  0.10,
		SolarMax: 0.05,
		GasBase:  0.08,
	},
	"westeurope": {
		Nuclear:  0.03,
		Hydro:    0.00,
		WindMax:  0.22,
		SolarMax: 0.12,
		GasBase:  0.52,
		CoalBase: 0.05,
	},
}

// GridMixFor returns the generation mix for a region; ok is false when the
// region has no modelled mix.
func GridMixFor(regionID string) (GridMix, bool) {
	m, ok := gridMixes[regionID]
	return m, ok
}

// Emission factors in gCO2/kWh per generation source.
const (
	EmissionNuclear = 12
	EmissionHydro   = 24
	EmissionWind    = 11
	EmissionSolar   = 45
	EmissionGas     = 490
	EmissionCoal    = 820
	EmissionBiomass = 230
	EmissionOther   = 300
)
