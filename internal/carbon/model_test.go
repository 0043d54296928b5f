package carbon

import (
	"testing"

	"github.com/nervelabs/nerve/pkg/market"
)

func TestIndexBands(t *testing.T) {
	tests := []struct {
		gco2 float64
		want market.CarbonIndex
	}{
		{50, market.CarbonVeryLow},
		{80, market.CarbonLow},
		{149.9, market.CarbonLow},
		{200, market.CarbonModerate},
		{399, market.CarbonHigh},
		{600, market.CarbonVeryHigh},
	}
	for _, tt := range tests {
		if got := Index(tt.gco2); got != tt.want {
			t.Errorf("Index(%v) = %q, want %q", tt.gco2, got, tt.want)
		}
	}
}

func TestEstimateFromWeatherFrance(t *testing.T) {
	// windCF = (15-5)/40 = 0.25, windShare = 0.025, no solar.
	// gas fills 1 - (0.70+0.12+0.025) = 0.155.
	// 0.70*12 + 0.12*24 + 0.025*11 + 0.155*490 = 87.5
	obs := EstimateFromWeather("francecentral", 15.0, 0.0)
	if obs.GCO2KWh != 87.5 {
		t.Errorf("GCO2KWh = %v, want 87.5", obs.GCO2KWh)
	}
	if obs.Index != market.CarbonLow {
		t.Errorf("Index = %q, want low", obs.Index)
	}
}

func TestEstimateFromWeatherWindLowersIntensity(t *testing.T) {
	calm := EstimateFromWeather("westeurope", 0.0, 0.0)
	windy := EstimateFromWeather("westeurope", 45.0, 0.0)
	if windy.GCO2KWh >= calm.GCO2KWh {
		t.Errorf("windy %v >= calm %v, want wind to displace gas", windy.GCO2KWh, calm.GCO2KWh)
	}
}

func TestEstimateFromWeatherGasFloor(t *testing.T) {
	// Even at rated wind and full solar the gas share never drops below
	// half its base, so the intensity stays positive and realistic.
	obs := EstimateFromWeather("westeurope", 60.0, 800.0)
	mixFloor := 0.52 * 0.5 * 490
	if obs.GCO2KWh < mixFloor {
		t.Errorf("GCO2KWh = %v, below the gas floor contribution %v", obs.GCO2KWh, mixFloor)
	}
}

func TestEstimateFromWeatherUnknownRegion(t *testing.T) {
	obs := EstimateFromWeather("nowhere", 10.0, 0.0)
	if obs.GCO2KWh != DefaultIntensity {
		t.Errorf("GCO2KWh = %v, want the default %v", obs.GCO2KWh, DefaultIntensity)
	}
	if obs.Source != "default" {
		t.Errorf("Source = %q, want default", obs.Source)
	}
}
