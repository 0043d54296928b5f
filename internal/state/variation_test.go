package state

import (
	"math"
	"testing"
	"time"

	"github.com/nervelabs/nerve/pkg/market"
)

func TestEstimateAvailability(t *testing.T) {
	tests := []struct {
		name     string
		spot     float64
		ondemand float64
		tier     string
		price    float64
		want     market.Availability
	}{
		{"small discount is contended", 0.80, 1.0, "mid", 0.80, market.AvailabilityLow},
		{"moderate discount", 0.50, 1.0, "mid", 0.50, market.AvailabilityMedium},
		{"deep discount", 0.20, 1.0, "mid", 0.20, market.AvailabilityHigh},
		{"boundary 0.70 is medium", 0.70, 1.0, "mid", 0.70, market.AvailabilityMedium},
		{"boundary 0.45 is high", 0.45, 1.0, "mid", 0.45, market.AvailabilityHigh},
		{"no ondemand, premium tier", 2.0, 0, "premium", 2.0, market.AvailabilityLow},
		{"no ondemand, high tier expensive", 2.5, 0, "high", 2.5, market.AvailabilityMedium},
		{"no ondemand, high tier cheap", 1.5, 0, "high", 1.5, market.AvailabilityHigh},
		{"no ondemand, mid tier", 1.0, 0, "mid", 1.0, market.AvailabilityHigh},
		{"no ondemand, low tier", 0.2, 0, "low", 0.2, market.AvailabilityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateAvailability(tt.spot, tt.ondemand, tt.tier, tt.price)
			if got != tt.want {
				t.Errorf("EstimateAvailability(%v, %v, %q) = %v, want %v",
					tt.spot, tt.ondemand, tt.tier, got, tt.want)
			}
		})
	}
}

func TestAZPriceVariationDeterministic(t *testing.T) {
	a := AZPriceVariation(1.5, "fr-central-1", "Standard_NC6s_v3", 14)
	b := AZPriceVariation(1.5, "fr-central-1", "Standard_NC6s_v3", 14)
	if a != b {
		t.Errorf("same inputs gave %v and %v, want identical", a, b)
	}
}

func TestAZPriceVariationBounded(t *testing.T) {
	base := 2.0
	for _, az := range []string{"fr-central-1", "fr-central-2", "we-3", "uk-south-2"} {
		for hour := 0; hour < 24; hour++ {
			p := AZPriceVariation(base, az, "Standard_NC24s_v3", hour)
			if p < base*0.95 || p > base*1.05 {
				t.Errorf("AZPriceVariation(%v, %q, hour=%d) = %v, outside the 5%% band",
					base, az, hour, p)
			}
		}
	}
}

func TestAZPriceVariationVariesAcrossZones(t *testing.T) {
	a := AZPriceVariation(1.0, "fr-central-1", "Standard_NC6s_v3", 9)
	b := AZPriceVariation(1.0, "fr-central-2", "Standard_NC6s_v3", 9)
	c := AZPriceVariation(1.0, "fr-central-3", "Standard_NC6s_v3", 9)
	if a == b && b == c {
		t.Errorf("all zones projected the same price %v, want per-zone variation", a)
	}
}

func TestAZAvailabilityShift(t *testing.T) {
	for _, az := range []string{"fr-central-1", "fr-central-2", "fr-central-3", "we-1", "we-2", "we-3"} {
		got := AZAvailabilityShift(market.AvailabilityHigh, az)
		if got != market.AvailabilityHigh && got != market.AvailabilityMedium {
			t.Errorf("shift(high, %q) = %v, want high or one-step downgrade", az, got)
		}
		if again := AZAvailabilityShift(market.AvailabilityHigh, az); again != got {
			t.Errorf("shift(high, %q) not deterministic: %v then %v", az, got, again)
		}
		// low and very_low never downgrade further
		if got := AZAvailabilityShift(market.AvailabilityLow, az); got != market.AvailabilityLow {
			t.Errorf("shift(low, %q) = %v, want low", az, got)
		}
		if got := AZAvailabilityShift(market.AvailabilityVeryLow, az); got != market.AvailabilityVeryLow {
			t.Errorf("shift(very_low, %q) = %v, want very_low", az, got)
		}
	}
}

func TestProjectAZInstances(t *testing.T) {
	prices := []market.GpuInstance{{
		SKU:            "Standard_NC6s_v3",
		GPUName:        "Tesla V100 (16GB)",
		SpotPriceUSDHr: 1.0,
		OnDemandUSDHr:  3.06,
		SavingsPct:     67.3,
		Tier:           "high",
	}}

	got := ProjectAZInstances(prices, "fr-central-1", 10)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	g := got[0]
	if g.SpotPriceUSDHr < 0.95 || g.SpotPriceUSDHr > 1.05 {
		t.Errorf("projected spot = %v, outside the 5%% band around 1.0", g.SpotPriceUSDHr)
	}
	wantSavings := math.Round((1-g.SpotPriceUSDHr/3.06)*100*10) / 10
	if g.SavingsPct != wantSavings {
		t.Errorf("SavingsPct = %v, want %v recomputed from projected spot", g.SavingsPct, wantSavings)
	}
	if g.Availability == "" {
		t.Error("Availability not set")
	}
	if g.OnDemandUSDHr != 3.06 {
		t.Errorf("OnDemandUSDHr = %v, want unchanged 3.06", g.OnDemandUSDHr)
	}
}

func TestRegionViewDefaults(t *testing.T) {
	s := New()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	// Unknown regions resolve to the default region.
	v := s.RegionView("mars-central", now)
	if v.RegionID != "francecentral" {
		t.Fatalf("RegionID = %q, want francecentral", v.RegionID)
	}
	if len(v.AvailabilityZones) != 3 {
		t.Fatalf("len(AvailabilityZones) = %d, want 3", len(v.AvailabilityZones))
	}

	az0 := v.AvailabilityZones[0]
	if az0.TemperatureC != DefaultTempC-0.2 {
		t.Errorf("AZ-1 temp = %v, want %v", az0.TemperatureC, DefaultTempC-0.2)
	}
	if az0.WindKmh != DefaultWindKmh-0.5 {
		t.Errorf("AZ-1 wind = %v, want %v", az0.WindKmh, DefaultWindKmh-0.5)
	}
	if az0.CarbonGCO2KWh != defaultGCO2 {
		t.Errorf("AZ-1 carbon = %v, want default %v", az0.CarbonGCO2KWh, defaultGCO2)
	}
}

func TestRegionViewMicroclimate(t *testing.T) {
	s := New()
	s.SetRegionObservations("westeurope",
		[]market.GpuInstance{{SKU: "Standard_NC8as_T4_v3", SpotPriceUSDHr: 0.12, OnDemandUSDHr: 0.75, Tier: "mid"}},
		market.WeatherObservation{CurrentTempC: 8.0, CurrentWindKmh: 30.0},
		market.CarbonObservation{GCO2KWh: 210.4, Index: market.CarbonModerate},
	)

	v := s.RegionView("westeurope", time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC))
	temps := []float64{7.8, 8.0, 8.2}
	winds := []float64{29.5, 30.0, 30.5}
	for i, az := range v.AvailabilityZones {
		if az.TemperatureC != temps[i] {
			t.Errorf("AZ %d temp = %v, want %v", i, az.TemperatureC, temps[i])
		}
		if az.WindKmh != winds[i] {
			t.Errorf("AZ %d wind = %v, want %v", i, az.WindKmh, winds[i])
		}
		if az.CarbonGCO2KWh != 210.4 {
			t.Errorf("AZ %d carbon = %v, want 210.4", i, az.CarbonGCO2KWh)
		}
		if len(az.GpuInstances) != 1 {
			t.Errorf("AZ %d GPU count = %d, want 1", i, len(az.GpuInstances))
		}
	}
}
