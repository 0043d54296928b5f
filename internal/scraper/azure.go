package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nervelabs/nerve/internal/catalog"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/pkg/market"
)

// The Azure Retail Prices API requires no authentication.
const retailPricesURL = "https://prices.azure.com/api/retail/prices"

// gpuFamilies are the armSkuName fragments that select GPU VM sizes:
// NC = compute, NV = visualization, ND = deep learning.
var gpuFamilies = []string{"NC", "NV", "ND"}

const (
	spotFetchTimeout     = 15 * time.Second
	ondemandFetchTimeout = 10 * time.Second
)

// retailPriceResponse is the response from the Azure Retail Prices API.
type retailPriceResponse struct {
	Items []retailPriceItem `json:"Items"`
}

type retailPriceItem struct {
	RetailPrice   float64 `json:"retailPrice"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	MeterName     string  `json:"meterName"`
	ArmSkuName    string  `json:"armSkuName"`
}

// fetchGPUPrices pulls live spot prices for all GPU families in a region,
// keeps the cheapest hourly offer per SKU, maps SKUs onto the GPU catalog
// and enriches each entry with its on-demand price. Per-family failures are
// recorded and skipped so one bad query never empties the region.
func (s *Scraper) fetchGPUPrices(ctx context.Context, regionID string) []market.GpuInstance {
	var gpus []market.GpuInstance

	for _, family := range gpuFamilies {
		items, err := s.fetchSpotFamily(ctx, regionID, family)
		if err != nil {
			s.recordError("azure", regionID, fmt.Sprintf("Azure %s/%s: %v", regionID, family, err))
			continue
		}

		// Cheapest offer per SKU (Windows vs Linux meter variants).
		cheapest := make(map[string]retailPriceItem)
		for _, item := range items {
			// Only hourly consumption meters with a real price.
			if item.UnitOfMeasure != "1 Hour" || item.RetailPrice <= 0 {
				continue
			}
			if prev, ok := cheapest[item.ArmSkuName]; !ok || item.RetailPrice < prev.RetailPrice {
				cheapest[item.ArmSkuName] = item
			}
		}

		for sku, item := range cheapest {
			spec, ok := catalog.LookupGPU(sku)
			if !ok {
				continue
			}
			gpus = append(gpus, market.GpuInstance{
				SKU:            sku,
				GPUName:        spec.Name,
				GPUCount:       spec.Count,
				VCPUs:          spec.VCPUs,
				RAMGB:          spec.RAMGB,
				SpotPriceUSDHr: round(item.RetailPrice, 6),
				Availability:   market.AvailabilityHigh,
				Tier:           string(spec.Tier),
			})
		}
		s.logger.Info("azure spot prices fetched", "region", regionID, "family", family, "skus", len(cheapest))
	}

	// Spot above on-demand means one of the two prices is garbage; the
	// whole observation is dropped rather than scored.
	kept := gpus[:0]
	for i := range gpus {
		s.enrichOnDemand(ctx, regionID, &gpus[i])
		g := gpus[i]
		if g.OnDemandUSDHr > 0 && g.SpotPriceUSDHr > g.OnDemandUSDHr {
			s.logger.Warn("dropping malformed price observation", "region", regionID,
				"sku", g.SKU, "spot", g.SpotPriceUSDHr, "ondemand", g.OnDemandUSDHr)
			continue
		}
		kept = append(kept, g)
	}
	return kept
}

// fetchSpotFamily queries spot meters for one GPU family in one region.
func (s *Scraper) fetchSpotFamily(ctx context.Context, regionID, family string) ([]retailPriceItem, error) {
	filter := fmt.Sprintf(
		"serviceName eq 'Virtual Machines' and armRegionName eq '%s' and contains(meterName,'Spot') and contains(armSkuName,'%s')",
		regionID, family,
	)
	ctx, cancel := context.WithTimeout(ctx, spotFetchTimeout)
	defer cancel()
	var resp retailPriceResponse
	if err := s.getJSON(ctx, retailPricesURL+"?$filter="+url.QueryEscape(filter), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// enrichOnDemand resolves the on-demand price of a SKU so savings and
// availability can be derived. When the API fails the on-demand price is
// estimated at five times spot, a typical GPU spot discount.
func (s *Scraper) enrichOnDemand(ctx context.Context, regionID string, g *market.GpuInstance) {
	filter := fmt.Sprintf(
		"serviceName eq 'Virtual Machines' and armRegionName eq '%s' and armSkuName eq '%s'",
		regionID, g.SKU,
	)

	odCtx, cancel := context.WithTimeout(ctx, ondemandFetchTimeout)
	defer cancel()
	var resp retailPriceResponse
	if err := s.getJSON(odCtx, retailPricesURL+"?$filter="+url.QueryEscape(filter), &resp); err != nil {
		// Estimate on-demand as ~5x spot if the API fails.
		g.OnDemandUSDHr = round(g.SpotPriceUSDHr*5, 4)
		g.SavingsPct = 80.0
	} else {
		for _, item := range resp.Items {
			if item.UnitOfMeasure != "1 Hour" || item.RetailPrice <= 0 {
				continue
			}
			if strings.Contains(item.MeterName, "Spot") || strings.Contains(item.MeterName, "Low Priority") {
				continue
			}
			g.OnDemandUSDHr = round(item.RetailPrice, 4)
			g.SavingsPct = round((1-g.SpotPriceUSDHr/item.RetailPrice)*100, 1)
			break
		}
	}

	g.Availability = state.EstimateAvailability(g.SpotPriceUSDHr, g.OnDemandUSDHr, g.Tier, g.SpotPriceUSDHr)
}

// getJSON performs a GET and decodes the JSON body into out.
func (s *Scraper) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 120))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
