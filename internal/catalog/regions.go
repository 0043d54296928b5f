// Package catalog holds the static tables the engine is built on: the
// monitored Azure regions with their availability zones, the GPU SKU
// catalog, and the per-region grid generation mix.
package catalog

// AZ describes one availability zone. Neighbor is the evacuation target on
// spot interruption; the neighbor graph forms a ring within each region.
type AZ struct {
	ID       string
	Name     string
	Neighbor string
}

// Region is one monitored cloud region. Static after initialization.
type Region struct {
	ID            string
	Name          string
	CloudProvider string
	Location      string
	Lat           float64
	Lon           float64
	Timezone      string
	AZs           []AZ
}

// regions is ordered; the first entry is the default substituted for
// unknown region ids in requests.
var regions = []Region{
	{
		ID:            "francecentral",
		Name:          "France Central",
		CloudProvider: "azure",
		Location:      "Paris, France",
		Lat:           48.8566,
		Lon:           2.3522,
		Timezone:      "Europe/Paris",
		AZs: []AZ{
			{ID: "fr-central-1", Name: "France Central AZ-1", Neighbor: "fr-central-2"},
			{ID: "fr-central-2", Name: "France Central AZ-2", Neighbor: "fr-central-3"},
			{ID: "fr-central-3", Name: "France Central AZ-3", Neighbor: "fr-central-1"},
		},
	},
	{
		ID:            "westeurope",
		Name:          "West Europe",
		CloudProvider: "azure",
		Location:      "Amsterdam, Netherlands",
		Lat:           52.3676,
		Lon:           4.9041,
		Timezone:      "Europe/Amsterdam",
		AZs: []AZ{
			{ID: "we-1", Name: "West Europe AZ-1", Neighbor: "we-2"},
			{ID: "we-2", Name: "West Europe AZ-2", Neighbor: "we-3"},
			{ID: "we-3", Name: "West Europe AZ-3", Neighbor: "we-1"},
		},
	},
	{
		ID:            "uksouth",
		Name:          "UK South",
		CloudProvider: "azure",
		Location:      "London, UK",
		Lat:           51.5074,
		Lon:           -0.1278,
		Timezone:      "Europe/London",
		AZs: []AZ{
			{ID: "uk-south-1", Name: "UK South AZ-1", Neighbor: "uk-south-2"},
			{ID: "uk-south-2", Name: "UK South AZ-2", Neighbor: "uk-south-3"},
			{ID: "uk-south-3", Name: "UK South AZ-3", Neighbor: "uk-south-1"},
		},
	},
}

var regionsByID = func() map[string]*Region {
	m := make(map[string]*Region, len(regions))
	for i := range regions {
		m[regions[i].ID] = &regions[i]
	}
	return m
}()

var neighborAZ = func() map[string]string {
	m := make(map[string]string)
	for _, r := range regions {
		for _, az := range r.AZs {
			m[az.ID] = az.Neighbor
		}
	}
	return m
}()

// Regions returns the monitored regions in stable order.
func Regions() []Region { return regions }

// RegionIDs returns the monitored region ids in stable order.
func RegionIDs() []string {
	ids := make([]string, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
	}
	return ids
}

// Region looks up a region by id; ok is false for unknown ids.
func RegionByID(id string) (*Region, bool) {
	r, ok := regionsByID[id]
	return r, ok
}

// DefaultRegion is substituted for unknown region ids in requests.
func DefaultRegion() *Region { return &regions[0] }

// NormalizeRegion maps an unknown or empty region id to the default.
func NormalizeRegion(id string) *Region {
	if r, ok := regionsByID[id]; ok {
		return r
	}
	return DefaultRegion()
}

// NeighborAZ returns the evacuation target for an AZ. Unknown AZs fall back
// to the default region's second zone.
func NeighborAZ(azID string) string {
	if n, ok := neighborAZ[azID]; ok {
		return n
	}
	return regions[0].AZs[1].ID
}
