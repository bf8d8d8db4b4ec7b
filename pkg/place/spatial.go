package place

import (
	"context"
	"math"
)

// GeocodeStatus tracks whether a place has resolved coordinates.
type GeocodeStatus string

const (
	GeocodePending     GeocodeStatus = "pending"
	GeocodeResolved    GeocodeStatus = "resolved"
	GeocodeUnavailable GeocodeStatus = "unavailable"
)

// Coordinates is a geographic point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves a place string to coordinates. Implementations report
// GeocodeUnavailable rather than an error when a place simply is not known.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Coordinates, GeocodeStatus, error)
}

// StaticGeocoder resolves places from a fixed table keyed by normalized
// place string. Useful for tests and offline datasets.
type StaticGeocoder struct {
	matcher *Matcher
	table   map[string]Coordinates
}

// NewStaticGeocoder builds a geocoder over the given place -> coordinates
// table. Keys are normalized on construction.
func NewStaticGeocoder(m *Matcher, table map[string]Coordinates) *StaticGeocoder {
	normalized := make(map[string]Coordinates, len(table))
	for k, v := range table {
		normalized[m.Normalize(k)] = v
	}
	return &StaticGeocoder{matcher: m, table: normalized}
}

func (g *StaticGeocoder) Geocode(ctx context.Context, place string) (Coordinates, GeocodeStatus, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, GeocodePending, err
	}
	if c, ok := g.table[g.matcher.Normalize(place)]; ok {
		return c, GeocodeResolved, nil
	}
	return Coordinates{}, GeocodeUnavailable, nil
}

// HaversineKm calculates the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Coordinates) float64 {
	const earthRadiusKm = 6371

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
