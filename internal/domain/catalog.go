package domain

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/paulmach/orb"
)

// fallbackCountries is the embedded catalog used when the remote dataset
// cannot be fetched. Outlines are simplified placeholders.
//
//go:embed data/fallback_countries.json
var fallbackCountries []byte

// CountryGeometry is the display data for one country.
type CountryGeometry struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"` // opaque SVG path data

	// BoundingBox is [min_lat, max_lat, min_lon, max_lon] when the dataset
	// provides it. Only the location tracker reads it.
	BoundingBox []float64 `json:"bounding_box,omitempty"`
}

// Bound returns the bounding box in lon/lat order. ok is false unless the
// dataset gave exactly four values.
func (g CountryGeometry) Bound() (b orb.Bound, ok bool) {
	if len(g.BoundingBox) != 4 {
		return orb.Bound{}, false
	}
	minLat, maxLat, minLon, maxLon := g.BoundingBox[0], g.BoundingBox[1], g.BoundingBox[2], g.BoundingBox[3]
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}, true
}

// Catalog maps a country code to its geometry. A loaded catalog is never
// mutated; a reload replaces it wholesale.
type Catalog map[string]CountryGeometry

// CatalogSource records where a catalog came from.
type CatalogSource string

const (
	CatalogRemote   CatalogSource = "remote"
	CatalogFallback CatalogSource = "fallback"
)

// CatalogDocument is the wire shape of a countries dataset.
type CatalogDocument struct {
	Countries Catalog `json:"countries"`
}

// CatalogFetcher retrieves the remote countries dataset.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) (Catalog, error)
}

// Codes returns the catalog's country codes in ascending order.
func (c Catalog) Codes() []string {
	codes := make([]string, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DisplayName returns the country's name, or the code itself when the
// catalog does not know it.
func (c Catalog) DisplayName(code string) string {
	if g, ok := c[code]; ok && g.Name != "" {
		return g.Name
	}
	return code
}

// ParseCatalog decodes a countries dataset. A document without a
// "countries" object yields an empty, non-nil catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc CatalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if doc.Countries == nil {
		return Catalog{}, nil
	}
	return doc.Countries, nil
}

// FallbackCatalog returns a fresh copy of the embedded catalog.
func FallbackCatalog() Catalog {
	c, err := ParseCatalog(fallbackCountries)
	if err != nil {
		// The embedded file is part of the build; a parse failure is a packaging bug.
		panic(fmt.Sprintf("embedded fallback catalog: %v", err))
	}
	return c
}

// LoadCatalog fetches the remote dataset and degrades to the embedded
// fallback on any failure. A nil fetcher always yields the fallback.
// It never returns an error: a failed fetch is logged and recovered here.
func LoadCatalog(ctx context.Context, fetcher CatalogFetcher, logger *slog.Logger) (Catalog, CatalogSource) {
	if fetcher == nil {
		return FallbackCatalog(), CatalogFallback
	}

	catalog, err := fetcher.FetchCatalog(ctx)
	if err != nil {
		logger.Warn("countries data fetch failed, using embedded fallback", "error", err)
		return FallbackCatalog(), CatalogFallback
	}
	if catalog == nil {
		catalog = Catalog{}
	}
	return catalog, CatalogRemote
}
