// Package tracker maintains a person's visited countries and current country
// and exposes them as the sensor entity the card reads.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/observability"
)

// moveThreshold is how far, in degrees, a person must move before the
// coordinates are looked up again.
const moveThreshold = 0.01

var (
	ErrCatalogNotLoaded = errors.New("countries catalog not loaded")
	ErrUnknownCountry   = errors.New("unknown country code")
)

// CatalogSource provides the loaded catalog, nil until it is available.
type CatalogSource interface {
	Catalog() domain.Catalog
}

// StateLoader receives entity states; pipeline.SnapshotLoader implements it.
type StateLoader interface {
	LoadBatch(ctx context.Context, entities []domain.Entity) error
}

// Visits is the persisted part of the tracker state.
type Visits struct {
	Visited []string `json:"visited"`
	Current string   `json:"current,omitempty"`
}

// VisitStore keeps visits across restarts, keyed by person entity.
type VisitStore interface {
	LoadVisits(ctx context.Context, person string) (Visits, bool, error)
	SaveVisits(ctx context.Context, person string, v Visits) error
}

// Options configures the tracked person and the published sensor entity.
type Options struct {
	PersonEntity    string
	SensorEntity    string
	ManualCountries []string
	VisitedColor    string
	CurrentColor    string
	UnvisitedColor  string
}

// Location is a person's reported position. Latitude and Longitude are
// used only when both are set.
type Location struct {
	Zone      string
	Latitude  *float64
	Longitude *float64
}

type coordinates struct {
	lat, lon float64
}

// Tracker keeps the visited set and current country for one person.
type Tracker struct {
	mu        sync.Mutex
	opts      Options
	visited   map[string]struct{}
	current   string
	last      *coordinates
	cellCache map[coordinates]string

	catalog CatalogSource
	loader  StateLoader
	store   VisitStore
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a tracker seeded with the manual countries.
func New(opts Options, catalog CatalogSource, loader StateLoader, metrics *observability.Metrics, logger *slog.Logger) *Tracker {
	if opts.SensorEntity == "" {
		opts.SensorEntity = domain.DefaultEntity
	}
	if opts.VisitedColor == "" {
		opts.VisitedColor = domain.DefaultVisitedColor
	}
	if opts.CurrentColor == "" {
		opts.CurrentColor = domain.DefaultCurrentColor
	}
	if opts.UnvisitedColor == "" {
		opts.UnvisitedColor = domain.DefaultUnvisitedColor
	}

	t := &Tracker{
		opts:      opts,
		visited:   make(map[string]struct{}, len(opts.ManualCountries)),
		cellCache: make(map[coordinates]string),
		catalog:   catalog,
		loader:    loader,
		metrics:   metrics,
		logger:    logger,
	}
	for _, code := range opts.ManualCountries {
		t.visited[strings.ToUpper(code)] = struct{}{}
	}
	return t
}

// UseStore restores saved visits for the tracked person, replacing the
// manual seed when an entry exists, and saves every later change to store.
func (t *Tracker) UseStore(ctx context.Context, store VisitStore) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	saved, ok, err := store.LoadVisits(ctx, t.opts.PersonEntity)
	if err != nil {
		return fmt.Errorf("restore visits: %w", err)
	}
	t.store = store
	if !ok {
		t.saveLocked(ctx)
		return nil
	}

	t.visited = make(map[string]struct{}, len(saved.Visited))
	for _, code := range saved.Visited {
		t.visited[strings.ToUpper(code)] = struct{}{}
	}
	t.current = strings.ToUpper(saved.Current)
	t.logger.Info("visits restored", "person", t.opts.PersonEntity, "visited", len(t.visited), "current", t.current)
	return nil
}

// PersonEntity returns the tracked person's entity ID.
func (t *Tracker) PersonEntity() string {
	return t.opts.PersonEntity
}

// Entity returns the sensor entity describing the current tracker state.
func (t *Tracker) Entity() domain.Entity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entityLocked()
}

// Publish pushes the current sensor entity to the loader.
func (t *Tracker) Publish(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publishLocked(ctx)
}

// UpdateLocation detects the current country from a location report. A
// zone named "home" is ignored. Coordinates take precedence over the zone
// and are only looked up after moving more than moveThreshold degrees.
func (t *Tracker) UpdateLocation(ctx context.Context, loc Location) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	catalog := t.catalog.Catalog()
	if catalog == nil {
		return ErrCatalogNotLoaded
	}

	changed := false
	if loc.Zone != "" && loc.Zone != "home" {
		if code := domain.CountryFromZone(loc.Zone, catalog); code != "" {
			if _, ok := catalog[code]; ok {
				changed = t.markCurrentLocked(code) || changed
			}
		}
	}

	if loc.Latitude != nil && loc.Longitude != nil {
		here := coordinates{lat: *loc.Latitude, lon: *loc.Longitude}
		if t.last == nil ||
			math.Abs(here.lat-t.last.lat) > moveThreshold ||
			math.Abs(here.lon-t.last.lon) > moveThreshold {
			if code := t.lookupLocked(here, catalog); code != "" {
				if _, ok := catalog[code]; ok {
					changed = t.markCurrentLocked(code) || changed
				}
			}
			t.last = &here
		}
	}

	if changed {
		t.metrics.TrackerChanges.WithLabelValues("location").Inc()
		t.logger.Info("current country updated", "person", t.opts.PersonEntity, "country", t.current)
		t.saveLocked(ctx)
	}
	return t.publishLocked(ctx)
}

// Add marks a country as visited. The code must exist in the catalog.
func (t *Tracker) Add(ctx context.Context, code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	code = strings.ToUpper(strings.TrimSpace(code))
	catalog := t.catalog.Catalog()
	if catalog == nil {
		return ErrCatalogNotLoaded
	}
	if _, ok := catalog[code]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}

	if _, ok := t.visited[code]; !ok {
		t.visited[code] = struct{}{}
		t.metrics.TrackerChanges.WithLabelValues("add").Inc()
		t.logger.Info("added visited country", "country", code)
		t.saveLocked(ctx)
	}
	return t.publishLocked(ctx)
}

// Remove drops a country from the visited set. Unknown codes are a no-op.
func (t *Tracker) Remove(ctx context.Context, code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := t.visited[code]; ok {
		delete(t.visited, code)
		t.metrics.TrackerChanges.WithLabelValues("remove").Inc()
		t.logger.Info("removed visited country", "country", code)
		t.saveLocked(ctx)
	}
	return t.publishLocked(ctx)
}

// Set replaces the visited set. Codes missing from the catalog are dropped
// and returned.
func (t *Tracker) Set(ctx context.Context, codes []string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	catalog := t.catalog.Catalog()
	if catalog == nil {
		return nil, ErrCatalogNotLoaded
	}

	visited := make(map[string]struct{}, len(codes))
	var invalid []string
	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if _, ok := catalog[code]; !ok {
			invalid = append(invalid, raw)
			continue
		}
		visited[code] = struct{}{}
	}
	if len(invalid) > 0 {
		t.logger.Warn("invalid country codes dropped", "codes", invalid)
	}

	t.visited = visited
	t.metrics.TrackerChanges.WithLabelValues("set").Inc()
	t.logger.Info("visited countries set", "count", len(visited))
	t.saveLocked(ctx)
	return invalid, t.publishLocked(ctx)
}

// LoadBatch forwards entities to the wrapped loader and updates the location
// from any state of the tracked person among them. It lets the tracker sit
// in front of the state feed loader.
func (t *Tracker) LoadBatch(ctx context.Context, entities []domain.Entity) error {
	if err := t.loader.LoadBatch(ctx, entities); err != nil {
		return err
	}
	for _, e := range entities {
		if e.EntityID != t.opts.PersonEntity {
			continue
		}
		err := t.UpdateLocation(ctx, LocationFromEntity(e))
		if err != nil && !errors.Is(err, ErrCatalogNotLoaded) {
			return err
		}
	}
	return nil
}

// LocationFromEntity reads zone, latitude and longitude attributes from a
// person entity.
func LocationFromEntity(e domain.Entity) Location {
	var loc Location
	if zone, ok := e.Attributes["zone"].(string); ok {
		loc.Zone = zone
	}
	if lat, ok := toFloat(e.Attributes["latitude"]); ok {
		loc.Latitude = &lat
	}
	if lon, ok := toFloat(e.Attributes["longitude"]); ok {
		loc.Longitude = &lon
	}
	return loc
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (t *Tracker) markCurrentLocked(code string) bool {
	_, seen := t.visited[code]
	changed := t.current != code || !seen
	t.current = code
	t.visited[code] = struct{}{}
	return changed
}

// lookupLocked memoizes coordinate lookups per 0.01 degree cell, misses included.
func (t *Tracker) lookupLocked(here coordinates, catalog domain.Catalog) string {
	cell := coordinates{lat: round2(here.lat), lon: round2(here.lon)}
	if code, ok := t.cellCache[cell]; ok {
		return code
	}
	code := domain.CountryFromCoordinates(here.lat, here.lon, catalog)
	t.cellCache[cell] = code
	if code != "" {
		t.logger.Debug("country detected from coordinates", "lat", here.lat, "lon", here.lon, "country", code)
	}
	return code
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (t *Tracker) sortedVisitedLocked() []string {
	visited := make([]string, 0, len(t.visited))
	for code := range t.visited {
		visited = append(visited, code)
	}
	sort.Strings(visited)
	return visited
}

// saveLocked writes the visits to the store, if any. Failures are logged;
// the in-memory state stays authoritative.
func (t *Tracker) saveLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	v := Visits{Visited: t.sortedVisitedLocked(), Current: t.current}
	if err := t.store.SaveVisits(ctx, t.opts.PersonEntity, v); err != nil {
		t.logger.Warn("save visits failed", "person", t.opts.PersonEntity, "error", err)
	}
}

func (t *Tracker) entityLocked() domain.Entity {
	visited := t.sortedVisitedLocked()

	var current any
	if t.current != "" {
		current = t.current
	}

	return domain.Entity{
		EntityID: t.opts.SensorEntity,
		State:    fmt.Sprintf("%d countries", len(visited)),
		Attributes: map[string]any{
			domain.AttrVisitedCountries: visited,
			domain.AttrCurrentCountry:   current,
			domain.AttrVisitedColor:     t.opts.VisitedColor,
			domain.AttrCurrentColor:     t.opts.CurrentColor,
			domain.AttrUnvisitedColor:   t.opts.UnvisitedColor,
			domain.AttrPersonEntityID:   t.opts.PersonEntity,
		},
	}
}

func (t *Tracker) publishLocked(ctx context.Context) error {
	if err := t.loader.LoadBatch(ctx, []domain.Entity{t.entityLocked()}); err != nil {
		return fmt.Errorf("publish tracker state: %w", err)
	}
	return nil
}
