// Package card hosts one been-map card: it owns the catalog, the effective
// display configuration and the visit state, and re-renders on every change.
package card

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/observability"
	"github.com/couchcryptid/been-map-service/internal/render"
)

// publishTimeout bounds a single render publish.
const publishTimeout = 5 * time.Second

// Publisher receives every rendered card.
type Publisher interface {
	Publish(ctx context.Context, card domain.RenderedCard) error
}

// Output is the card currently on display.
type Output struct {
	View domain.CardView
	HTML []byte
	SVG  []byte
}

// Card is a single map card. Updates are serialized; each one synchronously
// re-renders and replaces the displayed output.
type Card struct {
	mu       sync.Mutex
	catalog  domain.Catalog
	source   domain.CatalogSource
	cfg      domain.DisplayConfig
	snapshot *domain.StateSnapshot
	state    domain.VisitState
	output   *Output

	loaded    chan struct{}
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a card with the default configuration and starts loading the
// catalog in the background. The card renders nothing until the catalog is
// available; it re-renders as soon as the load completes. A nil publisher
// disables render publishing.
func New(ctx context.Context, fetcher domain.CatalogFetcher, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Card {
	c := &Card{
		cfg:       domain.NormalizeConfig(domain.RawConfig{}),
		loaded:    make(chan struct{}),
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
	c.state = domain.ExtractState(domain.StateSnapshot{}, &c.cfg)

	go func() {
		catalog, source := domain.LoadCatalog(ctx, fetcher, logger)
		c.setCatalog(catalog, source)
	}()

	return c
}

// OnConfigChanged replaces the display configuration wholesale, re-derives
// the visit state from the last host snapshot under it, and re-renders.
// Color attributes still present on the entity apply again on top.
func (c *Card) OnConfigChanged(raw domain.RawConfig) {
	c.mu.Lock()
	c.cfg = domain.NormalizeConfig(raw)
	var snapshot domain.StateSnapshot
	if c.snapshot != nil {
		snapshot = *c.snapshot
	}
	c.state = domain.ExtractState(snapshot, &c.cfg)
	c.metrics.ConfigUpdates.Inc()
	c.logger.Debug("card config changed", "entity", c.cfg.Entity, "title", c.cfg.Title)
	out := c.renderLocked()
	c.mu.Unlock()

	c.publish(out)
}

// OnExternalStateChanged applies a host state snapshot and re-renders.
func (c *Card) OnExternalStateChanged(snapshot domain.StateSnapshot) {
	c.mu.Lock()
	c.snapshot = &snapshot
	c.state = domain.ExtractState(snapshot, &c.cfg)
	c.metrics.StateUpdates.Inc()
	c.logger.Debug("card state changed",
		"visited", len(c.state.VisitedCountries),
		"current", c.state.CurrentCountry,
	)
	out := c.renderLocked()
	c.mu.Unlock()

	c.publish(out)
}

// Output returns the card on display, or false when nothing is drawn yet.
func (c *Card) Output() (*Output, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output, c.output != nil
}

// Catalog returns the loaded catalog, or nil before the load completes.
// Callers must not modify it.
func (c *Card) Catalog() domain.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// Config returns the effective display configuration, color overrides included.
func (c *Card) Config() domain.DisplayConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// State returns the current visit state.
func (c *Card) State() domain.VisitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loaded is closed once the catalog is available.
func (c *Card) Loaded() <-chan struct{} {
	return c.loaded
}

// WaitLoaded blocks until the catalog is available or ctx ends.
func (c *Card) WaitLoaded(ctx context.Context) error {
	select {
	case <-c.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckReadiness returns nil once the catalog has loaded.
func (c *Card) CheckReadiness(_ context.Context) error {
	select {
	case <-c.loaded:
		return nil
	default:
		return errors.New("countries catalog has not loaded yet")
	}
}

func (c *Card) setCatalog(catalog domain.Catalog, source domain.CatalogSource) {
	c.mu.Lock()
	c.catalog = catalog
	c.source = source
	c.metrics.CatalogLoads.WithLabelValues(string(source)).Inc()
	c.metrics.CatalogCountries.Set(float64(len(catalog)))
	c.metrics.CatalogLoaded.Set(1)
	c.logger.Info("countries catalog loaded", "source", source, "countries", len(catalog))
	out := c.renderLocked()
	c.mu.Unlock()

	c.publish(out)
	close(c.loaded)
}

// renderLocked rebuilds the output from the current inputs. c.mu must be held.
func (c *Card) renderLocked() *Output {
	start := time.Now()

	view, ok := domain.BuildView(c.catalog, c.cfg, c.state)
	if !ok {
		c.output = nil
		return nil
	}

	html, err := render.HTML(view)
	if err != nil {
		c.logger.Error("render card failed", "error", err)
		return nil
	}
	svg, err := render.SVG(view)
	if err != nil {
		c.logger.Error("render svg failed", "error", err)
		return nil
	}

	c.output = &Output{View: view, HTML: html, SVG: svg}
	c.metrics.Renders.Inc()
	c.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	return c.output
}

func (c *Card) publish(out *Output) {
	if out == nil || c.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	rc := domain.RenderedCard{
		Entity:      c.Config().Entity,
		Title:       out.View.Title,
		Visited:     out.View.VisitedCount,
		Current:     out.View.CurrentName,
		SVG:         string(out.SVG),
		RenderedAt:  out.View.RenderedAt,
		Fingerprint: out.View.Fingerprint(),
	}
	if err := c.publisher.Publish(ctx, rc); err != nil {
		c.metrics.RenderPublishErrors.Inc()
		c.logger.Warn("publish rendered card failed", "error", err, "fingerprint", rc.Fingerprint)
	}
}
