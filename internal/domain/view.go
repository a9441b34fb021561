package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Outlines are drawn in this coordinate space.
const (
	ViewBoxWidth  = 800
	ViewBoxHeight = 500
)

// Status is a country's visit status.
type Status string

const (
	StatusCurrent   Status = "current"
	StatusVisited   Status = "visited"
	StatusUnvisited Status = "unvisited"
)

// Label is the human-readable form shown in the tooltip.
func (s Status) Label() string {
	switch s {
	case StatusCurrent:
		return "Currently Here"
	case StatusVisited:
		return "Visited"
	default:
		return "Not Visited"
	}
}

// Classify returns the status of code. Current takes precedence over visited.
func Classify(code string, state VisitState) Status {
	switch {
	case state.IsCurrent(code):
		return StatusCurrent
	case state.IsVisited(code):
		return StatusVisited
	default:
		return StatusUnvisited
	}
}

// Shape is one drawable country.
type Shape struct {
	Code        string
	Name        string
	Path        string
	Status      Status
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Tooltip is the hover text for the shape, e.g. "Canada - Currently Here".
func (s Shape) Tooltip() string {
	return s.Name + " - " + s.Status.Label()
}

// LegendEntry is one swatch in the legend.
type LegendEntry struct {
	Label string
	Color string
}

// CardView is everything a serializer needs to draw the card.
type CardView struct {
	Title          string
	VisitedCount   int
	CurrentName    string // empty when there is no current country
	HeightPx       int
	UnvisitedColor string
	Shapes         []Shape
	Legend         []LegendEntry
	RenderedAt     time.Time
}

// StatsLine returns the header statistics, e.g. "Visited: 1", "Current: Canada".
func (v CardView) StatsLine() []string {
	stats := []string{fmt.Sprintf("Visited: %d", v.VisitedCount)}
	if v.CurrentName != "" {
		stats = append(stats, "Current: "+v.CurrentName)
	}
	return stats
}

// Shape returns the shape for code.
func (v CardView) Shape(code string) (Shape, bool) {
	for _, s := range v.Shapes {
		if s.Code == code {
			return s, true
		}
	}
	return Shape{}, false
}

// Fingerprint identifies the drawn content, ignoring RenderedAt. Equal
// inputs always produce equal fingerprints.
func (v CardView) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%d|%s\n", v.Title, v.VisitedCount, v.CurrentName, v.HeightPx, v.UnvisitedColor)
	for _, s := range v.Shapes {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%g\n", s.Code, s.Path, s.Status, s.Fill, s.Stroke, s.StrokeWidth)
	}
	for _, l := range v.Legend {
		fmt.Fprintf(h, "%s|%s\n", l.Label, l.Color)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// BuildView maps a catalog, configuration and visit state onto the card
// view. It returns false when the catalog has not been loaded yet, in which
// case nothing should be drawn.
//
// Entries with an empty outline are skipped; any other outline, even
// whitespace, is passed through untouched. Shapes are ordered by code so
// that identical inputs produce identical output.
func BuildView(catalog Catalog, cfg DisplayConfig, state VisitState) (CardView, bool) {
	if catalog == nil {
		return CardView{}, false
	}

	shapes := make([]Shape, 0, len(catalog))
	for _, code := range catalog.Codes() {
		geo := catalog[code]
		if geo.Path == "" {
			continue
		}

		shape := Shape{
			Code:        code,
			Name:        catalog.DisplayName(code),
			Path:        geo.Path,
			Status:      Classify(code, state),
			Fill:        cfg.UnvisitedColor,
			Stroke:      cfg.BorderColor,
			StrokeWidth: cfg.BorderWidth,
		}
		switch shape.Status {
		case StatusCurrent:
			shape.Fill = cfg.CurrentColor
			shape.Stroke = cfg.CurrentColor
			shape.StrokeWidth = cfg.CurrentBorderWidth
		case StatusVisited:
			shape.Fill = cfg.VisitedColor
		}
		shapes = append(shapes, shape)
	}

	view := CardView{
		Title:          cfg.Title,
		VisitedCount:   len(state.VisitedCountries),
		HeightPx:       cfg.HeightPx,
		UnvisitedColor: cfg.UnvisitedColor,
		Shapes:         shapes,
		Legend: []LegendEntry{
			{Label: "Visited", Color: cfg.VisitedColor},
			{Label: "Current", Color: cfg.CurrentColor},
			{Label: "Not Visited", Color: cfg.UnvisitedColor},
		},
		RenderedAt: clock.Now(),
	}
	if state.CurrentCountry != "" {
		view.CurrentName = catalog.DisplayName(state.CurrentCountry)
	}
	return view, true
}
