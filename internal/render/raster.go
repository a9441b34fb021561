package render

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/observability"
	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
)

// DefaultPNGWidth is the snapshot width when the caller does not ask for one.
const DefaultPNGWidth = 800

// MaxPNGWidth bounds snapshot size.
const MaxPNGWidth = 4096

// Rasterizer draws card views as PNG images and memoizes the encoded bytes
// by view fingerprint and width.
type Rasterizer struct {
	cache   *lruCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRasterizer creates a rasterizer holding up to cacheSize encoded images.
func NewRasterizer(cacheSize int, metrics *observability.Metrics, logger *slog.Logger) *Rasterizer {
	return &Rasterizer{
		cache:   newLRUCache(cacheSize),
		metrics: metrics,
		logger:  logger,
	}
}

// PNG returns the encoded snapshot of view at the given pixel width. The
// height follows the map's aspect ratio.
func (r *Rasterizer) PNG(view domain.CardView, width int) ([]byte, error) {
	if width <= 0 {
		width = DefaultPNGWidth
	}
	if width > MaxPNGWidth {
		width = MaxPNGWidth
	}

	key := fmt.Sprintf("%s@%d", view.Fingerprint(), width)
	if data, ok := r.cache.get(key); ok {
		r.metrics.RasterCache.WithLabelValues("hit").Inc()
		return data, nil
	}
	r.metrics.RasterCache.WithLabelValues("miss").Inc()

	data, err := PNG(view, width, r.logger)
	if err != nil {
		return nil, err
	}
	r.cache.put(key, data)
	return data, nil
}

// PNG draws view without caching. Shapes whose outline cannot be parsed are
// skipped and logged at debug level; the SVG and HTML outputs still carry
// them verbatim. Colors are read as hex (#RGB or #RRGGBB); anything else,
// such as a CSS color name, draws black.
func PNG(view domain.CardView, width int, logger *slog.Logger) ([]byte, error) {
	height := width * domain.ViewBoxHeight / domain.ViewBoxWidth
	if height < 1 {
		height = 1
	}
	scale := float64(width) / domain.ViewBoxWidth

	dc := gg.NewContext(width, height)
	dc.SetHexColor(view.UnvisitedColor)
	dc.Clear()
	dc.Scale(scale, float64(height)/domain.ViewBoxHeight)

	for _, s := range view.Shapes {
		rings, err := ParseOutline(s.Path)
		if err != nil {
			logger.Debug("skipping unparseable outline", "country", s.Code, "error", err)
			continue
		}
		tracePath(dc, rings)
		dc.SetHexColor(s.Fill)
		dc.FillPreserve()
		if s.StrokeWidth > 0 {
			dc.SetHexColor(s.Stroke)
			dc.SetLineWidth(s.StrokeWidth * scale)
			dc.Stroke()
		} else {
			dc.ClearPath()
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func tracePath(dc *gg.Context, rings []orb.Ring) {
	for _, ring := range rings {
		dc.NewSubPath()
		for i, p := range ring {
			if i == 0 {
				dc.MoveTo(p.X(), p.Y())
				continue
			}
			dc.LineTo(p.X(), p.Y())
		}
		dc.ClosePath()
	}
}
