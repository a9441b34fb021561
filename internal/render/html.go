// Package render serializes a domain.CardView as an HTML card fragment, a
// standalone SVG document, or a PNG snapshot.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/couchcryptid/been-map-service/internal/domain"
)

var funcs = template.FuncMap{
	"width": formatWidth,
	"vbw":   func() int { return domain.ViewBoxWidth },
	"vbh":   func() int { return domain.ViewBoxHeight },
}

var shapesTmpl = `{{define "shapes"}}{{range .Shapes}}
    <path d="{{.Path}}" fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="{{width .StrokeWidth}}" data-country="{{.Code}}" data-name="{{.Name}}" data-status="{{.Status.Label}}" class="country-path"><title>{{.Tooltip}}</title></path>{{end}}{{end}}`

var cardTmpl = template.Must(template.New("card").Funcs(funcs).Parse(shapesTmpl + `
<div class="been-map-card">
  <style>
    .been-map-card { display: block; padding: 16px; position: relative; font-family: var(--paper-font-body1_-_font-family); }
    .been-map-card .card-header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 16px; }
    .been-map-card .card-header h3 { margin: 0; font-size: 1.2rem; font-weight: 500; }
    .been-map-card .stats { display: flex; gap: 16px; font-size: 0.9rem; color: var(--secondary-text-color); }
    .been-map-card .map-container { width: 100%; border-radius: 8px; overflow: hidden; }
    .been-map-card svg.map { width: 100%; height: 100%; }
    .been-map-card .country-path { transition: fill 0.3s ease, stroke-width 0.3s ease; cursor: pointer; }
    .been-map-card .country-path:hover { opacity: 0.8; }
    .been-map-card .legend { display: flex; gap: 16px; margin-top: 12px; font-size: 0.85rem; flex-wrap: wrap; }
    .been-map-card .legend-item { display: flex; align-items: center; gap: 6px; }
    .been-map-card .tooltip { position: absolute; background: var(--ha-card-background, var(--card-background-color, #fff)); padding: 8px 12px; border-radius: 4px; box-shadow: 0 2px 8px rgba(0,0,0,0.2); font-size: 0.85rem; pointer-events: none; z-index: 1000; display: none; }
  </style>
  <div class="card-header">
    <h3>{{.Title}}</h3>
    <div class="stats">{{range .StatsLine}}
      <span>{{.}}</span>{{end}}
    </div>
  </div>
  <div class="map-container" style="height: {{.HeightPx}}px">
    <svg class="map" viewBox="0 0 {{vbw}} {{vbh}}" preserveAspectRatio="xMidYMid meet" xmlns="http://www.w3.org/2000/svg">
    <rect width="{{vbw}}" height="{{vbh}}" fill="{{.UnvisitedColor}}"/>{{template "shapes" .}}
    </svg>
  </div>
  <div class="legend">{{range .Legend}}
    <div class="legend-item">
      <svg width="16" height="16"><rect x="0.5" y="0.5" width="15" height="15" rx="3" fill="{{.Color}}" stroke="#999"/></svg>
      <span>{{.Label}}</span>
    </div>{{end}}
  </div>
  <div class="tooltip"></div>
  <script>
  (function () {
    var card = document.currentScript.parentElement;
    var tooltip = card.querySelector('.tooltip');
    card.querySelectorAll('.country-path').forEach(function (path) {
      path.addEventListener('mouseenter', function () {
        tooltip.textContent = path.getAttribute('data-name') + ' - ' + path.getAttribute('data-status');
        tooltip.style.display = 'block';
      });
      path.addEventListener('mousemove', function (e) {
        var rect = card.getBoundingClientRect();
        tooltip.style.left = (e.clientX - rect.left + 10) + 'px';
        tooltip.style.top = (e.clientY - rect.top + 10) + 'px';
      });
      path.addEventListener('mouseleave', function () {
        tooltip.style.display = 'none';
      });
    });
  })();
  </script>
</div>
`))

var svgTmpl = template.Must(template.New("svg").Funcs(funcs).Parse(shapesTmpl + `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 {{vbw}} {{vbh}}" width="{{vbw}}" height="{{vbh}}" preserveAspectRatio="xMidYMid meet">
    <rect width="{{vbw}}" height="{{vbh}}" fill="{{.UnvisitedColor}}"/>{{template "shapes" .}}
</svg>
`))

// HTML renders the card fragment: header with stats, the map, the legend
// and the hover tooltip wiring. The render timestamp is not part of the
// output, so equal views render byte-identical fragments.
func HTML(view domain.CardView) ([]byte, error) {
	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render card html: %w", err)
	}
	return buf.Bytes(), nil
}

// SVG renders just the map as a standalone document. Each shape carries a
// <title> so viewers show the tooltip natively.
func SVG(view domain.CardView) ([]byte, error) {
	var buf bytes.Buffer
	if err := svgTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render card svg: %w", err)
	}
	return buf.Bytes(), nil
}

func formatWidth(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
