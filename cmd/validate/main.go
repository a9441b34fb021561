// Command validate checks a countries catalog before it is served to cards:
// the JSON shape, display names, outline syntax, and bounding boxes used by
// the location tracker. The catalog is read from a file or fetched from a URL.
//
// Usage:
//
//	go run ./cmd/validate -catalog www/countries.json
//	go run ./cmd/validate -url http://localhost:8123/local/been_map/countries.json
//	go run ./cmd/validate -fallback
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/been-map-service/internal/adapter/geodata"
	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/render"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", "", "path to a countries.json catalog")
	url := flag.String("url", "", "URL to fetch the catalog from")
	fallback := flag.Bool("fallback", false, "validate the embedded fallback catalog")
	timeout := flag.Duration("timeout", 30*time.Second, "fetch timeout for -url")
	flag.Parse()

	sources := 0
	for _, set := range []bool{*catalogPath != "", *url != "", *fallback} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		flag.Usage()
		os.Exit(1)
	}

	catalog, err := load(*catalogPath, *url, *fallback, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		os.Exit(1)
	}

	if code := run(os.Stdout, catalog); code != 0 {
		os.Exit(code)
	}
}

func load(path, url string, fallback bool, timeout time.Duration) (domain.Catalog, error) {
	switch {
	case fallback:
		return domain.FallbackCatalog(), nil
	case url != "":
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		return geodata.NewClient(url, timeout, logger).FetchCatalog(context.Background())
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return domain.ParseCatalog(data)
	}
}

func run(w io.Writer, catalog domain.Catalog) int {
	fmt.Fprintln(w, "=== Countries Catalog Validation ===")
	fmt.Fprintln(w)

	phases := []*phase{
		validateShape(catalog),
		validateNames(catalog),
		validateOutlines(catalog),
		validateBoundingBoxes(catalog),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	drawable, boxed := 0, 0
	for _, code := range catalog.Codes() {
		if strings.TrimSpace(catalog[code].Path) != "" {
			drawable++
		}
		if len(catalog[code].BoundingBox) == 4 {
			boxed++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Countries: %d total, %d drawable, %d with bounding boxes\n", len(catalog), drawable, boxed)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func validateShape(catalog domain.Catalog) *phase {
	p := &phase{name: "Catalog shape"}
	if len(catalog) == 0 {
		p.errorf("catalog has no countries")
	}
	for _, code := range catalog.Codes() {
		if len(code) != 2 || strings.ToUpper(code) != code {
			p.errorf("%q: country codes must be two upper-case letters", code)
		}
	}
	return p
}

func validateNames(catalog domain.Catalog) *phase {
	p := &phase{name: "Display names"}
	for _, code := range catalog.Codes() {
		if strings.TrimSpace(catalog[code].Name) == "" {
			p.errorf("%s: missing name", code)
		}
	}
	return p
}

// validateOutlines requires every non-empty outline to be drawable. Entries
// without an outline are allowed; cards skip them.
func validateOutlines(catalog domain.Catalog) *phase {
	p := &phase{name: "Outline syntax"}
	for _, code := range catalog.Codes() {
		path := catalog[code].Path
		if strings.TrimSpace(path) == "" {
			continue
		}
		rings, err := render.ParseOutline(path)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}
		if len(rings) == 0 {
			p.errorf("%s: outline has no points", code)
		}
	}
	return p
}

func validateBoundingBoxes(catalog domain.Catalog) *phase {
	p := &phase{name: "Bounding boxes"}
	for _, code := range catalog.Codes() {
		bb := catalog[code].BoundingBox
		if bb == nil {
			continue
		}
		if len(bb) != 4 {
			p.errorf("%s: bounding box has %d values, want 4", code, len(bb))
			continue
		}
		bound, _ := catalog[code].Bound()
		if bound.Min.Lat() > bound.Max.Lat() || bound.Min.Lon() > bound.Max.Lon() {
			p.errorf("%s: bounding box minimum exceeds maximum: %v", code, bb)
		}
		if bound.Min.Lat() < -90 || bound.Max.Lat() > 90 || bound.Min.Lon() < -180 || bound.Max.Lon() > 180 {
			p.errorf("%s: bounding box out of range: %v", code, bb)
		}
	}
	return p
}
