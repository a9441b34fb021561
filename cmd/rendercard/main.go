// Command rendercard renders a been-map card offline from a card config, a
// host state snapshot and an optional countries catalog. The render clock is
// fixed so repeated runs produce identical output.
//
// Usage:
//
//	go run ./cmd/rendercard \
//	  -config card.yaml \
//	  -state state.json \
//	  -catalog countries.json \
//	  -format png -width 1200 \
//	  -out card.png
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/render"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML or JSON card config (optional)")
	statePath := flag.String("state", "", "path to a JSON host state snapshot (optional)")
	catalogPath := flag.String("catalog", "", "path to a countries.json catalog (default: embedded fallback)")
	format := flag.String("format", "html", "output format: html, svg or png")
	width := flag.Int("width", render.DefaultPNGWidth, "PNG width in pixels")
	out := flag.String("out", "", "output path (default: stdout)")
	flag.Parse()

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	raw := domain.RawConfig{}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if raw, err = domain.ParseRawConfig(data); err != nil {
			return err
		}
	}

	snapshot := domain.NewStateSnapshot()
	if *statePath != "" {
		data, err := os.ReadFile(*statePath)
		if err != nil {
			return fmt.Errorf("read state: %w", err)
		}
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return fmt.Errorf("parse state: %w", err)
		}
	}

	catalog := domain.FallbackCatalog()
	if *catalogPath != "" {
		data, err := os.ReadFile(*catalogPath)
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		if catalog, err = domain.ParseCatalog(data); err != nil {
			return err
		}
	}

	cfg := domain.NormalizeConfig(raw)
	state := domain.ExtractState(snapshot, &cfg)
	view, _ := domain.BuildView(catalog, cfg, state)

	var (
		output []byte
		err    error
	)
	switch *format {
	case "html":
		output, err = render.HTML(view)
	case "svg":
		output, err = render.SVG(view)
	case "png":
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		output, err = render.PNG(view, min(max(*width, 1), render.MaxPNGWidth), logger)
	default:
		flag.Usage()
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	log.Printf("rendered %s: %d shapes, %s", *format, len(view.Shapes), view.StatsLine())
	return nil
}
