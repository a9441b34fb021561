package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/been-map-service/internal/card"
	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/tracker"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds config and state request bodies.
const maxBodyBytes = 1 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// CardService is the card the server displays and configures.
type CardService interface {
	Output() (*card.Output, bool)
	OnConfigChanged(raw domain.RawConfig)
}

// StateService accepts complete host state snapshots.
type StateService interface {
	Replace(snapshot domain.StateSnapshot)
	Snapshot() domain.StateSnapshot
}

// Rasterizer draws the card as PNG.
type Rasterizer interface {
	PNG(view domain.CardView, width int) ([]byte, error)
}

// TrackerService is the optional location tracker.
type TrackerService interface {
	UpdateLocation(ctx context.Context, loc tracker.Location) error
	Add(ctx context.Context, code string) error
	Remove(ctx context.Context, code string) error
	Set(ctx context.Context, codes []string) ([]string, error)
	Entity() domain.Entity
}

// Deps are the collaborators behind the HTTP routes. Tracker may be nil,
// which leaves the tracker routes unregistered.
type Deps struct {
	Card       CardService
	State      StateService
	Rasterizer Rasterizer
	Tracker    TrackerService
	Ready      []ReadinessChecker
}

// Server exposes the card, its inputs, and health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the card, config, state, tracker,
// /healthz, /readyz and /metrics routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      accessLog(logger)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", handleReady(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /card", s.handleCardHTML)
	mux.HandleFunc("GET /card.svg", s.handleCardSVG)
	mux.HandleFunc("GET /card.png", s.handleCardPNG)
	mux.HandleFunc("PUT /config", s.handleConfig)
	mux.HandleFunc("GET /state", s.handleGetState)
	mux.HandleFunc("POST /state", s.handleState)

	if deps.Tracker != nil {
		mux.HandleFunc("GET /tracker", s.handleTrackerEntity)
		mux.HandleFunc("POST /location", s.handleLocation)
		mux.HandleFunc("POST /services/add_visited_country", s.handleAddCountry)
		mux.HandleFunc("POST /services/remove_visited_country", s.handleRemoveCountry)
		mux.HandleFunc("POST /services/set_visited_countries", s.handleSetCountries)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleReady(checkers []ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var errs []error
		for _, c := range checkers {
			if err := c.CheckReadiness(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
