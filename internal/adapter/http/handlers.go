package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/couchcryptid/been-map-service/internal/card"
	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/render"
	"github.com/couchcryptid/been-map-service/internal/tracker"
)

// output returns the displayed card, answering 503 while nothing is drawn.
func (s *Server) output(w http.ResponseWriter) (*card.Output, bool) {
	out, ok := s.deps.Card.Output()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "card not rendered yet")
		return nil, false
	}
	return out, true
}

func (s *Server) handleCardHTML(w http.ResponseWriter, _ *http.Request) {
	out, ok := s.output(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(out.HTML) //nolint:errcheck // client went away
}

func (s *Server) handleCardSVG(w http.ResponseWriter, _ *http.Request) {
	out, ok := s.output(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(out.SVG) //nolint:errcheck // client went away
}

// handleCardPNG rasterizes the displayed card at ?width= pixels. Only hex
// colors rasterize faithfully; CSS color names from the config or entity
// attributes come out black, while /card and /card.svg pass them through.
func (s *Server) handleCardPNG(w http.ResponseWriter, r *http.Request) {
	width := render.DefaultPNGWidth
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "width must be a positive integer")
			return
		}
		width = n
	}

	out, ok := s.output(w)
	if !ok {
		return
	}
	data, err := s.deps.Rasterizer.PNG(out.View, width)
	if err != nil {
		s.logger.Error("rasterize card failed", "error", err)
		writeError(w, http.StatusInternalServerError, "rasterize card failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data) //nolint:errcheck // client went away
}

// handleConfig accepts a YAML or JSON card configuration and replaces the
// current one wholesale.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	raw, err := domain.ParseRawConfig(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.deps.Card.OnConfigChanged(raw)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.State.Snapshot())
}

// handleState replaces the host state snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var snapshot domain.StateSnapshot
	if !decodeJSON(w, r, &snapshot) {
		return
	}
	for id, e := range snapshot.Entities {
		if e.EntityID == "" {
			e.EntityID = id
			snapshot.Entities[id] = e
		}
	}
	s.deps.State.Replace(snapshot)
	w.WriteHeader(http.StatusNoContent)
}

type locationRequest struct {
	Zone      string   `json:"zone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.deps.Tracker.UpdateLocation(r.Context(), tracker.Location{
		Zone:      req.Zone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	s.writeTrackerResult(w, err)
}

type countryRequest struct {
	CountryCode string `json:"country_code"`
}

func (s *Server) handleAddCountry(w http.ResponseWriter, r *http.Request) {
	var req countryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.writeTrackerResult(w, s.deps.Tracker.Add(r.Context(), req.CountryCode))
}

func (s *Server) handleRemoveCountry(w http.ResponseWriter, r *http.Request) {
	var req countryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.writeTrackerResult(w, s.deps.Tracker.Remove(r.Context(), req.CountryCode))
}

type countriesRequest struct {
	CountryCodes []string `json:"country_codes"`
}

func (s *Server) handleSetCountries(w http.ResponseWriter, r *http.Request) {
	var req countriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CountryCodes == nil {
		writeError(w, http.StatusBadRequest, "country_codes must be a list")
		return
	}
	invalid, err := s.deps.Tracker.Set(r.Context(), req.CountryCodes)
	if err != nil {
		s.writeTrackerResult(w, err)
		return
	}
	if invalid == nil {
		invalid = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity":  s.deps.Tracker.Entity(),
		"invalid": invalid,
	})
}

func (s *Server) handleTrackerEntity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tracker.Entity())
}

func (s *Server) writeTrackerResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.deps.Tracker.Entity())
	case errors.Is(err, tracker.ErrUnknownCountry):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracker.ErrCatalogNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("tracker update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "tracker update failed")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
