package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sensor entity attribute names.
const (
	AttrVisitedCountries = "visited_countries"
	AttrCurrentCountry   = "current_country"
	AttrVisitedColor     = "visited_color"
	AttrCurrentColor     = "current_color"
	AttrUnvisitedColor   = "unvisited_color"
	AttrPersonEntityID   = "person_entity_id"
)

// Entity is one named object in the host state, e.g. sensor.been_map.
type Entity struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// StateSnapshot is the host state as seen by the card.
type StateSnapshot struct {
	Entities map[string]Entity `json:"entities"`
}

// NewStateSnapshot builds a snapshot from a list of entities.
func NewStateSnapshot(entities ...Entity) StateSnapshot {
	s := StateSnapshot{Entities: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		s.Entities[e.EntityID] = e
	}
	return s
}

// With returns a copy of the snapshot with e added or replaced.
func (s StateSnapshot) With(e Entity) StateSnapshot {
	out := StateSnapshot{Entities: make(map[string]Entity, len(s.Entities)+1)}
	for id, existing := range s.Entities {
		out.Entities[id] = existing
	}
	out.Entities[e.EntityID] = e
	return out
}

// VisitState drives per-country coloring. CurrentCountry is empty when the
// person's current country is unknown.
type VisitState struct {
	VisitedCountries []string
	CurrentCountry   string
}

// IsVisited reports whether code is in the visited set.
func (v VisitState) IsVisited(code string) bool {
	for _, c := range v.VisitedCountries {
		if c == code {
			return true
		}
	}
	return false
}

// IsCurrent reports whether code is the current country.
func (v VisitState) IsCurrent(code string) bool {
	return v.CurrentCountry != "" && v.CurrentCountry == code
}

// ExtractState derives the visit state from a host snapshot. A missing
// sensor entity is not an error: the manual countries apply and there is no
// current country.
//
// Color attributes on the entity are written into cfg and therefore outlive
// this call; they persist until the host replaces the configuration.
func ExtractState(snapshot StateSnapshot, cfg *DisplayConfig) VisitState {
	entity, ok := snapshot.Entities[cfg.Entity]
	if !ok {
		return VisitState{VisitedCountries: dedupe(cfg.ManualCountries)}
	}

	attrs := entity.Attributes
	state := VisitState{VisitedCountries: dedupe(cfg.ManualCountries)}
	if visited, ok := stringList(attrs[AttrVisitedCountries]); ok {
		state.VisitedCountries = dedupe(visited)
	}
	if current, ok := attrs[AttrCurrentCountry].(string); ok {
		state.CurrentCountry = current
	}

	if c, ok := attrs[AttrVisitedColor].(string); ok && c != "" {
		cfg.VisitedColor = c
	}
	if c, ok := attrs[AttrCurrentColor].(string); ok && c != "" {
		cfg.CurrentColor = c
	}
	if c, ok := attrs[AttrUnvisitedColor].(string); ok && c != "" {
		cfg.UnvisitedColor = c
	}

	return state
}

// ParseStateEvent decodes an entity state event from the state feed.
func ParseStateEvent(raw RawEvent) (Entity, error) {
	var e Entity
	if err := json.Unmarshal(raw.Value, &e); err != nil {
		return Entity{}, fmt.Errorf("parse state event: %w", err)
	}
	if strings.TrimSpace(e.EntityID) == "" {
		if len(raw.Key) == 0 {
			return Entity{}, fmt.Errorf("parse state event: missing entity_id")
		}
		e.EntityID = string(raw.Key)
	}
	return e, nil
}

// stringList accepts both decoded JSON arrays and native string slices.
// A present but non-list value is treated as absent.
func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
