package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/been-map-service/internal/domain"
)

// StateDecoder implements Decoder using domain.ParseStateEvent.
type StateDecoder struct {
	logger *slog.Logger
}

// NewStateDecoder creates a StateDecoder.
func NewStateDecoder(logger *slog.Logger) *StateDecoder {
	return &StateDecoder{logger: logger}
}

func (d *StateDecoder) Decode(_ context.Context, raw domain.RawEvent) (domain.Entity, error) {
	entity, err := domain.ParseStateEvent(raw)
	if err != nil {
		return domain.Entity{}, err
	}
	d.logger.Debug("state event decoded", "entity_id", entity.EntityID, "state", entity.State, "offset", raw.Offset)
	return entity, nil
}
