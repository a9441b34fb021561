// Package redisstore persists tracker visits in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/been-map-service/internal/config"
	"github.com/couchcryptid/been-map-service/internal/tracker"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "been_map:visits:"

// Store reads and writes tracker visits as JSON values, one key per person.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// Open connects to the Redis server named by the config. It returns nil
// when REDIS_ADDR is unset.
func Open(cfg *config.Config, logger *slog.Logger) *Store {
	if cfg.RedisAddr == "" {
		return nil
	}
	logger.Debug("redis client", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return New(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), logger)
}

// New wraps an existing client.
func New(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// LoadVisits returns the saved visits for person. The bool is false when
// nothing has been saved yet.
func (s *Store) LoadVisits(ctx context.Context, person string) (tracker.Visits, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+person).Bytes()
	if errors.Is(err, redis.Nil) {
		return tracker.Visits{}, false, nil
	}
	if err != nil {
		return tracker.Visits{}, false, fmt.Errorf("redis get visits: %w", err)
	}

	var v tracker.Visits
	if err := json.Unmarshal(data, &v); err != nil {
		return tracker.Visits{}, false, fmt.Errorf("decode visits for %s: %w", person, err)
	}
	return v, true, nil
}

// SaveVisits overwrites the saved visits for person. Keys do not expire.
func (s *Store) SaveVisits(ctx context.Context, person string, v tracker.Visits) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode visits: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+person, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set visits: %w", err)
	}
	s.logger.Debug("visits saved", "person", person, "visited", len(v.Visited))
	return nil
}

// CheckReadiness pings the server.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}
