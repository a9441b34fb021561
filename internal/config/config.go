package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Countries dataset. A zero timeout waits indefinitely.
	CatalogURL     string
	CatalogTimeout time.Duration

	// CardConfigPath points at an optional YAML card configuration applied at startup.
	CardConfigPath string

	// Kafka state feed and render publishing.
	StateFeedEnabled bool
	KafkaBrokers     []string
	KafkaStateTopic  string
	KafkaRenderTopic string
	KafkaGroupID     string

	RasterCacheSize int

	// TrackerPersonEntity enables the built-in location tracker for this person entity.
	TrackerPersonEntity string

	// Optional Redis server persisting tracker visits. Empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	catalogTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("CATALOG_TIMEOUT", "0s"))
	if err != nil || catalogTimeout < 0 {
		return nil, errors.New("invalid CATALOG_TIMEOUT")
	}

	rasterCacheSize, err := parsePositiveInt("RASTER_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	stateFeedEnabled := brokers != ""
	if v := os.Getenv("STATE_FEED_ENABLED"); v != "" {
		stateFeedEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CatalogURL:     sharedcfg.EnvOrDefault("CATALOG_URL", "http://localhost:8123/local/been_map/countries.json"),
		CatalogTimeout: catalogTimeout,
		CardConfigPath: os.Getenv("CARD_CONFIG_PATH"),

		StateFeedEnabled: stateFeedEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaStateTopic:  sharedcfg.EnvOrDefault("KAFKA_STATE_TOPIC", "homeassistant-states"),
		KafkaRenderTopic: os.Getenv("KAFKA_RENDER_TOPIC"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "been-map"),

		RasterCacheSize:     rasterCacheSize,
		TrackerPersonEntity: os.Getenv("TRACKER_PERSON_ENTITY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
	}

	if cfg.CatalogURL == "" {
		return nil, errors.New("CATALOG_URL is required")
	}
	if cfg.StateFeedEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("STATE_FEED_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.StateFeedEnabled && cfg.KafkaStateTopic == "" {
		return nil, errors.New("KAFKA_STATE_TOPIC is required when the state feed is enabled")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}
