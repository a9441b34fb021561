package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8123/local/been_map/countries.json", cfg.CatalogURL)
	assert.Equal(t, time.Duration(0), cfg.CatalogTimeout)
	assert.Empty(t, cfg.CardConfigPath)
	assert.False(t, cfg.StateFeedEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "homeassistant-states", cfg.KafkaStateTopic)
	assert.Empty(t, cfg.KafkaRenderTopic)
	assert.Equal(t, "been-map", cfg.KafkaGroupID)
	assert.Equal(t, 64, cfg.RasterCacheSize)
	assert.Empty(t, cfg.TrackerPersonEntity)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CATALOG_URL", "https://example.test/countries.json")
	t.Setenv("CATALOG_TIMEOUT", "3s")
	t.Setenv("CARD_CONFIG_PATH", "/etc/been-map/card.yaml")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_STATE_TOPIC", "states")
	t.Setenv("KAFKA_RENDER_TOPIC", "renders")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("RASTER_CACHE_SIZE", "8")
	t.Setenv("TRACKER_PERSON_ENTITY", "person.alex")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://example.test/countries.json", cfg.CatalogURL)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, "/etc/been-map/card.yaml", cfg.CardConfigPath)
	assert.True(t, cfg.StateFeedEnabled, "brokers imply the state feed")
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "states", cfg.KafkaStateTopic)
	assert.Equal(t, "renders", cfg.KafkaRenderTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 8, cfg.RasterCacheSize)
	assert.Equal(t, "person.alex", cfg.TrackerPersonEntity)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "secret", cfg.RedisPassword)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidCatalogTimeout(t *testing.T) {
	t.Setenv("CATALOG_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_TIMEOUT")
}

func TestLoad_NegativeCatalogTimeout(t *testing.T) {
	t.Setenv("CATALOG_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_TIMEOUT")
}

func TestLoad_InvalidRasterCacheSize(t *testing.T) {
	t.Setenv("RASTER_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RASTER_CACHE_SIZE")
}

func TestLoad_StateFeedExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("STATE_FEED_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.StateFeedEnabled)
}

func TestLoad_StateFeedEnabledWithDefaultBroker(t *testing.T) {
	t.Setenv("STATE_FEED_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StateFeedEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
}
