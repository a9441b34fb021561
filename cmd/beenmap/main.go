package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/been-map-service/internal/adapter/geodata"
	httpadapter "github.com/couchcryptid/been-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/been-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/been-map-service/internal/adapter/redisstore"
	"github.com/couchcryptid/been-map-service/internal/card"
	"github.com/couchcryptid/been-map-service/internal/config"
	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/observability"
	"github.com/couchcryptid/been-map-service/internal/pipeline"
	"github.com/couchcryptid/been-map-service/internal/render"
	"github.com/couchcryptid/been-map-service/internal/tracker"
	"github.com/joho/godotenv"
)

// stateBatchSize is the number of state events applied per card update.
const stateBatchSize = 50

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Render publishing (optional, KAFKA_RENDER_TOPIC).
	var publisher card.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaRenderTopic != "" {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("render publishing enabled", "topic", cfg.KafkaRenderTopic)
	}

	fetcher := geodata.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, logger)
	c := card.New(ctx, fetcher, publisher, metrics, logger)

	cardCfg := domain.RawConfig{}
	if cfg.CardConfigPath != "" {
		data, err := os.ReadFile(cfg.CardConfigPath)
		if err != nil {
			logger.Error("failed to read card config", "path", cfg.CardConfigPath, "error", err)
			os.Exit(1)
		}
		cardCfg, err = domain.ParseRawConfig(data)
		if err != nil {
			logger.Error("failed to parse card config", "path", cfg.CardConfigPath, "error", err)
			os.Exit(1)
		}
		c.OnConfigChanged(cardCfg)
		logger.Info("card config applied", "path", cfg.CardConfigPath)
	}

	snapshots := pipeline.NewSnapshotLoader(c)
	var loader pipeline.BatchLoader = snapshots

	// Location tracker (optional, TRACKER_PERSON_ENTITY).
	var trk *tracker.Tracker
	var store *redisstore.Store
	if cfg.TrackerPersonEntity != "" {
		display := domain.NormalizeConfig(cardCfg)
		trk = tracker.New(tracker.Options{
			PersonEntity:    cfg.TrackerPersonEntity,
			SensorEntity:    display.Entity,
			ManualCountries: display.ManualCountries,
			VisitedColor:    display.VisitedColor,
			CurrentColor:    display.CurrentColor,
			UnvisitedColor:  display.UnvisitedColor,
		}, c, snapshots, metrics, logger)
		loader = trk
		logger.Info("location tracker enabled", "person", cfg.TrackerPersonEntity)

		// Visit persistence (optional, REDIS_ADDR).
		if store = redisstore.Open(cfg, logger); store != nil {
			if err := trk.UseStore(ctx, store); err != nil {
				logger.Error("failed to restore tracker visits", "error", err)
				os.Exit(1)
			}
		}

		go func() {
			if err := c.WaitLoaded(ctx); err != nil {
				return
			}
			if err := trk.Publish(ctx); err != nil {
				logger.Error("publish tracker state failed", "error", err)
			}
		}()
	}

	deps := httpadapter.Deps{
		Card:       c,
		State:      snapshots,
		Rasterizer: render.NewRasterizer(cfg.RasterCacheSize, metrics, logger),
		Ready:      []httpadapter.ReadinessChecker{c},
	}
	if trk != nil {
		deps.Tracker = trk
	}
	if store != nil {
		deps.Ready = append(deps.Ready, store)
	}

	// State feed (optional, STATE_FEED_ENABLED).
	var reader *kafkaadapter.Reader
	var feed *pipeline.Pipeline
	if cfg.StateFeedEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		feed = pipeline.New(reader, pipeline.NewStateDecoder(logger), loader, logger, metrics, stateBatchSize)
		deps.Ready = append(deps.Ready, feed)
	} else {
		logger.Info("state feed disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start state feed.
	if feed != nil {
		go func() {
			if err := feed.Run(ctx); err != nil {
				logger.Error("state feed error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
