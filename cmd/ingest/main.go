// Command ingest rebuilds the places dataset from OpenStreetMap and Google Places, once or daily.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telegram-places-bot/config"
	"telegram-places-bot/db"
	"telegram-places-bot/ingest"
	"telegram-places-bot/logger"
	"telegram-places-bot/places"
	"telegram-places-bot/refresh"
	"telegram-places-bot/worker"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetchers, err := buildFetchers(cfg, log)
	if err != nil {
		log.Fatal("Failed to set up fetchers", zap.Error(err))
	}

	opts := ingest.Options{
		Fetchers:      fetchers,
		Categories:    cfg.Search.Categories,
		CategoryDelay: cfg.Ingest.CategoryDelay,
	}

	if cfg.Data.Source == config.DataSourceDB {
		database, err := db.Connect(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close()

		if err := database.RunMigrations(ctx); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		seedHubs(ctx, database, cfg.Data.HubsFile, log)
		opts.Sinks = append(opts.Sinks, ingest.NewDBSink(database, places.LocationsKey))
		opts.Recorder = database
	} else {
		opts.Sinks = append(opts.Sinks, ingest.NewFileSink(cfg.Data.LocationsFile, places.LocationsKey))
	}

	if cfg.RedisConfigured() {
		redisClient, err := refresh.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Warn("Redis unavailable, bots will pick up the new dataset on their reload interval", zap.Error(err))
		} else {
			defer redisClient.Close()
			opts.Publisher = refresh.NewNotifier(redisClient.Client(), log)
		}
	}

	job := ingest.NewJob(opts, log)

	if cfg.Ingest.RunOnce {
		report, err := job.Run(ctx)
		if err != nil {
			log.Error("Ingestion failed", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Ingestion finished",
			zap.String("run_id", report.RunID.String()),
			zap.Int("places", report.Kept))
		return
	}

	scheduler, err := ingest.NewScheduler(job, cfg.Ingest.DailyAt, log)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}

	manager := worker.NewManager(log)
	manager.Register(scheduler)
	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("Received shutdown signal")

	if err := manager.Stop(); err != nil {
		log.Error("Failed to stop workers", zap.Error(err))
	}
	log.Info("Ingest stopped")
}

func buildFetchers(cfg *config.Config, log *zap.Logger) ([]ingest.Fetcher, error) {
	var fetchers []ingest.Fetcher

	if cfg.Ingest.Providers == "osm" || cfg.Ingest.Providers == "both" {
		fetchers = append(fetchers, ingest.NewOverpassFetcher(cfg.Ingest.OverpassURL, log))
	}

	if cfg.Ingest.Providers == "google" || cfg.Ingest.Providers == "both" {
		if cfg.Ingest.GoogleMapsAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is required when using Google Maps API")
		}
		google, err := ingest.NewGoogleFetcher(cfg.Ingest.GoogleMapsAPIKey, log)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, google)
	}
	return fetchers, nil
}

// seedHubs copies the curated transport hubs file into the database. Hubs are not ingested from
// providers.
func seedHubs(ctx context.Context, database *db.DB, path string, log *zap.Logger) {
	if path == "" {
		return
	}
	hubs, err := places.NewFileSource(path, places.HubsKey).Read(ctx)
	if err != nil {
		log.Warn("Transport hubs file not imported", zap.String("path", path), zap.Error(err))
		return
	}
	n, err := database.ReplacePlaces(ctx, places.HubsKey, uuid.Nil, hubs)
	if err != nil {
		log.Error("Failed to import transport hubs", zap.Error(err))
		return
	}
	log.Info("Transport hubs imported", zap.Int64("hubs", n))
}
