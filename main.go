package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"telegram-places-bot/api"
	"telegram-places-bot/config"
	"telegram-places-bot/conversation"
	"telegram-places-bot/db"
	"telegram-places-bot/logger"
	"telegram-places-bot/nearby"
	"telegram-places-bot/places"
	"telegram-places-bot/refresh"
	"telegram-places-bot/telegram"
	"telegram-places-bot/worker"
)

const (
	sessionCleanupInterval = 10 * time.Minute
	shutdownTimeout        = 30 * time.Second
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

	log.Info("Starting Addis places bot",
		zap.String("data_source", cfg.Data.Source),
		zap.Bool("telegram", cfg.Telegram.Enabled),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Datasets
	placesSource, hubsSource, database, err := openSources(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open places datasets", zap.Error(err))
	}
	if database != nil {
		defer database.Close()
	}

	placesRepo := places.NewRepository(placesSource, cfg.Search.Categories, log.Named("places"))
	hubsRepo := places.NewRepository(hubsSource, places.DefaultHubCategories, log.Named("hubs"))

	// a missing dataset is reported to users, not fatal
	if _, err := placesRepo.Load(ctx); err != nil {
		log.Error("Places dataset unavailable", zap.Error(err))
	}
	if _, err := hubsRepo.Load(ctx); err != nil {
		log.Warn("Transport hubs dataset unavailable", zap.Error(err))
	}

	placesEngine := nearby.NewEngine(placesRepo, log.Named("nearby"))
	hubsEngine := nearby.NewEngine(hubsRepo, log.Named("hubs"))

	// Background workers
	store := conversation.NewStore(cfg.Search.SessionTTL)
	manager := worker.NewManager(log)
	manager.Register(worker.NewTicker("session-cleanup", sessionCleanupInterval, func(ctx context.Context) error {
		if removed := store.Prune(); removed > 0 {
			log.Debug("Idle sessions pruned", zap.Int("removed", removed), zap.Int("active", store.Len()))
		}
		return nil
	}, log))

	var subscriber refresh.Subscriber
	var redisClient *refresh.Redis
	if cfg.RedisConfigured() {
		redisClient, err = refresh.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Warn("Redis unavailable, reloading datasets on interval only", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			subscriber = refresh.NewNotifier(redisClient.Client(), log)
		}
	}
	manager.Register(refresh.NewWatcher(
		[]refresh.Reloader{placesRepo, hubsRepo},
		subscriber,
		cfg.Data.ReloadInterval,
		log,
	))

	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP API
	handler := api.NewHandler(
		placesEngine,
		hubsEngine,
		cfg.Search.RadiusMeters,
		cfg.Search.ResultsPerPage,
		cfg.Search.HubPageSize,
		log,
	)
	if database != nil {
		handler.AddCheck("postgres", database.Ping)
	}
	if redisClient != nil {
		handler.AddCheck("redis", redisClient.Health)
	}
	server := api.NewServer(cfg, handler, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	// Telegram bot
	var botDone sync.WaitGroup
	if cfg.Telegram.Enabled {
		bot, err := telegram.New(cfg.Telegram.Token, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}

		machine := conversation.NewMachine(placesEngine, bot, conversation.Settings{
			RadiusKm: cfg.RadiusKm(),
			PageSize: cfg.Search.ResultsPerPage,
		}, log.Named("conversation"))
		browser := conversation.NewBrowser(
			placesEngine,
			hubsEngine,
			cfg.Search.CategoryPageSize,
			cfg.Search.HubPageSize,
			log.Named("browser"),
		)
		router := conversation.NewRouter(store, machine, browser, bot, log.Named("router"))

		botDone.Add(1)
		go func() {
			defer botDone.Done()
			if err := bot.Run(ctx, router); err != nil {
				log.Error("Bot error", zap.Error(err))
			}
		}()
	} else {
		log.Info("Telegram bot is disabled (set ENABLE_TELEGRAM_BOT=true to enable)")
	}

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := manager.Stop(); err != nil {
		log.Error("Failed to stop workers", zap.Error(err))
	}
	botDone.Wait()

	log.Info("Stopped")
}

// openSources picks the file or database sources for the places and hubs datasets. The database is
// nil for file sources.
func openSources(ctx context.Context, cfg *config.Config, log *zap.Logger) (placesSource, hubsSource places.Source, database *db.DB, err error) {
	if cfg.Data.Source != config.DataSourceDB {
		return places.NewFileSource(cfg.Data.LocationsFile, places.LocationsKey),
			places.NewFileSource(cfg.Data.HubsFile, places.HubsKey),
			nil,
			nil
	}

	database, err = db.Connect(ctx, cfg.Database, log)
	if err != nil {
		if errors.Is(err, db.ErrNotConfigured) {
			return nil, nil, nil, fmt.Errorf("DATA_SOURCE=db needs DB_HOST, DB_USER and DB_NAME: %w", err)
		}
		return nil, nil, nil, err
	}
	if err := database.RunMigrations(ctx); err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database.NewPlaceSource(places.LocationsKey), database.NewPlaceSource(places.HubsKey), database, nil
}
