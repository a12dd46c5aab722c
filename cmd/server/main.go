package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/karvek/albion-scalper/internal/api"
	"github.com/karvek/albion-scalper/internal/api/handlers"
	"github.com/karvek/albion-scalper/internal/auth"
	"github.com/karvek/albion-scalper/internal/cache"
	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/gateway"
	"github.com/karvek/albion-scalper/internal/items"
	"github.com/karvek/albion-scalper/internal/logging"
	"github.com/karvek/albion-scalper/internal/market"
	"github.com/karvek/albion-scalper/internal/scanner"
)

func main() {
	// Environment files are optional outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store cache.Store
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			client := redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			store = cache.NewRedisStore(client, cfg.Cache.TTL(), logger)
		default:
			store = cache.NewFileStore(cfg.Cache.Directory, cfg.Cache.TTL(), logger)
		}
	}

	var source gateway.PriceSource = gateway.NewClient(&cfg.API, logger)
	if store != nil {
		source = gateway.NewCachedSource(source, store, logger)
	}

	tax := market.NewTaxModel(cfg.Locations, cfg.Taxes, logger)

	var catalog *items.Catalog
	if loaded, err := items.NewLoader(cfg.Items, logger).Load(ctx, cfg.Categories); err != nil {
		logger.WithError(err).Warn("Item catalog unavailable, category expansion and item names disabled")
	} else {
		catalog = loaded
	}

	var namer scanner.ItemNamer
	if catalog != nil {
		namer = catalog
	}
	scn := scanner.New(source, tax, namer, scanner.Config{
		Workers:          cfg.Analysis.ScanWorkers,
		FetchHistory:     cfg.Analysis.FetchHistory,
		HistoryTimeScale: cfg.Analysis.HistoryTimeScale,
	}, logger)

	deps := api.Dependencies{
		Config:  cfg,
		Scanner: scn,
		Catalog: catalog,
	}
	if cacheStore, ok := store.(handlers.CacheStore); ok {
		deps.Cache = cacheStore
	}

	if cfg.Security.JWTSecret != "" {
		var mailer auth.Mailer
		if smtpMailer := auth.NewSMTPMailer(cfg.SMTP, logger); smtpMailer != nil {
			mailer = smtpMailer
		}
		svc, err := auth.NewService(cfg.Security, mailer, logger)
		if err != nil {
			log.Fatalf("Failed to initialize auth service: %v", err)
		}
		deps.Auth = svc
	} else {
		logger.Warn("JWT_SECRET not set, user registration endpoints disabled")
	}

	if err := api.Serve(ctx, deps, logger); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server exited")
}
