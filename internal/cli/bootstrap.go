package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/cache"
	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/gateway"
	"github.com/karvek/albion-scalper/internal/items"
	"github.com/karvek/albion-scalper/internal/logging"
	"github.com/karvek/albion-scalper/internal/market"
	"github.com/karvek/albion-scalper/internal/scanner"
)

// app bundles the wired components every command works from.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	store   cache.Store
	source  gateway.PriceSource
	tax     *market.TaxModel
	catalog *items.Catalog
}

// buildApp loads configuration and wires the component graph. A missing
// item catalog is logged and tolerated; commands that need it degrade
// to raw item IDs.
func buildApp(ctx context.Context, logLevel string, loadCatalog bool) (*app, error) {
	// Environment files are optional outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(level, cfg.Environment)

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

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		source: source,
		tax:    market.NewTaxModel(cfg.Locations, cfg.Taxes, logger),
	}

	if loadCatalog {
		catalog, err := items.NewLoader(cfg.Items, logger).Load(ctx, cfg.Categories)
		if err != nil {
			logger.WithError(err).Warn("Item catalog unavailable, category expansion and item names disabled")
		} else {
			a.catalog = catalog
		}
	}
	return a, nil
}

// newScanner builds a scanner with the app's wiring. fetchHistory
// overrides the configured master switch so an explicit volume filter
// on the command line always works.
func (a *app) newScanner(fetchHistory bool) *scanner.Scanner {
	var namer scanner.ItemNamer
	if a.catalog != nil {
		namer = a.catalog
	}
	return scanner.New(a.source, a.tax, namer, scanner.Config{
		Workers:          a.cfg.Analysis.ScanWorkers,
		FetchHistory:     fetchHistory,
		HistoryTimeScale: a.cfg.Analysis.HistoryTimeScale,
	}, a.logger)
}

// resolveItems merges explicit IDs and categories, falling back to the
// configured defaults when neither is given.
func (a *app) resolveItems(itemIDs, categories []string) []string {
	if len(itemIDs) == 0 && len(categories) == 0 {
		itemIDs = a.cfg.Analysis.DefaultItems
		categories = a.cfg.Analysis.DefaultCategories
	}
	if a.catalog == nil {
		if len(categories) > 0 {
			a.logger.WithField("categories", categories).
				Warn("Categories ignored: item catalog not loaded")
		}
		return itemIDs
	}
	return a.catalog.Resolve(itemIDs, categories)
}
