package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shelfscan_backend/internal/feature/bookdetection/adapters"
	"shelfscan_backend/internal/feature/bookdetection/adapters/googlebooks"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/platform/cooldown"
	"shelfscan_backend/internal/platform/db"
	healthhandler "shelfscan_backend/internal/platform/http/handler"
	infraredis "shelfscan_backend/internal/platform/redis"
)

// App holds the wired components shared by the HTTP server and the CLI.
type App struct {
	Pipeline *usecase.Pipeline
	Health   healthhandler.HealthInfo
	Cache    CachePurger

	closers []func()
}

// Close releases every client opened by Build.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build wires infrastructure, adapters and usecases from cfg.
// Redis and the SQL cache are optional; when Redis is unreachable the app runs without it.
func Build(ctx context.Context, cfg Config) (*App, error) {
	app := &App{}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		if c, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
			slog.Warn("Redis unavailable. Running without shared cache and cooldown.", "error", err)
		} else {
			rdb = c
			app.closers = append(app.closers, func() {
				if err := rdb.Close(); err != nil {
					slog.Error("Failed to close Redis client", "error", err)
				}
			})
		}
	}

	var gdb *gorm.DB
	if rdb == nil && cfg.DBEnabled {
		dbCfg := cfg.DB
		// A local SQLite file is always migrated.
		if dbCfg.Driver == db.DriverSQLite {
			dbCfg.RunMigrations = true
		}
		g, err := db.OpenDB(dbCfg, &adapters.CatalogLookupModel{})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open lookup cache database: %w", err)
		}
		gdb = g
		if sqlDB, err := g.DB(); err == nil {
			app.closers = append(app.closers, func() { _ = sqlDB.Close() })
		}
	}

	var store usecase.CooldownStore
	if rdb != nil {
		store = cooldown.NewCooldownRedis(rdb, "cooldown", cfg.ProviderCooldown)
	}

	specs, closeProviders, err := NewProviderSpecs(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeProviders)

	cascade := usecase.NewCascade(specs, store).WithCooldown(cfg.ProviderCooldown)

	catalog, cacheKind, purger, err := NewCatalog(ctx, rdb, gdb, cfg.CacheTTL)
	if err != nil {
		app.Close()
		return nil, err
	}
	matcher := usecase.NewMatcher(catalog)
	coordinator := usecase.NewCoordinator(matcher).
		WithConcurrency(cfg.BatchConcurrency).
		WithPacing(cfg.BatchPacing)

	app.Pipeline = usecase.NewPipeline(cascade, coordinator).
		WithTimeout(cfg.PipelineTimeout).
		WithEnrichment(cfg.Enrichment)
	app.Cache = purger
	app.Health = healthhandler.HealthInfo{
		Providers:     cascade.ProviderNames(),
		AuthProviders: cascade.AuthProviderNames(),
		Catalog:       googlebooks.ProviderName,
		Cache:         cacheKind,
	}

	slog.Info("application wired",
		"providers", app.Health.Providers,
		"auth_providers", app.Health.AuthProviders,
		"cache", cacheKind,
		"enrichment", cfg.Enrichment,
	)
	return app, nil
}
