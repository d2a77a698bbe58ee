// cmd/madlibs/app.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"madlibs-stories/internal/cms"
	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/common/database"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/common/observability"
	"madlibs-stories/internal/common/validation"
	"madlibs-stories/internal/gateway"
	"madlibs-stories/internal/store"
	"madlibs-stories/internal/story"
	"madlibs-stories/pkg/registry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger

	cosmic   *cms.Client
	source   story.TemplateSource
	registry *registry.Registry
	cache    *store.CachedSource
	db       *sql.DB
	redis    *redis.Client
	gateway  story.Gateway

	closers []func()
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	zapLog := logger.New(level, cfg.Logging.Format, cfg.Logging.Output)

	a := &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    logger.NewZapAdapter(zapLog),
	}
	a.closers = append(a.closers, func() { _ = zapLog.Sync() })

	if cfg.Source.Kind == config.SourceCMS || cfg.GenAI.Provider == config.ProviderCosmic {
		a.cosmic = cms.NewClient(cfg.CMS, a.log)
	}

	if err := a.buildSource(ctx); err != nil {
		a.close()
		return nil, err
	}

	gw, err := gateway.New(ctx, cfg.GenAI, a.cosmic)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("generation gateway: %w", err)
	}
	a.gateway = gw

	return a, nil
}

func (a *app) buildSource(ctx context.Context) error {
	switch a.cfg.Source.Kind {
	case config.SourceCMS:
		validator, err := validation.NewValidator()
		if err != nil {
			return err
		}
		a.source = cms.NewSource(a.cosmic, validator)

	case config.SourceRegistry:
		reg, err := registry.LoadRegistry(a.cfg.Source.RegistryPath)
		if err != nil {
			return fmt.Errorf("load registry %s: %w", a.cfg.Source.RegistryPath, err)
		}
		a.registry = reg
		a.source = reg

	case config.SourcePostgres:
		err := database.WithBackoff(ctx, a.log, "PostgreSQL connection", 10, 2*time.Second, func(ctx context.Context) error {
			db, err := database.OpenPostgres(ctx, a.cfg.Database.Postgres)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = a.db.Close() })
		a.source = store.NewPostgresSource(a.db, a.log)

	default:
		return fmt.Errorf("unknown source kind %q", a.cfg.Source.Kind)
	}

	if !a.cfg.Cache.Enabled {
		return nil
	}

	err := database.WithBackoff(ctx, a.log, "Redis connection", 5, time.Second, func(ctx context.Context) error {
		rdb, err := database.OpenRedis(ctx, a.cfg.Database.Redis)
		if err != nil {
			return err
		}
		a.redis = rdb
		return nil
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = a.redis.Close() })
	a.cache = store.NewCachedSource(a.source, a.redis, a.cfg.Cache, a.log)
	a.source = a.cache
	return nil
}

// reloadRegistry re-reads the registry file and drops cached lookups so the
// new templates and prompts are served immediately.
func (a *app) reloadRegistry(ctx context.Context) error {
	if a.registry == nil {
		return fmt.Errorf("source %q does not support reload", a.cfg.Source.Kind)
	}
	next, err := registry.LoadRegistry(a.cfg.Source.RegistryPath)
	if err != nil {
		return fmt.Errorf("load registry %s: %w", a.cfg.Source.RegistryPath, err)
	}
	a.registry.Replace(next)

	fields := map[string]interface{}{"version": next.Version()}
	if a.cache != nil {
		removed, err := a.cache.Flush(ctx)
		if err != nil {
			a.log.Warn("template cache flush failed", map[string]interface{}{"error": err})
		}
		fields["cacheEntriesRemoved"] = removed
	}
	a.log.Info("registry reloaded", fields)
	return nil
}

func (a *app) orchestrator(obs *observability.Observability) *story.Orchestrator {
	return story.NewOrchestrator(a.gateway, a.log,
		story.WithSource(a.source),
		story.WithDefaultMaxTokens(a.cfg.GenAI.DefaultMaxTokens),
		story.WithProvider(a.cfg.GenAI.Provider),
		story.WithObservability(obs),
	)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
