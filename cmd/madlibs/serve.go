// cmd/madlibs/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"madlibs-stories/internal/api"
	"madlibs-stories/internal/common/camunda"
	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/common/database"
	"madlibs-stories/internal/common/observability"
	"madlibs-stories/internal/common/validation"
	"madlibs-stories/internal/story"
	generatestory "madlibs-stories/internal/workers/story/generate-story"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when enabled, the workflow worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
		Enabled:     cfg.Tracing.Enabled,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	orch := a.orchestrator(obs)

	checks := map[string]api.ReadinessCheck{}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}

	var jobWorker worker.JobWorker
	if cfg.Camunda.Enabled {
		zbClient, w, err := startWorker(ctx, a, orch)
		if err != nil {
			return err
		}
		defer zbClient.Close()
		checks["zeebe"] = func(ctx context.Context) error { return camunda.HealthCheck(ctx, zbClient) }
		jobWorker = w
	}

	if a.registry != nil {
		go watchRegistry(ctx, a)
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(orch, story.NewCatalog(a.source), checks, a.log)
	router := api.NewRouter(api.RouterConfig{
		Handler:        handler,
		Logger:         a.log,
		ServiceName:    cfg.App.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	srv := api.NewServer(cfg.Server, router, a.log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		a.log.Info("shutting down", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err})
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		a.log.Error("tracer shutdown failed", map[string]interface{}{"error": err})
	}
	a.log.Info("shutdown complete", nil)
	return nil
}

func startWorker(ctx context.Context, a *app, orch *story.Orchestrator) (zbc.Client, worker.JobWorker, error) {
	var zbClient zbc.Client
	err := database.WithBackoff(ctx, a.log, "Zeebe client initialization", 10, 2*time.Second, func(ctx context.Context) error {
		c, err := camunda.NewClient(ctx, a.cfg.Camunda)
		if err != nil {
			return err
		}
		zbClient = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	validator, err := validation.NewValidator()
	if err != nil {
		_ = zbClient.Close()
		return nil, nil, err
	}

	wcfg := config.GetWorkerConfig(a.cfg, generatestory.TaskType)
	handler, err := generatestory.NewHandler(generatestory.ConfigFromWorker(wcfg), orch, validator, a.log)
	if err != nil {
		_ = zbClient.Close()
		return nil, nil, err
	}
	return zbClient, camunda.StartWorker(zbClient, generatestory.TaskType, wcfg, handler.Handle, a.log), nil
}

// watchRegistry reloads the registry file on SIGHUP.
func watchRegistry(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.reloadRegistry(ctx); err != nil {
				a.log.Error("registry reload failed", map[string]interface{}{"error": err})
			}
		}
	}
}
