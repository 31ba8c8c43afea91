package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/soochol/stateflow/internal/api"
	"github.com/soochol/stateflow/internal/config"
	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/loader"
	"github.com/soochol/stateflow/internal/metrics"
	"github.com/soochol/stateflow/internal/services"
	"github.com/soochol/stateflow/internal/stateflow"
)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newEngine(cfg *config.Config) *engine.Engine {
	var opts []engine.Option
	if cfg.Validation.StrictFinalStates {
		opts = append(opts, engine.WithStrictFinalStates())
	}
	return engine.New(opts...)
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	eng := newEngine(cfg)
	eventBus := engine.NewEventBus()
	workflowSvc := services.NewWorkflowService(store.definitions, eng, m)
	instanceSvc := services.NewInstanceService(store.definitions, store.instances, eng, eventBus, m)

	if cfg.Definitions.Dir != "" {
		if err := seedDefinitions(ctx, workflowSvc, cfg.Definitions.Dir); err != nil {
			return err
		}
	}

	if cfg.Reporter.Schedule != "" {
		reporter := services.NewReporter(store.definitions, store.instances, m)
		if err := reporter.Start(cfg.Reporter.Schedule); err != nil {
			return err
		}
		defer reporter.Stop()
	}

	srv := api.NewServer(workflowSvc, instanceSvc, eventBus)
	srv.SetMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting stateflow server", "addr", addr, "storage", cfg.Storage.Backend)
		serverErrors <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
			return httpSrv.Close()
		}
		slog.Info("server stopped gracefully")
		return nil
	}
}

// seedDefinitions registers every definition found in dir. Definitions that
// already exist are left as stored.
func seedDefinitions(ctx context.Context, svc *services.WorkflowService, dir string) error {
	defs, err := loader.LoadDir(ctx, dir)
	if err != nil && len(defs) == 0 {
		return fmt.Errorf("load definitions: %w", err)
	}
	if err != nil {
		slog.Warn("some definition files could not be parsed", "dir", dir, "err", err)
	}

	created := 0
	for _, wf := range defs {
		_, cerr := svc.Create(ctx, wf)
		switch {
		case cerr == nil:
			created++
		case errors.Is(cerr, stateflow.ErrConflict):
			slog.Debug("definition already registered", "workflow", wf.ID)
		default:
			slog.Warn("skipping definition", "workflow", wf.ID, "err", cerr)
		}
	}
	slog.Info("definitions loaded", "dir", dir, "found", len(defs), "created", created)
	return nil
}
