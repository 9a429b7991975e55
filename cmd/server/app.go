package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/hashpool/internal/config"
	"github.com/phrazzld/hashpool/internal/events"
	"github.com/phrazzld/hashpool/internal/metrics"
	"github.com/phrazzld/hashpool/internal/service"
	"github.com/phrazzld/hashpool/internal/service/auth"
	"github.com/phrazzld/hashpool/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "hashpool"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	registry     *prometheus.Registry
	eventEmitter *events.InMemoryEventEmitter
	poolMetrics  *metrics.PoolMetrics

	pool            *task.Pool
	passwordService service.PasswordService
}

// newApplication creates a new application instance with all dependencies
// initialized and the worker pool started.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	app.poolMetrics, err = metrics.NewPoolMetrics(app.registry, metricsNamespace)
	if err != nil {
		return nil, err
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.poolMetrics)

	app.pool = task.NewWorkerPool(task.WorkerPoolConfig{
		Capacity:    cfg.Pool.Capacity,
		TaskTimeout: cfg.Pool.TaskTimeout,
		WorkerInit: task.Handlers(
			task.RegisterEcho,
			auth.RegisterOperations(cfg.Auth.BcryptCost),
		),
	}, logger)
	app.pool.SetEventEmitter(app.eventEmitter)

	if err := app.pool.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}

	app.passwordService, err = service.NewPasswordService(app.pool, logger)
	if err != nil {
		app.shutdownPool()
		return nil, fmt.Errorf("failed to create password service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP on the configured port until ctx is cancelled, then shuts
// down the server and the pool.
func (app *application) Run(ctx context.Context) error {
	ln, err := app.listen()
	if err != nil {
		app.shutdownPool()
		return err
	}
	return app.serve(ctx, ln, app.setupRouter())
}

// shutdownPool drains the pool within pool.shutdown_timeout. Tasks still
// pending after that are failed with ShutdownTimeout.
func (app *application) shutdownPool() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Pool.ShutdownTimeout)
	defer cancel()

	if err := app.pool.Shutdown(ctx); err != nil {
		app.logger.Error("worker pool shutdown timed out", "error", err)
		return
	}
	app.logger.Info("worker pool stopped", "stats", app.pool.Stats())
}
