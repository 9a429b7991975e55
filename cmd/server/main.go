// Package main implements the entry point for the hashpool server, which
// exposes bcrypt hashing over HTTP and runs the hashing on a bounded pool of
// workers so request goroutines never do CPU-bound work themselves.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/hashpool/internal/config"
	"github.com/phrazzld/hashpool/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		app.logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration, sets up logging and builds the
// application with a started worker pool.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"pool_capacity", cfg.Pool.Capacity,
		"task_timeout", cfg.Pool.TaskTimeout,
		"bcrypt_cost", cfg.Auth.BcryptCost)

	return newApplication(cfg, log)
}
