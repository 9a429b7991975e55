// Command hash-generator prints bcrypt hashes for fixture passwords. The
// hashes are computed concurrently on a worker pool and printed in input
// order.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/phrazzld/hashpool/internal/platform/logger"
	"github.com/phrazzld/hashpool/internal/service/auth"
	"github.com/phrazzld/hashpool/internal/task"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

var defaultPasswords = []string{
	"testpassword123",
	"test@#$%^&*()",
	"this-is-a-very-long-password-that-tests-edge-cases-for-bcrypt-hashing-algorithm",
	"тест123",
}

// entry is the outcome for one password.
type entry struct {
	Password string
	Hash     string
	Err      error
}

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	workers := flag.Int("workers", runtime.NumCPU(), "number of pool workers")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	passwords := flag.Args()
	if len(passwords) == 0 {
		passwords = defaultPasswords
	}

	log := logger.New(os.Stderr, *logLevel)

	if err := run(os.Stdout, log, *cost, *workers, passwords); err != nil {
		log.Error("hash generation failed", "error", err)
		os.Exit(1)
	}
}

func run(out io.Writer, log *slog.Logger, cost, workers int, passwords []string) error {
	if _, err := auth.NewBcryptHasher(cost); err != nil {
		return err
	}

	pool := task.NewWorkerPool(task.WorkerPoolConfig{
		Capacity:   workers,
		WorkerInit: task.Handlers(auth.RegisterOperations(cost)),
	}, log)
	if err := pool.Start(); err != nil {
		return err
	}

	entries, err := generate(context.Background(), pool, passwords)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if shutdownErr := pool.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Err != nil {
			fmt.Fprintf(out, "Error generating hash for %s: %v\n\n", e.Password, e.Err)
			continue
		}
		fmt.Fprintf(out, "Password: %s\nHash: %s\n\n", e.Password, e.Hash)
	}
	return nil
}

// generate submits one bcryptHash task per password and collects the results
// in input order. Per-password failures are reported in the entry; only a
// pool-level failure aborts the run.
func generate(ctx context.Context, pool *task.Pool, passwords []string) ([]entry, error) {
	entries := make([]entry, len(passwords))

	g, gctx := errgroup.WithContext(ctx)
	for i, password := range passwords {
		g.Go(func() error {
			entries[i].Password = password

			result, err := pool.Do(gctx, task.NewPayload(auth.OperationBcryptHash, password))
			if err != nil {
				return fmt.Errorf("hashing password %d: %w", i, err)
			}
			entries[i].Err = result.Decode(&entries[i].Hash)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
