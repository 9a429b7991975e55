// Command loadtest drives the hashing endpoint with concurrent connections
// and prints latency and throughput. Ctrl-C stops the run early and still
// prints the results collected so far.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phrazzld/hashpool/internal/loadtest"
	"github.com/phrazzld/hashpool/internal/platform/logger"
)

// headerFlags collects repeated -H "Name: value" flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, ", ")
}

func (h headerFlags) Set(value string) error {
	name, v, ok := strings.Cut(value, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header must be formatted as 'Name: value'")
	}
	h[strings.TrimSpace(name)] = strings.TrimSpace(v)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "loadtest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	defaults := loadtest.DefaultScenario()
	headers := headerFlags{}

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "scenario file (YAML or JSON); flags override it")
	url := fs.String("url", defaults.URL, "target URL")
	method := fs.String("method", defaults.Method, "HTTP method")
	body := fs.String("body", defaults.Body, "request body")
	connections := fs.Int("c", defaults.Connections, "number of concurrent connections")
	duration := fs.Duration("d", defaults.Duration, "run duration (0 to rely on -n)")
	requests := fs.Uint64("n", 0, "total request limit (0 for no limit)")
	timeout := fs.Duration("timeout", defaults.Timeout, "per-request timeout")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	logLevel := fs.String("log-level", "warn", "log level")
	fs.Var(headers, "H", "request header 'Name: value' (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	scenario := defaults
	if *configPath != "" {
		fileConfig, err := loadtest.LoadFile(*configPath)
		if err != nil {
			return err
		}
		if scenario, err = fileConfig.ToScenario(); err != nil {
			return err
		}
	}

	// Explicit flags take precedence over the scenario file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			scenario.URL = *url
		case "method":
			scenario.Method = strings.ToUpper(*method)
		case "body":
			scenario.Body = *body
		case "c":
			scenario.Connections = *connections
		case "d":
			scenario.Duration = *duration
		case "n":
			scenario.Requests = *requests
			if !isSet(fs, "d") && *configPath == "" {
				scenario.Duration = 0
			}
		case "timeout":
			scenario.Timeout = *timeout
		}
	})
	for k, v := range headers {
		scenario.Headers[k] = v
	}

	runner, err := loadtest.NewRunner(scenario, logger.New(stderr, *logLevel))
	if err != nil {
		return err
	}

	if scenario.Duration > 0 {
		fmt.Fprintf(stderr, "Running %s test @ %s\n", scenario.Duration, scenario.URL)
	} else {
		fmt.Fprintf(stderr, "Running %d requests @ %s\n", scenario.Requests, scenario.URL)
	}
	fmt.Fprintf(stderr, "%d connections\n\n", scenario.Connections)

	start := time.Now()
	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Fprintf(stderr, "stopped early after %s\n", time.Since(start).Round(time.Millisecond))
	}

	if *asJSON {
		return report.WriteJSON(stdout)
	}
	return report.WriteTable(stdout)
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
