package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RequestIDHeader carries a unique ID on every generated request.
const RequestIDHeader = "X-Request-ID"

// Runner executes a Scenario.
type Runner struct {
	scenario Scenario
	client   *http.Client
	logger   *slog.Logger
}

// NewRunner creates a runner for a validated scenario. The HTTP client keeps
// one idle connection per load connection.
func NewRunner(s Scenario, logger *slog.Logger) (*Runner, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = s.Connections
	transport.MaxConnsPerHost = s.Connections

	return &Runner{
		scenario: s,
		client: &http.Client{
			Transport: transport,
			Timeout:   s.Timeout,
		},
		logger: logger.With("component", "loadtest"),
	}, nil
}

// Run drives the target until the duration elapses, the request budget is
// spent or ctx is cancelled. Cancellation ends the run early; the report
// still covers every request that completed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	s := r.scenario
	if s.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Duration)
		defer cancel()
	}

	recorder := NewRecorder()
	var budget atomic.Int64
	limited := s.Requests > 0
	if limited {
		budget.Store(int64(s.Requests))
	}

	r.logger.Info("load test started",
		"url", s.URL,
		"method", s.Method,
		"connections", s.Connections,
		"duration", s.Duration,
		"requests", s.Requests)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.Connections; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				if limited && budget.Add(-1) < 0 {
					return nil
				}
				if err := r.do(gctx, recorder); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	report := recorder.Report(s, elapsed)
	r.logger.Info("load test finished",
		"requests", report.Requests,
		"errors", report.Errors,
		"elapsed", elapsed,
		"throughput", report.Throughput)
	return report, nil
}

// do sends one request. It returns an error only when the request cannot be
// built; transport failures are recorded.
func (r *Runner) do(ctx context.Context, recorder *Recorder) error {
	s := r.scenario

	var body io.Reader
	if s.Body != "" {
		body = strings.NewReader(s.Body)
	}
	req, err := http.NewRequestWithContext(ctx, s.Method, s.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())

	sent := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		// Requests cut off by the end of the run are not failures
		if ctx.Err() != nil {
			return nil
		}
		recorder.RecordError(isTimeout(err))
		r.logger.Debug("request failed", "error", err)
		return nil
	}

	n, copyErr := io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil && ctx.Err() != nil {
		return nil
	}
	recorder.RecordResponse(resp.StatusCode, time.Since(sent), n)
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
