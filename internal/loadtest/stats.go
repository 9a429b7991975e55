package loadtest

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Recorder collects per-request outcomes from concurrent connections.
type Recorder struct {
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]uint64
	errors      uint64
	timeouts    uint64
	bytesRead   int64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		latencies:   make([]time.Duration, 0, 1024),
		statusCodes: make(map[int]uint64),
	}
}

// RecordResponse records a completed request.
func (r *Recorder) RecordResponse(status int, latency time.Duration, bytesRead int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latencies = append(r.latencies, latency)
	r.statusCodes[status]++
	r.bytesRead += bytesRead
}

// RecordError records a request that produced no response.
func (r *Recorder) RecordError(timeout bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	if timeout {
		r.timeouts++
	}
}

// LatencySummary describes the latency distribution of completed requests.
type LatencySummary struct {
	Min time.Duration `json:"min"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
}

// Percentile returns the nearest-rank percentile of sorted latencies.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func summarize(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, l := range sorted {
		total += l
	}

	return LatencySummary{
		Min: sorted[0],
		Avg: total / time.Duration(len(sorted)),
		P50: Percentile(sorted, 50),
		P90: Percentile(sorted, 90),
		P99: Percentile(sorted, 99),
		Max: sorted[len(sorted)-1],
	}
}

// Report builds the run summary from everything recorded so far.
func (r *Recorder) Report(s Scenario, elapsed time.Duration) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &Report{
		Name:        s.Name,
		URL:         s.URL,
		Method:      s.Method,
		Connections: s.Connections,
		Elapsed:     elapsed,
		StatusCodes: make(map[int]uint64, len(r.statusCodes)),
		Errors:      r.errors,
		Timeouts:    r.timeouts,
		BytesRead:   r.bytesRead,
		Latency:     summarize(r.latencies),
	}

	for code, n := range r.statusCodes {
		report.StatusCodes[code] = n
		report.Responses += n
		if code >= 200 && code < 300 {
			report.Status2xx += n
		} else {
			report.Non2xx += n
		}
	}
	report.Requests = report.Responses + r.errors

	if elapsed > 0 {
		report.Throughput = float64(report.Responses) / elapsed.Seconds()
	}
	return report
}
