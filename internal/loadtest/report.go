package loadtest

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"
)

// Report summarizes a load test run.
type Report struct {
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Method      string         `json:"method"`
	Connections int            `json:"connections"`
	Elapsed     time.Duration  `json:"elapsed"`
	Requests    uint64         `json:"requests"`
	Responses   uint64         `json:"responses"`
	Status2xx   uint64         `json:"status_2xx"`
	Non2xx      uint64         `json:"non_2xx"`
	Errors      uint64         `json:"errors"`
	Timeouts    uint64         `json:"timeouts"`
	StatusCodes map[int]uint64 `json:"status_codes"`
	BytesRead   int64          `json:"bytes_read"`
	Throughput  float64        `json:"throughput"`
	Latency     LatencySummary `json:"latency"`
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteTable writes a human-readable summary.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Running %s %s with %d connections for %s\n\n",
		r.Method, r.URL, r.Connections, r.Elapsed.Round(time.Millisecond))

	fmt.Fprintln(tw, "Stat\tMin\tAvg\tP50\tP90\tP99\tMax")
	fmt.Fprintf(tw, "Latency\t%s\t%s\t%s\t%s\t%s\t%s\n",
		fmtLatency(r.Latency.Min),
		fmtLatency(r.Latency.Avg),
		fmtLatency(r.Latency.P50),
		fmtLatency(r.Latency.P90),
		fmtLatency(r.Latency.P99),
		fmtLatency(r.Latency.Max))
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Requests\t%d\n", r.Requests)
	fmt.Fprintf(tw, "2xx\t%d\n", r.Status2xx)
	fmt.Fprintf(tw, "Non-2xx\t%d\n", r.Non2xx)
	fmt.Fprintf(tw, "Errors\t%d (%d timeouts)\n", r.Errors, r.Timeouts)
	fmt.Fprintf(tw, "Throughput\t%.1f req/s\n", r.Throughput)
	fmt.Fprintf(tw, "Bytes read\t%d\n", r.BytesRead)

	if len(r.StatusCodes) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Status\tCount")
		codes := make([]int, 0, len(r.StatusCodes))
		for code := range r.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(tw, "%d\t%d\n", code, r.StatusCodes[code])
		}
	}

	return tw.Flush()
}

func fmtLatency(d time.Duration) string {
	return d.Round(10 * time.Microsecond).String()
}
