// Package metrics exposes worker pool activity as Prometheus metrics. A
// PoolMetrics value is registered as an events.EventHandler so every pool
// lifecycle event updates the counters, gauges and histograms it owns.
package metrics
