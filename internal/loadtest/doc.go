// Package loadtest drives an HTTP endpoint with a fixed number of concurrent
// connections and summarizes throughput and latency. It is used to show how
// the hashing endpoint behaves when bcrypt work is offloaded to the pool.
package loadtest
