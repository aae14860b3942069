// Package metrics holds the engine's in-process counters and the latency
// histogram for calls to the verification service. Exporters read it through
// snapshots.
package metrics
