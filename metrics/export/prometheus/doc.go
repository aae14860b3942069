// Package prometheus renders engine counters and the code-service latency
// histogram in Prometheus text exposition format.
//
// [NewPrometheusExporter] returns an exporter whose [PrometheusExporter.Handler]
// can be mounted on any mux. Counters are named authflow_*_total; the
// histogram is authflow_channel_latency_seconds. Nothing is registered
// globally.
package prometheus
