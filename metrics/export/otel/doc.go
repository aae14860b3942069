// Package otel binds engine metrics to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and, per latency histogram, one gauge per cumulative bucket plus count and
// sum gauges. A single callback reads the engine snapshot on each collection.
// Callers own the MeterProvider.
package otel
