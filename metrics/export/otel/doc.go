// Package otel publishes goSentinel metrics through OpenTelemetry
// observable instruments.
//
// [NewOTelExporter] registers float gauges for active sessions and store
// health, an Int64ObservableCounter per engine counter, and an
// Int64ObservableGauge per latency bucket. One callback reads the engine per
// collection cycle.
//
// Callers own the MeterProvider and supply the Meter.
package otel
