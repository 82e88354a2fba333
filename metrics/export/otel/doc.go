// Package otel publishes engine metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and,
// for the latency histogram, a cumulative bucket gauge keyed by an "le"
// attribute plus a count gauge. One callback reads
// [goEntitle.Engine.MetricsSnapshot] per collection cycle.
//
// Callers own the MeterProvider. The exporter never mutates engine state.
package otel
