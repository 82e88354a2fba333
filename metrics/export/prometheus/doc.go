// Package prometheus exposes engine metrics as a Prometheus collector.
//
// Register a [Collector] with any registry, or mount [Collector.Handler]
// which uses a private one. Counters are named goentitle_*_total and the
// single histogram is goentitle_authenticate_latency_seconds.
//
// The collector never mutates engine state.
package prometheus
