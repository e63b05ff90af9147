// Package otel exposes goGate counters and latency histograms as OpenTelemetry
// observable instruments.
//
// [New] registers one Int64ObservableCounter per counter and, per histogram, a
// bucket gauge carrying an "le" attribute plus a count gauge. A single callback
// reads the engine snapshot on every collection. Callers own the
// MeterProvider.
package otel
