// Package prometheus renders goGate metrics as Prometheus text.
//
// Counters are named gogate_*_total. The evaluate and request latency
// histograms are gogate_evaluate_latency_seconds and
// gogate_request_latency_seconds, present only when latency histograms are
// enabled. Nothing is registered globally; callers mount [Exporter.Handler].
package prometheus
