// Package observability wires OpenTelemetry metrics and tracing into the
// pipeline.
//
// PipelineMetrics implements fetch.Observer and turns stage events into
// counters, histograms and gauges. TracedLookup wraps a fetch.Lookup so
// every remote call becomes a client span. Telemetry is a component that
// installs the OTLP/HTTP exporters for the duration of a run.
//
//	metrics, err := observability.NewPipelineMetrics(observability.Meter("pmidfetch"))
//	lookup := observability.TraceLookup(esearch, observability.Tracer("pmidfetch"))
//	sup, err := fetch.NewSupervisor(cfg, source, lookup, selector, sink,
//	    fetch.WithObserver(metrics))
package observability
