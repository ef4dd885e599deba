// Package server exposes a small status API over HTTP while a run is in
// progress.
//
// The server is a component: register it before the run starts and it is
// shut down with the rest of the registry.
//
// # Endpoints
//
//   - /healthz: component health aggregation
//   - /livez: liveness probe
//   - /readyz: readiness probe
//   - /progress: live pipeline counters
//   - /version: build information
package server
