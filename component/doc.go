// Package component defines lifecycle-managed infrastructure that runs
// alongside a pipeline run: telemetry exporters, the status endpoint.
//
// Components are registered with a Registry, started in registration
// order before the run and stopped in reverse order after it.
//
// # Interfaces
//
//   - Component: lifecycle (Start/Stop) and health reporting
//   - Describable: one-line startup description
package component
