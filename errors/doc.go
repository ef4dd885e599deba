// Package errors provides the structured error type used across the
// pipeline. Every failure carries a machine-readable code that decides how
// far it propagates: per-record codes (lookup, parse) never stop a stage,
// SOURCE_READ_ERROR stops only the extractor, and SINK_WRITE_ERROR fails
// the whole run.
package errors
