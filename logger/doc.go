// Package logger provides structured logging for pmidfetch using zerolog.
//
// Every pipeline stage logs through a component-scoped logger so that lines
// from the extractor, dispatcher, parser and accumulator can be told apart
// in a single stream.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("dispatcher")
//	log.Info("lookup failed", logger.Fields("title", title, "error", err.Error()))
package logger
