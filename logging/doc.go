// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) the engine, loops and dispatcher use. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - AppForgeLogger with component/session scoping and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng, err := engine.New(model, func(o *engine.Options) { o.Logger = logger })
//
// Event keys are dotted lower case identifiers (loop.iteration.start,
// action.dispatch.failed) with key/value attributes.
package logging
