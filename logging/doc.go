// Package logging provides a minimal logging interface and adapters for
// decalflow.
//
// The Logger interface defines the key/value logging methods the invoker,
// tool dispatcher, stores and HTTP server use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.New(&logging.Config{Level: logging.LogLevelInfo, Format: "json", Component: "server"})
//	invoker := flow.NewInvoker(registry, backend, func(o *flow.InvokerOptions) { o.Logger = logger })
//
// Event names are dotted identifiers ("flow.invoke.start") followed by
// key/value pairs.
package logging
