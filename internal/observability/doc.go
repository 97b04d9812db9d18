// Package observability provides logging, metrics, and tracing for the
// certificate gateway.
//
// Logging is built on zap behind the Logger interface so components can be
// handed a NopLogger in tests. Request and trace identifiers travel in the
// request context and are attached to log lines by Logger.WithContext.
//
// Metrics live in a dedicated Prometheus registry owned by Metrics. Other
// packages register their own collectors against Metrics.Registry() so that a
// single /metrics endpoint exposes everything.
package observability
