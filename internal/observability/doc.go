// Package observability provides structured logging and metrics for the
// research MCP bridge.
//
// This package implements:
//   - zap logger construction from LOG_LEVEL / LOG_FORMAT, always on stderr
//   - Prometheus collectors for tool calls, routing decisions and upstream requests
//
// Stdout is reserved for MCP frames, so nothing in this package writes to it.
package observability
