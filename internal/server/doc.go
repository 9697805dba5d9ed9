// Package server provides the HTTP trigger surface of the organizer.
//
// # Endpoints
//
// HTTPServer serves:
//   - POST /process runs the organizer once and answers with the RunSummary
//     (200), or 500 with {"status":"error","message":...} when candidate
//     messages could not be listed
//   - GET /health, /healthz liveness
//   - GET /readyz readiness, failing once shutdown has begun
//   - GET /healthz/detailed uptime and the last run
//
// MetricsServer serves /metrics for Prometheus on a separate port.
//
// ServerContext is shared by the HTTP server, the scheduler and the MCP
// tools. It owns the root context and remembers the last run summary.
package server
