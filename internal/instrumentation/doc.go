// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for propertyinbox.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, normalized path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Organizer Metrics:
//   - organizer_runs_total: Counter of runs by trigger and status
//   - organizer_run_duration_seconds: Histogram of run durations
//   - organizer_messages_total: Counter of messages by outcome (organized, skipped, failed)
//   - organizer_attachment_bytes_total: Bytes uploaded to Drive
//
// Report Metrics:
//   - report_stage_total: Counter of pipeline stages by stage and status (success, skipped, error)
//   - report_stage_duration_seconds: Histogram of stage durations
//   - llm_requests_total / llm_request_duration_seconds: Language model calls by provider
//
// External API Metrics:
//   - google_api_operations_total: Counter of Gmail, Drive, Docs and Geocoding calls
//   - google_api_operation_duration_seconds: Histogram of those calls
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for each run (organizer.run), each message
// (organizer.message), each report stage (report.<stage>), each external API
// call (<service>.<operation>) and each tool call (tool.<name>).
//
// # Configuration
//
// Config is built from the telemetry section of the service configuration
// (see internal/config):
//   - telemetry.metrics_exporter: prometheus, otlp, stdout (default: prometheus)
//   - telemetry.tracing_exporter: otlp, stdout, none (default: none)
//   - telemetry.otlp_endpoint, telemetry.otlp_insecure
//   - telemetry.sampling_rate: 0.0 to 1.0 (default: 0.1)
//   - telemetry.audit.enabled, telemetry.audit.include_failures
//
// The Prometheus exporter writes into a private registry served by
// Provider.PrometheusHandler.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordRun(ctx, "schedule", instrumentation.StatusSuccess, time.Since(start))
//
// A nil or zero *Metrics is a valid no-op recorder, so components accept
// metrics as an optional dependency.
package instrumentation
