package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// RunRecord captures the audit-relevant facts of one organizer run.
type RunRecord struct {
	RunID    string
	Trigger  string
	Window   time.Duration
	Duration time.Duration

	Matched          int
	Organized        int
	SkippedDuplicate int
	ReportGenerated  int
	Failed           int

	// Failures maps message IDs to their failure text.
	Failures map[string]string

	// Error is set when the run itself failed (candidate enumeration).
	Error string

	TraceID string
}

// Status returns "success" or "error" depending on whether the run itself failed.
func (r *RunRecord) Status() string {
	if r.Error != "" {
		return StatusError
	}
	return StatusSuccess
}

// LogAttrs returns slog attributes for the run record. Failure texts are only
// included when includeFailures is set.
func (r *RunRecord) LogAttrs(includeFailures bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.String("trigger", r.Trigger),
		slog.Duration("window", r.Window),
		slog.Duration("duration", r.Duration),
		slog.Int("matched", r.Matched),
		slog.Int("organized", r.Organized),
		slog.Int("skipped_duplicate", r.SkippedDuplicate),
		slog.Int("report_generated", r.ReportGenerated),
		slog.Int("failed", r.Failed),
	}

	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}
	if includeFailures && len(r.Failures) > 0 {
		failures := make([]any, 0, len(r.Failures))
		for id, msg := range r.Failures {
			failures = append(failures, slog.String(id, msg))
		}
		attrs = append(attrs, slog.Group("failures", failures...))
	}

	return attrs
}

// ToolInvocation captures an MCP tool call for audit logging.
type ToolInvocation struct {
	Tool string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// LogAttrs returns slog attributes for structured logging.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per organizer run and per tool call.
type AuditLogger struct {
	logger          *slog.Logger
	includeFailures bool
	enabled         bool
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:          logger,
		includeFailures: config.IncludeFailures,
		enabled:         config.Enabled,
	}
}

// LogRun writes the audit record of a finished run. Runs that failed to
// enumerate candidates are logged at warn level.
func (al *AuditLogger) LogRun(r *RunRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	args := attrsToArgs(r.LogAttrs(al.includeFailures))
	if r.Error != "" {
		al.logger.Warn("run_failed", args...)
		return
	}
	al.logger.Info("run_completed", args...)
}

// LogToolInvocation logs a finished tool invocation.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	args := attrsToArgs(ti.LogAttrs())
	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
