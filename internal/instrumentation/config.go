package instrumentation

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation. It is
// filled from the telemetry section of the service configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID identifies the process; the hostname when empty.
	ServiceInstanceID string

	// Enabled turns metrics and tracing on. A disabled provider records into
	// a no-op recorder.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is the collector address without scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Spans carry folder
	// names and message ids, so keep this to local collectors.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based trace id ratio, 0.0 to 1.0.
	TraceSamplingRate float64

	// DetailedLabels records raw request paths instead of normalized routes.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig

	// Logger receives exporter warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if run and tool audit records are written.
	Enabled bool

	// IncludeFailures adds the per-message failure list to each run record.
	// Failure texts can contain mail subjects, so this is off by default.
	IncludeFailures bool
}

// DefaultConfig returns the defaults: Prometheus metrics, no tracing and
// audit records without failure texts.
func DefaultConfig() Config {
	return Config{
		ServiceName:       DefaultServiceName,
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging: AuditLoggingConfig{
			Enabled: true,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate))
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}
	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		errs = append(errs, errors.New("OTLP endpoint is required when using an OTLP exporter"))
	}
	return errors.Join(errs...)
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Constants for metric label values.
const (
	DefaultServiceName = "propertyinbox"

	// Status values
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// OAuth result values
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	// Google service names
	ServiceGmail = "gmail"
	ServiceDrive = "drive"
	ServiceDocs  = "docs"

	// External service names
	ServiceGeocode = "geocode"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// Metric recording intervals
	DefaultMetricInterval = 10 * time.Second
)
