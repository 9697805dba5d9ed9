package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(metricsExporter, tracingExporter string) Config {
	return Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   metricsExporter,
		TracingExporter:   tracingExporter,
		TraceSamplingRate: 1,
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		wantErr        string
		wantEnabled    bool
		wantPrometheus bool
	}{
		{
			name:   "disabled",
			config: Config{ServiceName: "test-service", Enabled: false},
		},
		{
			name:           "prometheus without tracing",
			config:         testConfig(ExporterPrometheus, ExporterNone),
			wantEnabled:    true,
			wantPrometheus: true,
		},
		{
			name:        "stdout metrics and traces",
			config:      testConfig(ExporterStdout, ExporterStdout),
			wantEnabled: true,
		},
		{
			name:    "unknown metrics exporter",
			config:  testConfig("invalid", ExporterNone),
			wantErr: "unsupported metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			config:  testConfig(ExporterPrometheus, "invalid"),
			wantErr: "unsupported tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  testConfig(ExporterPrometheus, ExporterOTLP),
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "otlp metrics without endpoint",
			config:  testConfig(ExporterOTLP, ExporterNone),
			wantErr: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(ctx) }()

			assert.Equal(t, tt.wantEnabled, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("test"))
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusHandler() != nil)
		})
	}
}

func TestProvider_PrometheusHandlerServesRecordedMetrics(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Metrics().RecordRun(ctx, "http", StatusSuccess, 2*time.Second)

	srv := httptest.NewServer(provider.PrometheusHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "organizer_runs")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestProvider_SeparateRegistries(t *testing.T) {
	ctx := context.Background()

	first, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	defer func() { _ = first.Shutdown(ctx) }()

	second, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	defer func() { _ = second.Shutdown(ctx) }()

	assert.NotSame(t, first.registry, second.registry)
}

func TestProvider_ShutdownDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NoError(t, provider.Shutdown(context.Background()))
}
