package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("test error")

func newTestProvider(t *testing.T, detailed bool) (*Provider, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailed,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, ctx
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	provider, ctx := newTestProvider(t, false)

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "POST", "/process", 200, 3*time.Second)
	metrics.RecordHTTPRequest(ctx, "GET", "/unknown/path", 404, time.Millisecond)
}

func TestMetrics_RecordHTTPRequest_DetailedLabels(t *testing.T) {
	provider, ctx := newTestProvider(t, true)
	provider.Metrics().RecordHTTPRequest(ctx, "GET", "/unknown/path", 404, time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	provider, ctx := newTestProvider(t, false)
	metrics := provider.Metrics()

	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationUpload, StatusError, 500*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceGeocode, OperationSearch, StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordOrganizer(t *testing.T) {
	provider, ctx := newTestProvider(t, false)
	metrics := provider.Metrics()

	metrics.RecordRun(ctx, "http", StatusSuccess, 42*time.Second)
	metrics.RecordMessage(ctx, "organized")
	metrics.RecordMessage(ctx, "failed")
	metrics.RecordAttachmentBytes(ctx, 1024)
	metrics.RecordAttachmentBytes(ctx, 0)
}

func TestMetrics_RecordStageAndLLM(t *testing.T) {
	provider, ctx := newTestProvider(t, false)
	metrics := provider.Metrics()

	metrics.RecordStage(ctx, "geocode", StatusSkipped, 0)
	metrics.RecordStage(ctx, "market_research", StatusError, 12*time.Second)
	metrics.RecordLLMRequest(ctx, "openai", StatusSuccess, 4*time.Second)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
	metrics.RecordToolInvocation(ctx, "organize_property_mail", StatusSuccess, time.Second)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	metrics.RecordHTTPRequest(ctx, "GET", "/process", 200, time.Second)
	metrics.RecordRun(ctx, "cli", StatusSuccess, time.Second)
	metrics.RecordStage(ctx, "geocode", StatusSuccess, time.Second)
	metrics.RecordLLMRequest(ctx, "openai", StatusError, time.Second)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()

	// A nil recorder is allowed wherever metrics are optional.
	metrics.RecordRun(ctx, "cli", StatusSuccess, time.Second)
	metrics.RecordMessage(ctx, "organized")
	metrics.RecordGoogleAPIOperation(ctx, ServiceDocs, OperationCreate, StatusSuccess, time.Second)
}
