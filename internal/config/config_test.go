package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/llm"
	"github.com/teemow/propertyinbox/internal/property"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "processed", cfg.Gmail.ProcessedLabel)
	assert.Equal(t, 2*time.Hour, cfg.Gmail.Window)
	assert.Equal(t, "販売図面", cfg.Gmail.Subjects.Floorplan)
	assert.Equal(t, "住宅地図・路線価図", cfg.Gmail.Subjects.Map)
	assert.Equal(t, property.DefaultPlaceholder, cfg.Organizer.Placeholder)
	assert.Equal(t, "Asia/Tokyo", cfg.Organizer.Timezone)
	assert.True(t, cfg.Report.Enabled)
	assert.Equal(t, llm.DefaultModel, cfg.LLM.Model)
	assert.Equal(t, llm.PerplexityBaseURL, cfg.Perplexity.BaseURL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "0 0 * * * *", cfg.Scheduler.Spec)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.Timeout)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.False(t, cfg.Perplexity.Enabled())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, instrumentation.ExporterPrometheus, cfg.Telemetry.MetricsExporter)
	assert.Equal(t, instrumentation.ExporterNone, cfg.Telemetry.TracingExporter)
	assert.InDelta(t, 0.1, cfg.Telemetry.SamplingRate, 1e-9)
	assert.True(t, cfg.Telemetry.Audit.Enabled)
	assert.False(t, cfg.Telemetry.Audit.IncludeFailures)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
drive:
  parent_folder_id: from-file
gmail:
  processed_label: 整理済み
  window: 24h
organizer:
  placeholder: 不明
scheduler:
  spec: "0 30 * * * *"
`)
	t.Setenv("PROPERTYINBOX_DRIVE_PARENT_FOLDER_ID", "from-env")
	t.Setenv("PROPERTYINBOX_REPORT_ENABLED", "false")
	t.Setenv("PROPERTYINBOX_LLM_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Drive.ParentFolderID)
	assert.Equal(t, "整理済み", cfg.Gmail.ProcessedLabel)
	assert.Equal(t, 24*time.Hour, cfg.Gmail.Window)
	assert.Equal(t, "不明", cfg.Organizer.Placeholder)
	assert.Equal(t, "0 30 * * * *", cfg.Scheduler.Spec)
	assert.False(t, cfg.Report.Enabled)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "secret", cfg.LLMConfig().APIKey)
	assert.Equal(t, "gemini", cfg.LLMConfig().Name)
	assert.Equal(t, "perplexity", cfg.PerplexityConfig().Name)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Google:    GoogleConfig{ClientID: "id", ClientSecret: "secret"},
			Drive:     DriveConfig{ParentFolderID: "parent"},
			Gmail:     GmailConfig{ProcessedLabel: "processed", Window: time.Hour},
			Organizer: OrganizerConfig{Timezone: "Asia/Tokyo"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing parent folder",
			mutate:  func(c *Config) { c.Drive.ParentFolderID = "" },
			wantErr: "drive.parent_folder_id is required",
		},
		{
			name:    "missing label",
			mutate:  func(c *Config) { c.Gmail.ProcessedLabel = "" },
			wantErr: "gmail.processed_label is required",
		},
		{
			name:    "missing client credentials",
			mutate:  func(c *Config) { c.Google.ClientSecret = "" },
			wantErr: "google.client_id and google.client_secret are required",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Organizer.Timezone = "Mars/Olympus" },
			wantErr: "invalid organizer.timezone",
		},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.TracingExporter = instrumentation.ExporterOTLP
			},
			wantErr: "invalid telemetry configuration",
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.Gmail.Window = 0 },
			wantErr: "gmail.window must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := (&Config{Organizer: OrganizerConfig{Timezone: "UTC"}, Gmail: GmailConfig{Window: time.Hour}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drive.parent_folder_id")
	assert.Contains(t, err.Error(), "gmail.processed_label")
	assert.Contains(t, err.Error(), "google.client_id")
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{Organizer: OrganizerConfig{Timezone: "Asia/Tokyo"}}
	loc, err := cfg.Location()
	require.NoError(t, err)

	_, offset := time.Date(2024, 6, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestConfig_Subjects(t *testing.T) {
	cfg := &Config{Gmail: GmailConfig{Subjects: SubjectsConfig{Floorplan: "図面", Map: "地図"}}}
	assert.Equal(t, map[property.MailKind]string{
		property.KindFloorplan: "図面",
		property.KindMap:       "地図",
	}, cfg.Subjects())
}

func TestConfig_Instrumentation(t *testing.T) {
	cfg := &Config{Telemetry: TelemetryConfig{
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterOTLP,
		TracingExporter: instrumentation.ExporterOTLP,
		OTLPEndpoint:    "collector:4318",
		SamplingRate:    0.5,
		Audit:           AuditConfig{Enabled: true, IncludeFailures: true},
	}}

	ic := cfg.Instrumentation("1.2.3", nil)
	assert.Equal(t, instrumentation.DefaultServiceName, ic.ServiceName)
	assert.Equal(t, "1.2.3", ic.ServiceVersion)
	assert.True(t, ic.Enabled)
	assert.Equal(t, "collector:4318", ic.OTLPEndpoint)
	assert.InDelta(t, 0.5, ic.TraceSamplingRate, 1e-9)
	assert.True(t, ic.AuditLogging.IncludeFailures)
	assert.NoError(t, ic.Validate())

	assert.Equal(t, "unknown", cfg.Instrumentation("", nil).ServiceVersion)
}
