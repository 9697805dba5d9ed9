package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	// organizer.timezone must resolve in minimal container images
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/propertyinbox/internal/google"
	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/llm"
	"github.com/teemow/propertyinbox/internal/property"
)

// EnvPrefix prefixes every environment override, e.g.
// PROPERTYINBOX_DRIVE_PARENT_FOLDER_ID for drive.parent_folder_id.
const EnvPrefix = "PROPERTYINBOX"

// Config is the complete service configuration.
type Config struct {
	Google     GoogleConfig    `mapstructure:"google"`
	Drive      DriveConfig     `mapstructure:"drive"`
	Gmail      GmailConfig     `mapstructure:"gmail"`
	Organizer  OrganizerConfig `mapstructure:"organizer"`
	Report     ReportConfig    `mapstructure:"report"`
	LLM        ModelConfig     `mapstructure:"llm"`
	Perplexity ModelConfig     `mapstructure:"perplexity"`
	Geocode    GeocodeConfig   `mapstructure:"geocode"`
	Server     ServerConfig    `mapstructure:"server"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
	Telemetry  TelemetryConfig `mapstructure:"telemetry"`
	Log        LogConfig       `mapstructure:"log"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

type DriveConfig struct {
	ParentFolderID string `mapstructure:"parent_folder_id"`
}

type GmailConfig struct {
	ProcessedLabel string         `mapstructure:"processed_label"`
	Window         time.Duration  `mapstructure:"window"`
	Subjects       SubjectsConfig `mapstructure:"subjects"`
}

type SubjectsConfig struct {
	Floorplan string `mapstructure:"floorplan"`
	Map       string `mapstructure:"map"`
}

type OrganizerConfig struct {
	Placeholder string `mapstructure:"placeholder"`
	Timezone    string `mapstructure:"timezone"`
}

type ReportConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	SimulationEnabled bool `mapstructure:"simulation_enabled"`
}

// ModelConfig configures one OpenAI-compatible language model endpoint.
type ModelConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether an API key is configured.
func (m ModelConfig) Enabled() bool {
	return m.APIKey != ""
}

type GeocodeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SchedulerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Spec    string        `mapstructure:"spec"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TelemetryConfig selects the OpenTelemetry exporters. Only serve exports;
// one-shot commands always record into a no-op recorder.
type TelemetryConfig struct {
	Enabled         bool        `mapstructure:"enabled"`
	MetricsExporter string      `mapstructure:"metrics_exporter"`
	TracingExporter string      `mapstructure:"tracing_exporter"`
	OTLPEndpoint    string      `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool        `mapstructure:"otlp_insecure"`
	SamplingRate    float64     `mapstructure:"sampling_rate"`
	DetailedLabels  bool        `mapstructure:"detailed_labels"`
	Audit           AuditConfig `mapstructure:"audit"`
}

type AuditConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IncludeFailures bool `mapstructure:"include_failures"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaults lists every key with its default value. Keys must be registered
// for environment overrides to reach Unmarshal.
var defaults = map[string]any{
	"google.client_id":     "",
	"google.client_secret": "",
	"google.refresh_token": "",

	"drive.parent_folder_id": "",

	"gmail.processed_label":    "processed",
	"gmail.window":             "2h",
	"gmail.subjects.floorplan": property.KindFloorplan.SubjectFilter(),
	"gmail.subjects.map":       property.KindMap.SubjectFilter(),

	"organizer.placeholder": property.DefaultPlaceholder,
	"organizer.timezone":    "Asia/Tokyo",

	"report.enabled":            true,
	"report.simulation_enabled": true,

	"llm.api_key":  "",
	"llm.base_url": llm.DefaultBaseURL,
	"llm.model":    llm.DefaultModel,
	"llm.timeout":  "60s",

	"perplexity.api_key":  "",
	"perplexity.base_url": llm.PerplexityBaseURL,
	"perplexity.model":    llm.PerplexityModel,
	"perplexity.timeout":  "120s",

	"geocode.api_key":  "",
	"geocode.base_url": "",

	"server.addr":             ":8080",
	"server.read_timeout":     "30s",
	"server.write_timeout":    "15m",
	"server.shutdown_timeout": "30s",

	"scheduler.enabled": true,
	"scheduler.spec":    "0 0 * * * *",
	"scheduler.timeout": "10m",

	"metrics.enabled": true,
	"metrics.addr":    ":9090",

	"telemetry.enabled":                true,
	"telemetry.metrics_exporter":       instrumentation.ExporterPrometheus,
	"telemetry.tracing_exporter":       instrumentation.ExporterNone,
	"telemetry.otlp_endpoint":          "",
	"telemetry.otlp_insecure":          false,
	"telemetry.sampling_rate":          0.1,
	"telemetry.detailed_labels":        false,
	"telemetry.audit.enabled":          true,
	"telemetry.audit.include_failures": false,

	"log.level":  "info",
	"log.format": "text",
}

// Load reads configuration from, in increasing precedence: defaults, a YAML
// file, a .env file and the environment. path names the YAML file; when empty
// config.yaml is searched in the working directory and
// $HOME/.config/propertyinbox and may be absent.
func Load(path string) (*Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "propertyinbox"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Drive.ParentFolderID == "" {
		errs = append(errs, errors.New("drive.parent_folder_id is required"))
	}
	if c.Gmail.ProcessedLabel == "" {
		errs = append(errs, errors.New("gmail.processed_label is required"))
	}
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("google.client_id and google.client_secret are required"))
	}
	if c.Gmail.Window <= 0 {
		errs = append(errs, fmt.Errorf("gmail.window must be positive, got %s", c.Gmail.Window))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	telemetry := c.Instrumentation("", nil)
	if err := telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid telemetry configuration: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves organizer.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Organizer.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid organizer.timezone %q: %w", c.Organizer.Timezone, err)
	}
	return loc, nil
}

// Credentials returns the Google OAuth credentials.
func (c *Config) Credentials() google.Credentials {
	return google.Credentials{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RefreshToken: c.Google.RefreshToken,
	}
}

// Instrumentation returns the OpenTelemetry configuration for version.
func (c *Config) Instrumentation(version string, logger *slog.Logger) instrumentation.Config {
	ic := instrumentation.DefaultConfig()
	if version != "" {
		ic.ServiceVersion = version
	}
	ic.Enabled = c.Telemetry.Enabled
	ic.MetricsExporter = c.Telemetry.MetricsExporter
	ic.TracingExporter = c.Telemetry.TracingExporter
	ic.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	ic.OTLPInsecure = c.Telemetry.OTLPInsecure
	ic.TraceSamplingRate = c.Telemetry.SamplingRate
	ic.DetailedLabels = c.Telemetry.DetailedLabels
	ic.AuditLogging = instrumentation.AuditLoggingConfig{
		Enabled:         c.Telemetry.Audit.Enabled,
		IncludeFailures: c.Telemetry.Audit.IncludeFailures,
	}
	ic.Logger = logger
	return ic
}

// Subjects returns the subject filter per mail kind.
func (c *Config) Subjects() map[property.MailKind]string {
	return map[property.MailKind]string{
		property.KindFloorplan: c.Gmail.Subjects.Floorplan,
		property.KindMap:       c.Gmail.Subjects.Map,
	}
}

// LLMConfig returns the client configuration of the main language model.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Name:    "gemini",
		APIKey:  c.LLM.APIKey,
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
		Timeout: c.LLM.Timeout,
	}
}

// PerplexityConfig returns the client configuration of the area research
// model.
func (c *Config) PerplexityConfig() llm.Config {
	return llm.Config{
		Name:    "perplexity",
		APIKey:  c.Perplexity.APIKey,
		BaseURL: c.Perplexity.BaseURL,
		Model:   c.Perplexity.Model,
		Timeout: c.Perplexity.Timeout,
	}
}
