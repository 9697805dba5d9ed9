package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/option"

	"github.com/teemow/propertyinbox/internal/address"
	"github.com/teemow/propertyinbox/internal/config"
	"github.com/teemow/propertyinbox/internal/docs"
	"github.com/teemow/propertyinbox/internal/drive"
	"github.com/teemow/propertyinbox/internal/extract"
	"github.com/teemow/propertyinbox/internal/geocode"
	"github.com/teemow/propertyinbox/internal/gmail"
	"github.com/teemow/propertyinbox/internal/google"
	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/listing"
	"github.com/teemow/propertyinbox/internal/llm"
	"github.com/teemow/propertyinbox/internal/logging"
	"github.com/teemow/propertyinbox/internal/organizer"
	"github.com/teemow/propertyinbox/internal/report"
	"github.com/teemow/propertyinbox/internal/research"
)

// app is the wired organizer plus the telemetry it reports to.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	location  *time.Location
	provider  *instrumentation.Provider
	audit     *instrumentation.AuditLogger
	organizer *organizer.Organizer
}

// loadConfig loads and validates the configuration and builds the logger.
// Logs go to stderr so stdout stays free for summaries and MCP stdio.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log configuration: %w", err)
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

// newApp wires the Google clients, the report pipeline and the organizer.
// With telemetry false the instrumentation provider is disabled and metrics
// are recorded into a no-op recorder.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, telemetry bool) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	instrConfig := cfg.Instrumentation(version, logger)
	instrConfig.Enabled = instrConfig.Enabled && telemetry
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()

	a := &app{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		provider: provider,
		audit:    instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging),
	}

	tp, err := google.NewRefreshTokenProvider(cfg.Credentials(), metrics)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	ts, err := tp.WithLogger(logger).TokenSource(ctx)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	clientOpt := option.WithHTTPClient(google.HTTPClient(ctx, ts))

	gmailClient, err := gmail.NewClient(ctx, clientOpt)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	driveClient, err := drive.NewClient(ctx, clientOpt)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	source := gmail.NewSource(gmailClient.WithMetrics(metrics), cfg.Gmail.ProcessedLabel, cfg.Subjects())
	store := drive.NewStore(driveClient.WithMetrics(metrics), cfg.Drive.ParentFolderID)

	deps := organizer.Deps{
		Source:  source,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		Audit:   a.audit,
	}
	if cfg.Report.Enabled {
		docsClient, err := docs.NewClient(ctx, clientOpt)
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create Docs client: %w", err)
		}
		pipeline, err := newPipeline(cfg, logger, metrics, loc, docsClient.WithMetrics(metrics), store)
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, err
		}
		deps.Reports = pipeline
	}

	a.organizer = organizer.New(deps, organizer.Config{
		Window:      cfg.Gmail.Window,
		Location:    loc,
		Placeholder: cfg.Organizer.Placeholder,
		Reports:     cfg.Report.Enabled,
	})
	return a, nil
}

// newPipeline builds the report pipeline. Stages whose provider has no API
// key configured are left out and reported as skipped.
func newPipeline(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics, loc *time.Location,
	documents report.DocumentWriter, uploader report.Uploader) (*report.Pipeline, error) {
	var (
		vision     extract.ImageReader
		market     research.Completer
		area       research.Completer
		strategies = []address.Strategy{address.NewRegexStrategy()}
	)
	deps := report.Deps{
		Documents: documents,
		Uploader:  uploader,
	}

	if cfg.LLM.Enabled() {
		client, err := llm.NewClient(cfg.LLMConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create language model client: %w", err)
		}
		client = client.WithMetrics(metrics)
		vision = client
		market = client
		strategies = append(strategies, address.NewLLMStrategy(client))
		deps.Details = listing.NewExtractor(client)
	} else {
		logger.Warn("llm.api_key not set; image text, LLM address lookup, property data and market research are disabled")
	}

	if cfg.Perplexity.Enabled() {
		client, err := llm.NewClient(cfg.PerplexityConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create area research client: %w", err)
		}
		area = client.WithMetrics(metrics)
	}
	if market != nil || area != nil {
		deps.Research = research.NewResearcher(market, area)
	}

	if cfg.Geocode.APIKey != "" {
		client, err := geocode.NewClient(geocode.Config{APIKey: cfg.Geocode.APIKey, BaseURL: cfg.Geocode.BaseURL}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create geocoding client: %w", err)
		}
		deps.Geocoder = client.WithMetrics(metrics)
	}

	deps.Text = extract.NewExtractor(vision)
	deps.Address = address.NewResolver(logger, strategies...)

	return report.NewPipeline(deps, report.Options{
		Simulation: cfg.Report.SimulationEnabled,
		Location:   loc,
		Logger:     logger,
		Metrics:    metrics,
	}), nil
}

// Run implements server.Runner.
func (a *app) Run(ctx context.Context, trigger organizer.Trigger) (*organizer.RunSummary, error) {
	return a.organizer.Run(ctx, trigger)
}

// close flushes telemetry.
func (a *app) close(ctx context.Context) {
	if err := a.provider.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}
