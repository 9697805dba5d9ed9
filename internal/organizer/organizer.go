package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/logging"
	"github.com/teemow/propertyinbox/internal/property"
	"github.com/teemow/propertyinbox/internal/report"
)

// ErrEnumerate wraps a failure to list candidate messages, the only failure
// that fails a whole run.
var ErrEnumerate = errors.New("failed to enumerate candidate messages")

// DefaultWindow is the look-back window of a run.
const DefaultWindow = 2 * time.Hour

// DefaultLocation is the zone folder dates are computed in.
var DefaultLocation = time.FixedZone("JST", 9*60*60)

// Message outcomes recorded in metrics.
const (
	outcomeOrganized        = "organized"
	outcomeFailed           = "failed"
	outcomeAlreadyProcessed = "already_processed"
)

// MailSource supplies candidate messages and records which were processed.
type MailSource interface {
	ListCandidates(ctx context.Context, window time.Duration) ([]property.MessageRef, error)
	Fetch(ctx context.Context, ref property.MessageRef) (*property.Message, error)
	Download(ctx context.Context, att property.Attachment) ([]byte, error)
	MarkProcessed(ctx context.Context, messageID string) error
	ProcessedLabel() string
}

// ReportRunner generates a report for a floorplan attachment. It must not
// panic and reports its outcome as data.
type ReportRunner interface {
	Run(ctx context.Context, req report.Request) report.Result
}

// Config tunes an Organizer.
type Config struct {
	// Window is how far back candidates are searched (default DefaultWindow)
	Window time.Duration

	// Location is the zone of folder dates (default DefaultLocation)
	Location *time.Location

	// Placeholder replaces missing station names and property numbers
	Placeholder string

	// Reports enables the report pipeline for new floorplans
	Reports bool

	// Now overrides the clock
	Now func() time.Time
}

// Deps are the collaborators of an Organizer. Reports may be nil.
type Deps struct {
	Source  MailSource
	Store   FolderStore
	Reports ReportRunner

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Organizer files listing mail attachments into property folders.
type Organizer struct {
	source    MailSource
	reports   ReportRunner
	extractor *property.Extractor
	folders   *FolderResolver
	persister *Persister
	cfg       Config

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// New creates an Organizer.
func New(deps Deps, cfg Config) *Organizer {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Location == nil {
		cfg.Location = DefaultLocation
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	extractor := property.NewExtractor(cfg.Placeholder)
	cfg.Placeholder = extractor.Placeholder()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Organizer{
		source:    deps.Source,
		reports:   deps.Reports,
		extractor: extractor,
		folders:   NewFolderResolver(deps.Store, cfg.Placeholder),
		persister: NewPersister(deps.Store),
		cfg:       cfg,
		logger:    logger,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
	}
}

// Window returns the configured look-back window.
func (o *Organizer) Window() time.Duration {
	return o.cfg.Window
}

// FolderName returns the folder name a message would be filed under if it
// were processed now.
func (o *Organizer) FolderName(msg *property.Message) string {
	return o.extractor.Extract(msg, o.cfg.Now().In(o.cfg.Location)).FolderName()
}

// Run processes every candidate message in sequence. Failures of single
// messages are recorded in the summary; only a failure to enumerate
// candidates is returned as an error, wrapping ErrEnumerate, together with a
// summary carrying the error.
func (o *Organizer) Run(ctx context.Context, trigger Trigger) (*RunSummary, error) {
	runID := uuid.NewString()
	summary := &RunSummary{
		RunID:     runID,
		Trigger:   trigger,
		Status:    StatusOK,
		StartedAt: o.cfg.Now(),
		Window:    o.cfg.Window.String(),
		Failures:  []Failure{},
	}

	ctx, span := instrumentation.StartRunSpan(ctx, runID, string(trigger))
	logger := logging.WithRun(o.logger, runID, string(trigger))

	var runErr error
	defer func() {
		summary.FinishedAt = o.cfg.Now()
		o.finish(ctx, summary)
		instrumentation.EndSpan(span, runErr)
	}()

	refs, err := o.source.ListCandidates(ctx, o.cfg.Window)
	if err != nil {
		runErr = fmt.Errorf("%w: %w", ErrEnumerate, err)
		summary.Status = StatusError
		summary.Error = runErr.Error()
		logger.Error("run failed", logging.Err(runErr))
		return summary, runErr
	}
	summary.Matched = len(refs)
	logger.Info("run started", slog.Int("candidates", len(refs)))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			summary.fail(ref.ID, err)
			o.metrics.RecordMessage(ctx, outcomeFailed)
			continue
		}
		o.processMessage(ctx, ref, summary, logger)
	}

	logger.Info("run finished",
		slog.Int("matched", summary.Matched),
		slog.Int("organized", summary.Organized),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

func (o *Organizer) processMessage(ctx context.Context, ref property.MessageRef, s *RunSummary, logger *slog.Logger) {
	ctx, span := instrumentation.StartMessageSpan(ctx, ref.ID)
	logger = logger.With(logging.MessageID(ref.ID))

	skipped, err := o.handle(ctx, ref, s, logger)
	instrumentation.EndSpan(span, err)

	switch {
	case err != nil:
		s.fail(ref.ID, err)
		o.metrics.RecordMessage(ctx, outcomeFailed)
		logger.Warn("message failed", logging.Err(err))
	case skipped:
		s.AlreadyProcessed++
		o.metrics.RecordMessage(ctx, outcomeAlreadyProcessed)
		logger.Debug("message already processed")
	default:
		s.Organized++
		o.metrics.RecordMessage(ctx, outcomeOrganized)
	}
}

// savedFloorplan is a floorplan attachment uploaded during this run.
type savedFloorplan struct {
	att  property.Attachment
	data []byte
}

// handle organizes one message. skipped is set for a message that already
// carries the processed label. A panic is converted into an error.
func (o *Organizer) handle(ctx context.Context, ref property.MessageRef, s *RunSummary, logger *slog.Logger) (skipped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing message: %v", r)
		}
	}()

	msg, err := o.source.Fetch(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to fetch message: %w", err)
	}
	if msg.HasLabel(o.source.ProcessedLabel()) {
		return true, nil
	}

	key := o.extractor.Extract(msg, o.cfg.Now().In(o.cfg.Location))
	folder, created, err := o.folders.Resolve(ctx, key)
	if err != nil {
		return false, err
	}
	s.Folders = append(s.Folders, FolderEntry{
		MessageID: msg.ID,
		Name:      folder.Name,
		ID:        folder.ID,
		URL:       folder.URL,
		Created:   created,
	})
	logger = logger.With(logging.Folder(folder.Name))

	inv, err := o.persister.Inventory(ctx, folder.ID)
	if err != nil {
		return false, err
	}

	var floorplans []savedFloorplan
	for _, att := range msg.Attachments {
		data, err := o.source.Download(ctx, att)
		if err == nil && len(data) == 0 {
			err = errors.New("empty attachment")
		}
		if err != nil {
			s.MalformedAttachments++
			logger.Warn("skipping unreadable attachment",
				slog.String("attachment", att.Filename),
				logging.Err(err))
			continue
		}

		result, err := o.persister.Persist(ctx, inv, att.Filename, att.MimeType, data)
		if err != nil {
			return false, err
		}
		switch result {
		case PersistDuplicate:
			s.SkippedDuplicate++
			logger.Debug("attachment already stored", slog.String("attachment", att.Filename))
		case PersistSaved:
			s.AttachmentsSaved++
			o.metrics.RecordAttachmentBytes(ctx, int64(len(data)))
			if property.IsFloorplan(msg.Kind, att.Filename, att.MimeType) {
				floorplans = append(floorplans, savedFloorplan{att: att, data: data})
			}
		}
	}

	if o.cfg.Reports && o.reports != nil {
		o.report(ctx, msg.ID, key, folder, floorplans, s)
	}

	if err := o.source.MarkProcessed(ctx, msg.ID); err != nil {
		return false, fmt.Errorf("failed to apply processed label: %w", err)
	}
	logger.Info("message organized", slog.Bool("folder_created", created))
	return false, nil
}

// report runs the report pipeline over the new floorplans in order until one
// produces a document.
func (o *Organizer) report(ctx context.Context, messageID string, key property.Key, folder *property.Folder, floorplans []savedFloorplan, s *RunSummary) {
	for _, fp := range floorplans {
		res := o.reports.Run(ctx, report.Request{
			FolderID:   folder.ID,
			Number:     key.Number,
			Station:    key.Station,
			Attachment: fp.att,
			Data:       fp.data,
		})
		note := ReportNote{
			MessageID:  messageID,
			Folder:     folder.Name,
			Attachment: fp.att.Filename,
			Status:     res.Status,
			Reason:     res.Reason,
		}
		if res.Document != nil {
			note.DocumentURL = res.Document.URL
		}
		s.Reports = append(s.Reports, note)
		if res.Generated() {
			s.ReportGenerated++
			return
		}
	}
}

func (o *Organizer) finish(ctx context.Context, s *RunSummary) {
	o.metrics.RecordRun(ctx, string(s.Trigger), s.statusLabel(), s.Duration())

	failures := make(map[string]string, len(s.Failures))
	for _, f := range s.Failures {
		failures[f.MessageID] = f.Error
	}
	o.audit.LogRun(&instrumentation.RunRecord{
		RunID:            s.RunID,
		Trigger:          string(s.Trigger),
		Window:           o.cfg.Window,
		Duration:         s.Duration(),
		Matched:          s.Matched,
		Organized:        s.Organized,
		SkippedDuplicate: s.SkippedDuplicate,
		ReportGenerated:  s.ReportGenerated,
		Failed:           s.Failed,
		Failures:         failures,
		Error:            s.Error,
		TraceID:          instrumentation.GetTraceID(ctx),
	})
}

func (s *RunSummary) statusLabel() string {
	if s.Status == StatusError {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
