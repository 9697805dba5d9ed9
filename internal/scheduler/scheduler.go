// Package scheduler runs the organizer on a cron schedule inside the server
// process.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/propertyinbox/internal/logging"
)

// DefaultSpec runs at the top of every hour. Specs carry a seconds field.
const DefaultSpec = "0 0 * * * *"

// DefaultTimeout bounds one scheduled run.
const DefaultTimeout = 10 * time.Minute

// Job is the scheduled work.
type Job func(ctx context.Context) error

type options struct {
	logger   *slog.Logger
	timeout  time.Duration
	location *time.Location
}

// Option configures a Scheduler.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTimeout bounds each run. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLocation sets the zone the spec is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// Scheduler triggers a Job on a cron spec. A run still in progress when the
// next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	rootCtx context.Context
	entry   cron.EntryID
	started bool
}

// New validates spec and creates a stopped Scheduler.
func New(spec string, job Job, opts ...Option) (*Scheduler, error) {
	o := options{timeout: DefaultTimeout, location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if spec == "" {
		spec = DefaultSpec
	}
	if job == nil {
		return nil, fmt.Errorf("scheduler job is required")
	}

	cronLogger := logging.CronLogger{Logger: logging.NewSlogAdapter(o.logger)}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(o.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{
		cron:    c,
		spec:    spec,
		job:     job,
		timeout: o.timeout,
		logger:  o.logger,
	}
	entry, err := c.AddFunc(spec, s.execute)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = entry
	return s, nil
}

// Spec returns the cron spec.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start begins scheduling. Runs derive their context from ctx; cancelling
// ctx cancels a run in progress but does not stop the schedule.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.rootCtx = ctx
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("spec", s.spec), slog.Time("next", s.Next()))
}

// Stop stops scheduling and waits up to the returned context for a run in
// progress to finish.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return s.cron.Stop()
}

// Next returns the time of the next scheduled run, or the zero time when the
// scheduler is not running.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunOnce executes the job immediately under the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.job(ctx)
	if err != nil {
		s.logger.Error("scheduled run failed", logging.Err(err), slog.Duration("duration", time.Since(start)))
		return err
	}
	s.logger.Info("scheduled run finished", slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *Scheduler) execute() {
	s.mu.Lock()
	ctx := s.rootCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	_ = s.RunOnce(ctx)
}
