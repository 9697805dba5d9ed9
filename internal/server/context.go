package server

import (
	"context"
	"sync"

	"github.com/teemow/propertyinbox/internal/organizer"
)

// Runner runs one organizer pass.
type Runner interface {
	Run(ctx context.Context, trigger organizer.Trigger) (*organizer.RunSummary, error)
}

// ServerContext is the state shared by every trigger surface of the process:
// the root context, the runner and the most recent run summary.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	runner Runner

	mu       sync.RWMutex
	lastRun  *organizer.RunSummary
	shutdown bool
}

// NewServerContext creates a ServerContext whose context is cancelled on
// Shutdown.
func NewServerContext(ctx context.Context, runner Runner) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		runner: runner,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Run runs the organizer and remembers the summary. Runs triggered by
// different surfaces may overlap.
func (sc *ServerContext) Run(ctx context.Context, trigger organizer.Trigger) (*organizer.RunSummary, error) {
	summary, err := sc.runner.Run(ctx, trigger)
	if summary != nil {
		sc.mu.Lock()
		sc.lastRun = summary
		sc.mu.Unlock()
	}
	return summary, err
}

// LastRun returns the summary of the most recent run, or nil.
func (sc *ServerContext) LastRun() *organizer.RunSummary {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastRun
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return
	}
	sc.shutdown = true
	sc.cancel()
}
