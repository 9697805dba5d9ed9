package report

import (
	"github.com/teemow/propertyinbox/internal/breaker"
	"github.com/teemow/propertyinbox/internal/instrumentation"
)

// OutcomeKind tags a stage outcome.
type OutcomeKind string

const (
	KindOk      OutcomeKind = "ok"
	KindSkipped OutcomeKind = "skipped"
	KindFailed  OutcomeKind = "failed"
)

// Outcome is the result of one pipeline stage: Ok carries a value, Skipped a
// reason and Failed an error.
type Outcome[T any] struct {
	Kind   OutcomeKind
	Value  T
	Reason string
	Err    error
}

// Ok returns a successful outcome carrying v.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: KindOk, Value: v}
}

// Skipped returns an outcome for a stage that did not run.
func Skipped[T any](reason string) Outcome[T] {
	return Outcome[T]{Kind: KindSkipped, Reason: reason}
}

// Failed returns an outcome for a stage that ran and failed. Calls rejected by
// an open circuit breaker are tagged so they read apart from provider errors.
func Failed[T any](err error) Outcome[T] {
	o := Outcome[T]{Kind: KindFailed, Err: err}
	if err != nil {
		o.Reason = err.Error()
		if breaker.IsOpen(err) {
			o.Reason = "circuit open: " + o.Reason
		}
	}
	return o
}

// IsOk reports whether the stage succeeded.
func (o Outcome[T]) IsOk() bool {
	return o.Kind == KindOk
}

// Stage returns the untyped record of o under name.
func (o Outcome[T]) Stage(name string) Stage {
	kind := o.Kind
	if kind == "" {
		kind = KindSkipped
	}
	return Stage{Name: name, Kind: kind, Reason: o.Reason}
}

// metricStatus maps an outcome kind onto the metric status vocabulary.
func (k OutcomeKind) metricStatus() string {
	switch k {
	case KindOk:
		return instrumentation.StatusSuccess
	case KindFailed:
		return instrumentation.StatusError
	}
	return instrumentation.StatusSkipped
}

// Stage is the serializable summary of one stage outcome.
type Stage struct {
	Name   string      `json:"name"`
	Kind   OutcomeKind `json:"outcome"`
	Reason string      `json:"reason,omitempty"`
}
