// Copyright 2023 The Cockroach Authors
// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"context"
	"errors"
	"fmt"
	"runtime/trace"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"vawter.tech/scope/internal/state"
)

// Key is a [context.Context.Value] key for a [*Scope] used by [From].
type Key struct{}

// Func is the canonical signature of work that runs inside a scope.
// See [Fn] to convert other function signatures to a Func.
type Func func(s *Scope) error

// An Enterer is implemented by [Cancellable] and [Timeout].
type Enterer interface {
	// Enter opens a new scope. The caller must arrange for
	// [Scope.Exit] to be called on every path.
	Enter(ctx context.Context) (*Scope, error)
}

// Kind identifies the variant that created a [Scope].
type Kind int

const (
	KindCancellable Kind = iota + 1
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindCancellable:
		return "cancellable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// A Scope is the running half of a [Cancellable] or [Timeout]. It
// implements [context.Context] and is canceled, with the stop
// condition as its [context.Cause], when the scope is told to stop.
//
// Stopping is cooperative. Work inside the scope observes the stop at
// its next interruption point: a receive from [Scope.Done], a call to
// [Scope.Checkpoint] or [Sleep], or any context-aware library call
// made with the Scope.
//
// A Scope must be closed with [Scope.Exit]. The package-level [Run]
// function and the Run methods on each variant do this automatically.
type Scope struct {
	cfg       *config
	delegate  context.Context // Canceled by st.
	deadline  time.Time       // Zero for an unbounded scope.
	id        string
	kind      Kind
	logger    *zap.Logger
	absorbed  atomic.Bool           // Exit suppressed the own condition.
	outcome   atomic.Pointer[error] // Set by Exit.
	own       Condition             // The condition that may be suppressed.
	release   func()
	started   time.Time
	st        *state.State
	traceTask *trace.Task

	// Runs before the exit contract. Unregisters from the Registry or
	// joins the deadline watcher.
	cleanup func()
}

var _ context.Context = (*Scope)(nil)

// From returns the innermost enclosing Scope, or false if the context
// is not associated with one.
func From(ctx context.Context) (*Scope, bool) {
	found, ok := ctx.Value(Key{}).(*Scope)
	return found, ok
}

func newScope(ctx context.Context, kind Kind, id string, cfg *config, own Condition) *Scope {
	ctx, traceTask := trace.NewTask(ctx, cfg.name)
	ctx, cancel := context.WithCancelCause(ctx)
	s := &Scope{
		cfg:       cfg,
		delegate:  ctx,
		id:        id,
		kind:      kind,
		logger:    cfg.logger.With(zap.String("scope", cfg.name), zap.Stringer("kind", kind)),
		own:       own,
		release:   cfg.track(),
		started:   time.Now(),
		st:        state.New(cancel),
		traceTask: traceTask,
	}
	return s
}

// Checkpoint is an interruption point. It returns the stop condition
// if the scope has been told to stop, or nil otherwise.
func (s *Scope) Checkpoint() error { return Checkpoint(s) }

// Deadline implements [context.Context]. A [Timeout] scope reports the
// earlier of its own deadline and that of the parent context.
func (s *Scope) Deadline() (deadline time.Time, ok bool) {
	deadline, ok = s.delegate.Deadline()
	if s.deadline.IsZero() {
		return
	}
	if !ok || s.deadline.Before(deadline) {
		return s.deadline, true
	}
	return
}

// Done implements [context.Context].
func (s *Scope) Done() <-chan struct{} { return s.delegate.Done() }

// Err implements [context.Context].
func (s *Scope) Err() error { return s.delegate.Err() }

// Exit closes the scope. Cleanup always runs first: a [Cancellable]
// scope is removed from its [Registry] and a [Timeout] scope waits for
// its deadline watcher to terminate. The error returned by the work,
// if any, is then classified.
//
// If err carries the scope's own stop condition and the scope was
// configured with [WithSuppress], Exit returns nil. Otherwise, err is
// returned so that it continues to propagate. If the work returned
// [context.Canceled] or [context.DeadlineExceeded] after the scope was
// stopped, the stop condition is returned in its place.
//
// Only the first call to Exit has any effect; later calls return err
// unchanged.
func (s *Scope) Exit(err error) error {
	cause, first := s.st.Exit()
	if !first {
		return err
	}
	if s.cleanup != nil {
		s.cleanup()
	}
	s.release()
	s.traceTask.End()

	err = s.exitContract(err, cause)
	s.outcome.Store(&err)
	return err
}

// ID returns the id of a [Cancellable] scope or the name of a
// [Timeout] scope.
func (s *Scope) ID() string { return s.id }

// IsStopping returns true once the stop condition has fired.
func (s *Scope) IsStopping() bool {
	select {
	case <-s.st.Stopping():
		return true
	default:
		return false
	}
}

// Kind returns the variant that created the Scope.
func (s *Scope) Kind() Kind { return s.kind }

// Stopping returns a channel that is closed when the stop condition
// fires. Unlike [Scope.Done], it is not closed by a normal exit or by
// the parent context.
func (s *Scope) Stopping() <-chan struct{} { return s.st.Stopping() }

// Value implements [context.Context].
func (s *Scope) Value(key any) any {
	if _, ok := key.(Key); ok {
		return s
	}
	return s.delegate.Value(key)
}

// abort releases a Scope whose Enter failed. The exit contract does
// not apply.
func (s *Scope) abort() {
	s.st.Exit()
	s.release()
	s.traceTask.End()
}

// exitContract decides whether the error that ended the scope is
// absorbed or propagated.
func (s *Scope) exitContract(err, cause error) error {
	if err == nil {
		s.logger.Debug("scope exited")
		return nil
	}

	if cause != nil && Classify(err) == ConditionOther {
		switch {
		case err == context.Canceled || err == context.DeadlineExceeded:
			err = cause
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w: %w", cause, err)
		}
	}

	cond := Classify(err)
	if cond == s.own && s.cfg.suppress {
		s.logger.Info("context "+cond.String(), zap.NamedError("suppressed", err))
		s.absorbed.Store(true)
		return nil
	}

	s.logger.Error("context exception", zap.Stringer("condition", cond), zap.Error(err))
	return err
}

// stop is called from a Handler or the deadline watcher.
func (s *Scope) stop(cause error) {
	if !s.st.Stop(cause) {
		return
	}
	trace.Log(s, "scope", "stopping")
	s.logger.Debug("stopping scope", zap.Error(cause))
}

// Checkpoint is an interruption point for any context. It returns
// [context.Cause] once the context is done, or nil otherwise.
func Checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	default:
		return nil
	}
}

// Sleep pauses for the duration or until the context is done, in which
// case [context.Cause] is returned.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
