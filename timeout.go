// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"context"
	"math"
	"runtime/trace"
	"time"

	"go.uber.org/zap"
)

// A Timeout opens scopes that are stopped once a fixed duration has
// elapsed since they were entered. A non-positive duration disables
// the deadline entirely.
//
// A Timeout may be entered any number of times, concurrently or in
// sequence. Each scope gets its own deadline watcher.
type Timeout struct {
	cfg     *config
	timeout time.Duration
}

var _ Enterer = (*Timeout)(nil)

// NewTimeout constructs a Timeout. See [Seconds] to convert a
// fractional number of seconds.
func NewTimeout(timeout time.Duration, opts ...Option) *Timeout {
	cfg := newConfig(opts)
	cfg.Sanitize(nil, "timeout")
	return &Timeout{cfg: cfg, timeout: timeout}
}

// Seconds converts a fractional number of seconds into a Duration. Any
// positive value yields a positive Duration, saturating at the largest
// representable one. NaN converts to zero.
func Seconds(f float64) time.Duration {
	ns := f * float64(time.Second)
	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	case ns > 0 && ns < 1:
		return 1
	default:
		return time.Duration(ns)
	}
}

// Enter returns the running Scope. If the Timeout has a positive
// duration, a deadline watcher is started that stops the scope with a
// [TimedOutError] no earlier than the duration after entry.
func (t *Timeout) Enter(ctx context.Context) (*Scope, error) {
	s := newScope(ctx, KindTimeout, t.cfg.name, t.cfg, ConditionTimedOut)
	if t.timeout <= 0 {
		s.logger.Debug("scope entered without deadline")
		return s, nil
	}
	s.deadline = s.started.Add(t.timeout)
	w := watch(s, &TimedOutError{Started: s.started, Timeout: t.timeout})
	s.cleanup = w.halt
	s.logger.Debug("scope entered", zap.Duration("timeout", t.timeout))
	return s, nil
}

// Timeout returns the configured duration.
func (t *Timeout) Timeout() time.Duration { return t.timeout }

// Run executes the function within a new scope. See [Run].
func (t *Timeout) Run(ctx context.Context, fn Func) error {
	return run(ctx, t, fn)
}

// A watcher owns the goroutine that enforces a deadline.
type watcher struct {
	done   chan struct{} // Closed when the goroutine returns.
	halted chan struct{} // Closed by halt.
}

// watch starts the deadline goroutine. The scope's deadline must
// already be set.
func watch(s *Scope, cause *TimedOutError) *watcher {
	w := &watcher{
		done:   make(chan struct{}),
		halted: make(chan struct{}),
	}
	release := s.cfg.track()
	go func() {
		defer close(w.done)
		defer release()
		defer trace.StartRegion(s, "deadline wait").End()

		// The timer is armed after the start time was sampled, so it
		// cannot fire before the deadline.
		timer := time.NewTimer(time.Until(s.deadline))
		defer timer.Stop()

		select {
		case <-timer.C:
			s.stop(cause)
		case <-w.halted:
			s.logger.Debug("deadline watcher halted")
		}
	}()
	return w
}

// halt terminates the watcher and waits for its goroutine to return.
// It must be called exactly once.
func (w *watcher) halt() {
	close(w.halted)
	<-w.done
}
