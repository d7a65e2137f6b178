// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"vawter.tech/scope/linger"
)

// loopUntilStopped is a worker that never finishes on its own.
func loopUntilStopped(s *Scope) error {
	for {
		if err := Sleep(s, 5*time.Millisecond); err != nil {
			return err
		}
	}
}

// signalWhenLive waits for the id to be registered before signaling
// it, since signals sent before registration are dropped.
func signalWhenLive(r *require.Assertions, reg *Registry, id string) {
	r.Eventually(func() bool { return reg.Signal(id) }, time.Second, time.Millisecond)
}

func TestCancellableSuppressed(t *testing.T) {
	r := require.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	rec := linger.NewRecorder(4)
	reg := NewRegistry(WithLogger(zap.New(core)))

	done := make(chan error, 1)
	go func() {
		done <- NewCancellable(reg, "A",
			WithSuppress(true), WithTracker(rec),
		).Run(t.Context(), loopUntilStopped)
	}()

	signalWhenLive(r, reg, "A")

	select {
	case err := <-done:
		r.NoError(err)
	case <-time.After(time.Second):
		r.Fail("scope did not exit after signal")
	}

	r.Zero(reg.Len())
	linger.CheckClean(t, rec)
	r.Equal(1, logs.FilterMessage("context cancelled").Len())
	r.Zero(logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestCancellablePropagates(t *testing.T) {
	r := require.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	reg := NewRegistry(WithLogger(zap.New(core)))

	done := make(chan error, 1)
	go func() {
		done <- NewCancellable(reg, "B").Run(t.Context(), loopUntilStopped)
	}()
	signalWhenLive(r, reg, "B")

	err := <-done
	r.ErrorIs(err, ErrCancelled)
	r.ErrorIs(err, context.Canceled)
	r.NotErrorIs(err, ErrTimedOut)
	var cancelled *CancelledError
	r.ErrorAs(err, &cancelled)
	r.Equal("B", cancelled.ID)
	r.Equal(ConditionCancelled, Classify(err))

	entries := logs.FilterMessage("context exception").All()
	r.Len(entries, 1)
	r.Equal("cancelled", entries[0].ContextMap()["condition"])
}

func TestCancellableCtxErrReportsCondition(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	done := make(chan error, 1)
	go func() {
		done <- NewCancellable(reg, "ctx-err").Run(t.Context(), func(s *Scope) error {
			<-s.Done()
			// Returning the plain context error still reports the
			// distinguishable stop condition.
			return s.Err()
		})
	}()
	signalWhenLive(r, reg, "ctx-err")

	err := <-done
	var cancelled *CancelledError
	r.ErrorAs(err, &cancelled)
}

func TestCancellableWrappedCtxErrKeepsDetail(t *testing.T) {
	for _, suppress := range []bool{true, false} {
		t.Run(fmt.Sprintf("suppress=%t", suppress), func(t *testing.T) {
			r := require.New(t)

			core, logs := observer.New(zapcore.DebugLevel)
			reg := NewRegistry(WithLogger(zap.New(core)))
			s, err := NewCancellable(reg, "w", WithSuppress(suppress)).Enter(t.Context())
			r.NoError(err)
			r.True(reg.Signal("w"))

			err = s.Exit(fmt.Errorf("write row 7: %w", s.Err()))
			if suppress {
				r.NoError(err)
				entries := logs.FilterMessage("context cancelled").All()
				r.Len(entries, 1)
				r.Contains(entries[0].ContextMap()["suppressed"], "write row 7")
				return
			}
			var cancelled *CancelledError
			r.ErrorAs(err, &cancelled)
			r.Equal("w", cancelled.ID)
			r.ErrorContains(err, "write row 7")
			r.Equal(ConditionCancelled, Classify(err))
		})
	}
}

func TestNewCancellableNilRegistry(t *testing.T) {
	require.PanicsWithError(t, "registry must not be nil", func() {
		NewCancellable(nil, "nil")
	})
}

func TestCancellableDuplicate(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	first, err := NewCancellable(reg, "dup").Enter(t.Context())
	r.NoError(err)

	var ran bool
	err = NewCancellable(reg, "dup").Run(t.Context(), func(*Scope) error {
		ran = true
		return nil
	})
	r.ErrorIs(err, ErrDuplicateSubscriber)
	r.False(ran)

	// The failed entry must not have disturbed the live registration.
	r.Equal([]string{"dup"}, reg.IDs())
	r.True(reg.Signal("dup"))
	r.ErrorIs(first.Exit(first.Checkpoint()), ErrCancelled)
	r.Zero(reg.Len())
}

func TestCancellableReuseID(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	c := NewCancellable(reg, "X")
	for range 3 {
		r.NoError(c.Run(t.Context(), func(s *Scope) error {
			r.Equal([]string{"X"}, reg.IDs())
			return nil
		}))
		r.Zero(reg.Len())
	}

	// A different instance with the same id.
	r.NoError(NewCancellable(reg, "X").Run(t.Context(), func(*Scope) error { return nil }))
}

func TestCancellableOtherErrorAlwaysPropagates(t *testing.T) {
	for _, suppress := range []bool{true, false} {
		t.Run(fmt.Sprintf("suppress=%t", suppress), func(t *testing.T) {
			r := require.New(t)

			core, logs := observer.New(zapcore.DebugLevel)
			reg := NewRegistry(WithLogger(zap.New(core)))

			boom := errors.New("boom")
			err := NewCancellable(reg, "other", WithSuppress(suppress)).
				Run(t.Context(), func(*Scope) error { return boom })
			r.ErrorIs(err, boom)
			r.Zero(reg.Len())

			entries := logs.FilterMessage("context exception").All()
			r.Len(entries, 1)
			r.Equal("error", entries[0].ContextMap()["condition"])
		})
	}
}

func TestCancellableTimedOutNotSuppressed(t *testing.T) {
	r := require.New(t)

	// A Cancellable only absorbs its own condition.
	reg := NewRegistry()
	inner := &TimedOutError{Started: time.Now(), Timeout: time.Second}
	err := NewCancellable(reg, "mismatch", WithSuppress(true)).
		Run(t.Context(), func(*Scope) error { return inner })
	r.ErrorIs(err, ErrTimedOut)
}

func TestCancellablePanic(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	err := NewCancellable(reg, "panic", WithSuppress(true)).
		Run(t.Context(), func(*Scope) error { panic("kaboom") })
	var rec *RecoveredError
	r.ErrorAs(err, &rec)
	r.ErrorContains(err, "kaboom")
	r.Zero(reg.Len())
}

func TestCancellableSignalAfterExit(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	var captured *Scope
	r.NoError(NewCancellable(reg, "late").Run(t.Context(), func(s *Scope) error {
		captured = s
		return nil
	}))

	r.False(reg.Signal("late"))
	r.False(captured.IsStopping())
	r.ErrorIs(context.Cause(captured), ErrExited)
}

func TestCancellableCompletionWins(t *testing.T) {
	r := require.New(t)

	// Work that finishes without reaching an interruption point after
	// the stop fired completes normally.
	reg := NewRegistry()
	err := NewCancellable(reg, "ignore").Run(t.Context(), func(s *Scope) error {
		r.True(reg.Signal("ignore"))
		r.True(s.IsStopping())
		return nil
	})
	r.NoError(err)
}

func TestCancellableAtMostOnce(t *testing.T) {
	r := require.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	reg := NewRegistry(WithLogger(zap.New(core)))

	err := NewCancellable(reg, "once").Run(t.Context(), func(s *Scope) error {
		for range 5 {
			r.True(reg.Signal("once"))
		}
		return s.Checkpoint()
	})
	r.ErrorIs(err, ErrCancelled)
	r.Equal(1, logs.FilterMessage("stopping scope").Len())
}

func TestCancellableParentCanceled(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	parent, cancel := context.WithCancel(t.Context())
	cancel()

	// A parent cancellation is not this scope's stop condition.
	err := NewCancellable(reg, "parent", WithSuppress(true)).Run(parent, func(s *Scope) error {
		<-s.Done()
		return s.Err()
	})
	r.ErrorIs(err, context.Canceled)
	r.NotErrorIs(err, ErrCancelled)
	r.Zero(reg.Len())
}

func TestCancellableEnterExit(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	c := NewCancellable(reg, "manual")
	r.Equal("manual", c.ID())

	s, err := c.Enter(t.Context())
	r.NoError(err)
	r.Equal(KindCancellable, s.Kind())
	r.Equal("manual", s.ID())

	found, ok := From(s)
	r.True(ok)
	r.Same(s, found)

	_, hasDeadline := s.Deadline()
	r.False(hasDeadline)

	r.NoError(s.Exit(nil))
	r.Zero(reg.Len())

	// Later calls pass the argument through.
	boom := errors.New("boom")
	r.Same(boom, s.Exit(boom))
}
