// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package scope provides scoped cancellation and timeout contexts for
// units of work that must be told to stop from somewhere else.
//
// A scope is entered, runs arbitrary work, and is always exited. While
// it runs, it may be stopped exactly once, either by an external
// signal addressed to its id ([Cancellable]) or by a deadline expiring
// ([Timeout]). Exiting a scope always performs cleanup before the
// error that ended the work is inspected.
//
// # Registry
//
// A [Registry] maps ids to the stop handlers of live [Cancellable]
// scopes. There is no package-level default: create one at startup and
// pass it to every Cancellable that should be reachable.
//
//	reg := scope.NewRegistry(scope.WithLogger(logger))
//
// Any goroutine may call [Registry.Signal] (or [CancelContext]) to stop
// the scope registered under an id. Signaling an id that is not live is
// a no-op; signals are not queued.
//
// # Running work in a scope
//
// The package-level [Run] function enters a scope, calls the function,
// and exits the scope on every path, including panics. It accepts any
// [Adaptable] function signature.
//
//	err := scope.Run(ctx, scope.NewCancellable(reg, "job-42"),
//	    func(s *scope.Scope) error {
//	        for {
//	            if err := s.Checkpoint(); err != nil {
//	                return err
//	            }
//	            doSomeWork()
//	        }
//	    })
//
// Callers that need finer control may use [Enterer.Enter] and
// [Scope.Exit] directly:
//
//	s, err := scope.NewTimeout(3 * time.Second).Enter(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { err = s.Exit(err) }()
//
// # Responding to a stop
//
// Go cannot interrupt a goroutine from the outside, so stopping is
// cooperative. A [Scope] is a [context.Context] that is canceled when
// the stop fires, with a [CancelledError] or [TimedOutError] as its
// [context.Cause]. Work observes the stop at interruption points:
// selecting on [Scope.Done], calling [Scope.Checkpoint] or [Sleep], or
// passing the Scope to any context-aware API.
//
// # Suppression
//
// When a scope exits with its own stop condition and was constructed
// with [WithSuppress], the condition is absorbed and the scope exits
// as though the work completed normally. Any other error, including
// the other variant's stop condition, is logged and returned. Use
// [errors.Is] with [ErrCancelled] or [ErrTimedOut], or [Classify], to
// distinguish a stop from a genuine failure.
//
// # Logging
//
// Diagnostics are written to a [go.uber.org/zap.Logger] supplied with
// [WithLogger]. Nothing is logged by default.
//
// # Tracing
//
// Every entered scope is a [runtime/trace.Task], and deadline watchers
// annotate their wait with a region.
//
// # Testing
//
// The [linger] sub-package provides a [Tracker] that reports scopes or
// deadline watchers that outlive a test.
package scope
