// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package retry re-runs work whose scope was stopped.
//
// Each attempt runs inside a fresh scope, so a [scope.Timeout] acts as
// a per-attempt deadline. [Do] is a general-purpose building block
// driven by a [Classifier] function. An exponential [Backoff] and a
// trivial [Loop] policy are provided; both retry only timed-out
// attempts unless told otherwise.
package retry

import (
	"context"
	"errors"
	"runtime/trace"

	"vawter.tech/scope"
)

// A Classifier is a function that determines if an error is retryable.
// Each call to [Do] is associated with a state value, which is
// initially the zero value for the S type. If an attempt fails, the
// error and the current state are passed to the Classifier. The
// Classifier may return an error to fail immediately.
//
// If the attempt should be retried, the Classifier returns a channel
// that emits a value when the next attempt should start (e.g.:
// [time.After]). Closing the channel without emitting a value abandons
// the retry, failing with the error most recently passed to the
// Classifier.
//
// If the returned channel and error are both nil, the error is
// considered to have been handled and Do returns nil.
type Classifier[S, N any] func(ctx context.Context, state *S, err error) (<-chan N, error)

// Do runs the function inside a new scope from the Enterer, as
// [scope.Run] does, until it succeeds or the Classifier gives up. If
// the context is done while waiting to retry, the previous error is
// joined with [context.Cause].
func Do[S, N any](ctx context.Context, e scope.Enterer, fn scope.Func, classify Classifier[S, N]) error {
	var state S
	for {
		err := scope.Run(ctx, e, fn)
		if err == nil {
			return nil
		}
		next, fail := classify(ctx, &state, err)
		if fail != nil {
			return fail
		}
		// Classifier ate the error condition.
		if next == nil {
			return nil
		}
		if err := waitOnChannel(ctx, next, err); err != nil {
			return err
		}
	}
}

// TimedOut is the default retry predicate.
func TimedOut(err error) bool { return errors.Is(err, scope.ErrTimedOut) }

func waitOnChannel[N any](ctx context.Context, next <-chan N, err error) error {
	defer trace.StartRegion(ctx, "retry wait").End()
	select {
	case _, ok := <-next:
		if ok {
			return nil
		}
		return err
	case <-ctx.Done():
		return errors.Join(err, context.Cause(ctx))
	}
}
