// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"

	"vawter.tech/scope"
)

// Loop retries immediately.
type Loop struct {
	MaxAttempts int              // Defaults to 2 if unset.
	Retryable   func(error) bool // Defaults to [TimedOut].
}

// Do runs the function in a new scope from the Enterer until it
// succeeds, fails with a non-retryable error, or runs out of attempts.
func (l *Loop) Do(ctx context.Context, e scope.Enterer, fn scope.Func) error {
	attempts := l.MaxAttempts
	if attempts == 0 {
		attempts = 2
	}
	retryable := l.Retryable
	if retryable == nil {
		retryable = TimedOut
	}
	return Do(ctx, e, fn, func(_ context.Context, count *int, err error) (<-chan struct{}, error) {
		if !retryable(err) {
			return nil, err
		}
		*count++
		if *count >= attempts {
			return nil, &MaxAttemptsError{Attempts: *count, Last: err}
		}
		ch := make(chan struct{}, 1)
		ch <- struct{}{}
		return ch, nil
	})
}
