// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vawter.tech/scope/internal/safe"
	"vawter.tech/scope/internal/state"
)

var (
	// ErrDuplicateSubscriber is returned when an id is registered while
	// another scope holds it.
	ErrDuplicateSubscriber = errors.New("subscriber id not unique")

	// ErrCancelled matches any [CancelledError].
	ErrCancelled = errors.New("context cancelled")

	// ErrTimedOut matches any [TimedOutError].
	ErrTimedOut = errors.New("context timed out")

	// ErrExited is the [context.Cause] of a [Scope] that has exited
	// without being stopped.
	ErrExited = state.ErrExited
)

// A CancelledError is the stop condition of a [Cancellable] scope. It
// matches both [ErrCancelled] and [context.Canceled].
type CancelledError struct {
	ID string
}

// Error implements error.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("context %q cancelled", e.ID)
}

// Is supports [errors.Is].
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled || target == context.Canceled
}

// A TimedOutError is the stop condition of a [Timeout] scope. It
// matches both [ErrTimedOut] and [context.DeadlineExceeded].
type TimedOutError struct {
	Started time.Time
	Timeout time.Duration
}

// Deadline returns the instant at which the scope became eligible to
// be stopped.
func (e *TimedOutError) Deadline() time.Time { return e.Started.Add(e.Timeout) }

// Error implements error.
func (e *TimedOutError) Error() string {
	return fmt.Sprintf("context timed out after %s", e.Timeout)
}

// Is supports [errors.Is].
func (e *TimedOutError) Is(target error) bool {
	return target == ErrTimedOut || target == context.DeadlineExceeded
}

// A RecoveredError is returned when work running inside a scope
// panics.
type RecoveredError = safe.RecoveredError

// A Condition classifies the error observed when a scope exits.
type Condition int

const (
	ConditionNone      Condition = iota // The work completed normally.
	ConditionCancelled                  // A [CancelledError].
	ConditionTimedOut                   // A [TimedOutError].
	ConditionOther                      // Any other failure.
)

// Classify returns the Condition carried by an error.
func Classify(err error) Condition {
	switch {
	case err == nil:
		return ConditionNone
	case errors.Is(err, ErrCancelled):
		return ConditionCancelled
	case errors.Is(err, ErrTimedOut):
		return ConditionTimedOut
	default:
		return ConditionOther
	}
}

func (c Condition) String() string {
	switch c {
	case ConditionNone:
		return "none"
	case ConditionCancelled:
		return "cancelled"
	case ConditionTimedOut:
		return "timed out"
	case ConditionOther:
		return "error"
	default:
		return "unknown"
	}
}
