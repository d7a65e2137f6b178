// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package safe contains utilities for executing user-provided
// functions, such as scope bodies and stop handlers.
package safe

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const captureDepth = 32

// A RecoveredError associates a panic value with the stack of the
// goroutine that panicked.
type RecoveredError struct {
	Err   error
	Stack []uintptr
}

// Error implements error.
func (e *RecoveredError) Error() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "recovered: %v\n", e.Err)
	frames := runtime.CallersFrames(e.Stack)
	for {
		frame, more := frames.Next()
		_, _ = fmt.Fprintf(&sb, "%s ( %s:%d )\n", frame.Function, frame.File, frame.Line)
		if !more {
			return sb.String()
		}
	}
}

// String is for debugging use only.
func (e *RecoveredError) String() string {
	return e.Error()
}

// Unwrap returns the enclosed error.
func (e *RecoveredError) Unwrap() error { return e.Err }

// Call executes a handler. If the handler panics, an error will be
// returned.
func Call(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(nil, r)
		}
	}()
	fn()
	return
}

// CallE executes the function. If the function panics, the recovered
// value will be joined to any error already returned.
func CallE(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(err, r)
		}
	}()
	err = fn()
	return
}

// recovered must be called directly from a deferred function so that
// the captured stack starts at the panic site.
func recovered(prior error, r any) error {
	var err error
	switch t := r.(type) {
	case error:
		err = t
	default:
		err = fmt.Errorf("panic: %v", t)
	}
	stack := make([]uintptr, captureDepth)
	stack = stack[:runtime.Callers(3, stack)]
	return &RecoveredError{
		Err:   errors.Join(prior, err),
		Stack: stack,
	}
}
