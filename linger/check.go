// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package linger

import (
	"fmt"
	"runtime"
)

// TestingT is the subset of [testing.TB] needed by [CheckClean].
type TestingT interface {
	Errorf(string, ...any)
}

// CheckClean will record a test error for each scope or watcher that
// the Recorder still considers alive, along with the stack where it
// was started.
func CheckClean(t TestingT, r *Recorder) {
	callers := r.Callers()
	if len(callers) == 0 {
		return
	}
	if x, ok := t.(interface{ Helper() }); ok {
		x.Helper()
	}

	t.Errorf("%d lingering scope(s) detected", len(callers))
	for _, stack := range callers {
		t.Errorf("  started at:")
		for _, line := range format(stack) {
			t.Errorf("    %s", line)
		}
	}
}

func format(stack []uintptr) []string {
	var ret []string
	frames := runtime.CallersFrames(stack)
	for {
		frame, more := frames.Next()
		ret = append(ret, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		if !more {
			return ret
		}
	}
}
