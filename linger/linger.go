// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package linger contains a utility for reporting on where lingering
// scopes and deadline watchers were originally started.
package linger

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// This value is sensitive to the code structure of the scope package.
const callersOffset = 3

// NewRecorder constructs a [Recorder] that samples the call stack at the
// requested depth.
func NewRecorder(depth int) *Recorder {
	return &Recorder{depth: depth}
}

// A Recorder implements [vawter.tech/scope.Tracker]. It records the call
// stack where each scope was entered or where each deadline watcher was
// started, and forgets it once that scope exits or the watcher's
// goroutine returns. It is primarily useful in tests, to ensure that
// nothing outlives a call to [vawter.tech/scope.Scope.Exit].
type Recorder struct {
	counter atomic.Uintptr
	data    sync.Map
	depth   int
}

// Callers returns a snapshot of the caller stacks associated with any
// tracked scopes or watchers that are still alive.
func (r *Recorder) Callers() [][]uintptr {
	var ret [][]uintptr
	r.data.Range(func(_, value any) bool {
		ret = append(ret, value.([]uintptr))
		return true
	})
	return ret
}

// Len returns the number of live tracked items.
func (r *Recorder) Len() int {
	var n int
	r.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Track samples the caller and returns a function that forgets the
// sample. The returned function is idempotent.
func (r *Recorder) Track() (release func()) {
	pc := make([]uintptr, r.depth)
	pc = pc[:runtime.Callers(callersOffset, pc)]

	id := r.counter.Add(1)
	r.data.Store(id, pc)

	return func() { r.data.Delete(id) }
}
