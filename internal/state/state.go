// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package state defines the one-shot lifecycle shared by every entered
// scope.
package state

import (
	"errors"
	"sync"
)

// ErrExited is the context cause installed when a scope exits without
// having been stopped.
var ErrExited = errors.New("scope exited")

// Phase describes where a scope is in its lifecycle.
type Phase int

const (
	Entered  Phase = iota // Work is running.
	Stopping              // The stop condition has fired.
	Exited                // Cleanup has run.
)

func (p Phase) String() string {
	switch p {
	case Entered:
		return "entered"
	case Stopping:
		return "stopping"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// A State is owned by exactly one entered scope.
type State struct {
	stopping chan struct{}

	mu struct {
		sync.Mutex
		cancel func(error) // Cleared by the first Stop or Exit.
		cause  error       // The stop condition, if one fired.
		phase  Phase
	}
}

// New returns a State in the [Entered] phase. The cancel function
// is invoked exactly once, either with the stop condition or with
// [ErrExited].
func New(cancel func(error)) *State {
	ret := &State{stopping: make(chan struct{})}
	ret.mu.cancel = cancel
	return ret
}

// Cause returns the stop condition, or nil if none has fired.
func (s *State) Cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.cause
}

// Exit moves the State into the [Exited] phase and returns the stop
// condition, if any. The first return value is meaningful only when
// first is true; subsequent calls report first=false.
func (s *State) Exit() (cause error, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.phase == Exited {
		return s.mu.cause, false
	}
	s.mu.phase = Exited
	if fn := s.mu.cancel; fn != nil {
		s.mu.cancel = nil
		fn(ErrExited)
	}
	return s.mu.cause, true
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.phase
}

// Stop records the stop condition and cancels the scope context. It
// returns false if the State was already stopping or has exited, so a
// stop condition is delivered at most once per scope.
func (s *State) Stop(cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.phase != Entered {
		return false
	}
	s.mu.phase = Stopping
	s.mu.cause = cause
	close(s.stopping)
	// The cancel function belongs to the context package and does not
	// call back into the State.
	fn := s.mu.cancel
	s.mu.cancel = nil
	fn(cause)
	return true
}

// Stopping returns a channel that is closed when Stop succeeds.
func (s *State) Stopping() <-chan struct{} { return s.stopping }
