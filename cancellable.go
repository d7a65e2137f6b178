// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"context"
	"errors"
)

// A Cancellable opens scopes that can be stopped from any goroutine by
// signaling its id through a [Registry]. The id must be unique among
// the scopes that are live at any one time, but may be reused once a
// previous scope has exited.
//
// A Cancellable may be entered any number of times in sequence.
type Cancellable struct {
	cfg *config
	id  string
	reg *Registry
}

var _ Enterer = (*Cancellable)(nil)

// NewCancellable constructs a Cancellable bound to the Registry, which
// must not be nil.
func NewCancellable(reg *Registry, id string, opts ...Option) *Cancellable {
	if reg == nil {
		panic(errors.New("registry must not be nil"))
	}
	cfg := newConfig(opts)
	cfg.Sanitize(reg.logger, id)
	return &Cancellable{cfg: cfg, id: id, reg: reg}
}

// Enter registers a stop handler under the id and returns the running
// Scope. If the id is already live, an error matching
// [ErrDuplicateSubscriber] is returned and no scope is opened.
func (c *Cancellable) Enter(ctx context.Context) (*Scope, error) {
	s := newScope(ctx, KindCancellable, c.id, c.cfg, ConditionCancelled)
	cause := &CancelledError{ID: c.id}
	e, err := c.reg.register(c.id, func() { s.stop(cause) })
	if err != nil {
		s.abort()
		return nil, err
	}
	s.cleanup = func() { c.reg.unregister(e) }
	s.logger.Debug("scope entered")
	return s, nil
}

// ID returns the id under which scopes are registered.
func (c *Cancellable) ID() string { return c.id }

// Run executes the function within a new scope. See [Run].
func (c *Cancellable) Run(ctx context.Context, fn Func) error {
	return run(ctx, c, fn)
}
