// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import "go.uber.org/zap"

// An Option configures a [Registry], [Cancellable], or [Timeout].
// Options that do not apply to the receiving type are ignored.
type Option func(cfg *config)

// A Tracker is notified when a scope or a deadline watcher starts, and
// the returned function is called when it ends. See the linger package
// for an implementation that reports leaks in tests.
type Tracker interface {
	Track() (release func())
}

type config struct {
	logger   *zap.Logger
	name     string
	suppress bool
	tracker  Tracker
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Sanitize fills in defaults. The fallback logger is used only if
// WithLogger was not provided.
func (c *config) Sanitize(fallback *zap.Logger, name string) {
	if c.logger == nil {
		c.logger = fallback
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.name == "" {
		c.name = name
	}
}

func (c *config) track() func() {
	if c.tracker == nil {
		return func() {}
	}
	return c.tracker.Track()
}

// WithLogger sets the diagnostic sink. Scopes inherit the logger of
// their [Registry] unless this option is given. Nothing is logged by
// default.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithName sets the name used in logs and in [runtime/trace] output.
// Cancellable scopes default to their id, Timeout scopes to "timeout".
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithSuppress controls whether a scope absorbs its own stop
// condition when it exits.
func WithSuppress(suppress bool) Option {
	return func(cfg *config) {
		cfg.suppress = suppress
	}
}

// WithTracker installs a [Tracker].
func WithTracker(t Tracker) Option {
	return func(cfg *config) {
		cfg.tracker = t
	}
}
