// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package limit paces and bounds scope activity.
//
// A [Signaler] rate-limits bulk cancellation traffic sent through a
// [scope.Registry], and a [Gate] bounds how many scopes may be running
// at once.
package limit

import (
	"context"
	"errors"
	"runtime/trace"

	"golang.org/x/time/rate"
	"vawter.tech/scope"
)

// A Gate limits the number of scopes that may run concurrently.
type Gate struct {
	ch chan struct{}
}

// NewGate constructs a Gate that admits at most limit scopes at a time.
func NewGate(limit int) *Gate {
	if limit <= 0 {
		panic(errors.New("limit must be greater than zero"))
	}
	return &Gate{ch: make(chan struct{}, limit)}
}

// Len returns the number of scopes currently admitted.
func (g *Gate) Len() int { return len(g.ch) }

// Run waits for a free slot and then executes the function within a
// scope opened by the Enterer, as [scope.Run] does. If the context is
// done before a slot frees up, [context.Cause] is returned and the
// scope is never entered.
func (g *Gate) Run(ctx context.Context, e scope.Enterer, fn scope.Func) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-g.ch }()
	return scope.Run(ctx, e, fn)
}

func (g *Gate) acquire(ctx context.Context) error {
	// Fast-path: a slot is available.
	select {
	case g.ch <- struct{}{}:
		return nil
	default:
	}

	defer trace.StartRegion(ctx, "concurrency wait").End()
	select {
	case g.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// A Signaler paces calls to [scope.Registry.Signal] with a token-bucket
// [rate.Limiter].
type Signaler struct {
	lim *rate.Limiter
	reg *scope.Registry
}

// NewSignaler allows r signals per second with bursts of up to b.
func NewSignaler(reg *scope.Registry, r float64, b int) *Signaler {
	return &Signaler{lim: rate.NewLimiter(rate.Limit(r), b), reg: reg}
}

// Signal waits until the rate allows and then signals the id. It
// reports whether a live scope was found. An error is returned only if
// the context is done, or would be done, before the wait completes.
func (s *Signaler) Signal(ctx context.Context, id string) (bool, error) {
	// Fast-path: there's capacity.
	if !s.lim.Allow() {
		region := trace.StartRegion(ctx, "signal rate wait")
		err := s.lim.Wait(ctx)
		region.End()
		if err != nil {
			return false, err
		}
	}
	return s.reg.Signal(id), nil
}
