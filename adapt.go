// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"context"

	"vawter.tech/scope/internal/safe"
)

// Adaptable is the set of function signatures accepted by [Fn] and
// [Run].
type Adaptable interface {
	func() | func() error |
		func(context.Context) | func(context.Context) error |
		func(*Scope) | func(*Scope) error | Func
}

// Fn adapts various function signatures to a [Func].
func Fn[A Adaptable](fn A) Func {
	a := any(fn)
	switch t := a.(type) {
	case func():
		return func(*Scope) error {
			t()
			return nil
		}
	case func() error:
		return func(*Scope) error {
			return t()
		}
	case func(context.Context):
		return func(s *Scope) error {
			t(s)
			return nil
		}
	case func(context.Context) error:
		return func(s *Scope) error {
			return t(s)
		}
	case func(*Scope):
		return func(s *Scope) error {
			t(s)
			return nil
		}
	case func(*Scope) error:
		return t
	}
	return a.(Func)
}

// Run enters a scope, executes the function inside it, and exits the
// scope on every path. The error from [Enterer.Enter], or the result
// of [Scope.Exit], is returned. A panic in the function is recovered
// as a [RecoveredError] and propagated like any other failure.
func Run[A Adaptable](ctx context.Context, e Enterer, fn A) error {
	return run(ctx, e, Fn(fn))
}

func run(ctx context.Context, e Enterer, fn Func) (err error) {
	s, err := e.Enter(ctx)
	if err != nil {
		return err
	}
	defer func() { err = s.Exit(err) }()
	return safe.CallE(func() error { return fn(s) })
}
