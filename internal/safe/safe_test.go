// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package safe

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireStack asserts that the RecoveredError has a non-empty Stack
// whose frames include the named function.
func requireStack(r *require.Assertions, err error, funcName string) {
	var rec *RecoveredError
	r.ErrorAs(err, &rec)
	r.NotEmpty(rec.Stack)

	frames := runtime.CallersFrames(rec.Stack)
	var found bool
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.Function, funcName) {
			found = true
			break
		}
		if !more {
			break
		}
	}
	r.True(found, "expected stack to contain %q, got:\n%s",
		funcName, rec.String())
}

func TestCall(t *testing.T) {
	r := require.New(t)

	r.NoError(Call(func() {}))

	boom := errors.New("boom")
	err := Call(func() { panic(boom) })
	r.ErrorIs(err, boom)
	requireStack(r, err, "TestCall")

	err = Call(func() { panic("yikes") })
	r.ErrorContains(err, "yikes")
	requireStack(r, err, "TestCall")
}

func TestCallE(t *testing.T) {
	r := require.New(t)

	r.NoError(CallE(func() error { return nil }))

	boom := errors.New("boom")
	r.ErrorIs(CallE(func() error { return boom }), boom)

	kaboom := errors.New("kaboom")
	err := CallE(func() error { panic(kaboom) })
	r.ErrorIs(err, kaboom)
	requireStack(r, err, "TestCallE")

	err = CallE(func() error { panic("oops") })
	r.ErrorContains(err, "oops")
	requireStack(r, err, "TestCallE")

	// A panic during unwinding prevents the return value from being
	// assigned.
	masked := CallE(func() error {
		defer func() { panic(kaboom) }()
		return boom
	})
	r.ErrorIs(masked, kaboom)
	r.NotErrorIs(masked, boom)
}

func TestRecoveredErrorString(t *testing.T) {
	r := require.New(t)

	err := Call(func() { panic("formatted") })
	var rec *RecoveredError
	r.ErrorAs(err, &rec)
	r.True(strings.HasPrefix(rec.String(), "recovered: panic: formatted\n"))
	r.Contains(rec.String(), "TestRecoveredErrorString")
}
