// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package linger_test

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"vawter.tech/scope"
	"vawter.tech/scope/linger"
)

const sampleDepth = 8

func TestRecorderTracksScopes(t *testing.T) {
	r := require.New(t)

	rec := linger.NewRecorder(sampleDepth)
	reg := scope.NewRegistry()

	s, err := scope.NewCancellable(reg, "tracked", scope.WithTracker(rec)).Enter(t.Context())
	r.NoError(err)
	r.Equal(1, rec.Len())
	requireCaller(r, rec, "linger_test.TestRecorderTracksScopes")

	r.NoError(s.Exit(nil))
	r.Zero(rec.Len())
	linger.CheckClean(t, rec)
}

func TestRecorderTracksWatchers(t *testing.T) {
	r := require.New(t)

	rec := linger.NewRecorder(sampleDepth)
	s, err := scope.NewTimeout(time.Hour, scope.WithTracker(rec)).Enter(t.Context())
	r.NoError(err)

	// One for the scope, one for its watcher goroutine.
	r.Equal(2, rec.Len())

	r.NoError(s.Exit(nil))
	linger.CheckClean(t, rec)
}

func TestRecorderReleaseIdempotent(t *testing.T) {
	r := require.New(t)

	rec := linger.NewRecorder(1)
	release := rec.Track()
	r.Equal(1, rec.Len())
	release()
	release()
	r.Zero(rec.Len())
}

func requireCaller(r *require.Assertions, rec *linger.Recorder, fn string) {
	for _, stack := range rec.Callers() {
		frames := runtime.CallersFrames(stack)
		for {
			frame, more := frames.Next()
			if strings.Contains(frame.Function, fn) {
				return
			}
			if !more {
				break
			}
		}
	}
	r.Fail("caller not recorded", fn)
}
