// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	r := require.New(t)

	for name, want := range map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"INFO":  zap.NewAtomicLevelAt(zap.InfoLevel),
		"":      zap.NewAtomicLevelAt(zap.InfoLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"error": zap.NewAtomicLevelAt(zap.ErrorLevel),
	} {
		got, err := ParseLevel(name)
		r.NoError(err)
		r.Equal(want.Level(), got)
	}

	_, err := ParseLevel("loud")
	r.ErrorContains(err, `"loud"`)
}

func TestNew(t *testing.T) {
	r := require.New(t)

	l, err := New("test", "debug", true)
	r.NoError(err)
	r.True(l.Core().Enabled(zap.DebugLevel))

	l, err = New("test", "warn", false)
	r.NoError(err)
	r.False(l.Core().Enabled(zap.InfoLevel))

	_, err = New("test", "bogus", false)
	r.Error(err)
}

func TestNewWithDest(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	l := NewWithDest(&buf, "dest", zap.InfoLevel)
	l.Debug("hidden")
	l.Info("shown", zap.String("id", "A"))

	out := buf.String()
	r.NotContains(out, "hidden")
	r.Contains(out, "shown")
	r.Contains(out, "dest")
	r.Contains(out, `"id": "A"`)
}
