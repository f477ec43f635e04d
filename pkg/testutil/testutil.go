// Package testutil provides testing utilities for nebulaframe
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger returns a logger that records entries at level and above
// for later assertions.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// RequireTableEqual fails the test when the tables differ in names, kinds,
// row count or cell values. The schemas are printed on failure.
func RequireTableEqual(t *testing.T, expected, actual *frame.Table) {
	t.Helper()
	require.NotNil(t, actual)
	if !expected.Equal(actual) {
		t.Fatalf("tables differ\nexpected (%d rows):\n%s\nactual (%d rows):\n%s\nexpected key: %s\nactual key:   %s",
			expected.NumRows(), expected.Schema(), actual.NumRows(), actual.Schema(),
			frame.Key(expected), frame.Key(actual))
	}
}

// Values resolves the value column at the dotted path and returns its
// values.
func Values(t *testing.T, tbl *frame.Table, path string) []any {
	t.Helper()
	return ValueColumn(t, tbl, path).Values()
}

// ValueColumn resolves the value column at the dotted path.
func ValueColumn(t *testing.T, tbl *frame.Table, path string) *frame.ValueColumn {
	t.Helper()
	c, err := tbl.Resolve(frame.ParsePath(path))
	require.NoError(t, err)
	vc, ok := c.(*frame.ValueColumn)
	require.Truef(t, ok, "%s is a %s column", path, c.Kind())
	return vc
}

// FrameColumn resolves the frame column at the dotted path.
func FrameColumn(t *testing.T, tbl *frame.Table, path string) *frame.FrameColumn {
	t.Helper()
	c, err := tbl.Resolve(frame.ParsePath(path))
	require.NoError(t, err)
	fc, ok := c.(*frame.FrameColumn)
	require.Truef(t, ok, "%s is a %s column", path, c.Kind())
	return fc
}
