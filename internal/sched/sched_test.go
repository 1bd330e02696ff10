package sched

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/utils"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a cron line", 30, func(ctx context.Context, days int) error { return nil }, testLogger())
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewAcceptsStandardSpec(t *testing.T) {
	s, err := New("0 6 * * *", 365, func(ctx context.Context, days int) error { return nil }, testLogger())
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestRunOnceRetriesTransientFailures(t *testing.T) {
	calls := 0
	s, err := New("@daily", 30, func(ctx context.Context, days int) error {
		calls++
		require.Equal(t, 30, days)
		if calls < 3 {
			return errors.New("upstream flake")
		}
		return nil
	}, testLogger())
	require.NoError(t, err)

	s.retry = utils.NewBackoff(time.Millisecond, 3)
	s.runOnce()
	require.Equal(t, 3, calls)
}

func TestRunOnceGivesUpAfterRetries(t *testing.T) {
	calls := 0
	s, err := New("@daily", 30, func(ctx context.Context, days int) error {
		calls++
		return errors.New("persistent failure")
	}, testLogger())
	require.NoError(t, err)

	s.retry = utils.NewBackoff(time.Millisecond, 3)
	s.runOnce()
	require.Equal(t, 3, calls, "a run that keeps failing waits for the next tick")
}
