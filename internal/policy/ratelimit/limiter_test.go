package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rsr-sign-scraper/internal/metrics"
)

func TestLimiterFirstWaitIsDelayed(t *testing.T) {
	metrics.Init()

	l := New(Config{Interval: 60 * time.Millisecond})
	require.Equal(t, 60*time.Millisecond, l.Interval())

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiterSpacing(t *testing.T) {
	metrics.Init()

	// 10 requests per second = 100ms interval.
	l := New(Config{Interval: 100 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiterDisabled(t *testing.T) {
	metrics.Init()

	l := New(Config{})
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterHonoursContext(t *testing.T) {
	metrics.Init()

	l := New(Config{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, l.Wait(ctx))
}
