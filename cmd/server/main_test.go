package main

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	clarify "leadgate/internal/clarify/models"
	clarifystore "leadgate/internal/clarify/store"
	"leadgate/pkg/platform/sentinel"
)

type countingLimiter struct {
	sweeps atomic.Int64
}

func (c *countingLimiter) Sweep() { c.sweeps.Add(1) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// The limiter must be reaped even when sessions live in Redis and no
// in-memory session store exists.
func TestSweeperReapsLimiterWithoutSessionStore(t *testing.T) {
	limiter := &countingLimiter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runSweeper(ctx, time.Millisecond, limiter, nil, discardLogger())
	}()

	require.Eventually(t, func() bool {
		return limiter.sweeps.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestSweeperReapsExpiredSessions(t *testing.T) {
	sessions := clarifystore.NewMemory()
	sess := &clarify.Session{
		ID:        "sess-sweep",
		Status:    clarify.SessionActive,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, sessions.Create(context.Background(), sess))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = runSweeper(ctx, time.Millisecond, &countingLimiter{}, sessions, discardLogger())
	}()

	require.Eventually(t, func() bool {
		_, err := sessions.Get(context.Background(), "sess-sweep")
		return sentinel.IsNotFound(err)
	}, time.Second, time.Millisecond)
}
