package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestEveryRejectsShortInterval(t *testing.T) {
	s, err := New(quietLogger())
	require.NoError(t, err)
	_, err = s.Every(context.Background(), 10*time.Millisecond, "prerender", func(context.Context) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shorter than 1s")
}

func TestEveryRunsImmediately(t *testing.T) {
	s, err := New(quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	id, err := s.Every(ctx, time.Hour, "prerender", func(context.Context) { calls.Add(1) })
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}
