package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	var expired, synced atomic.Int32
	s := New(zap.New(core),
		Job{
			Name:     "expire",
			Interval: 5 * time.Millisecond,
			Run: func(ctx context.Context) (usecase.SweepResult, error) {
				expired.Add(1)
				return usecase.SweepResult{Total: 1, Succeeded: 1}, nil
			},
		},
		Job{
			Name:     "sync",
			Interval: 5 * time.Millisecond,
			Run: func(ctx context.Context) (usecase.SweepResult, error) {
				synced.Add(1)
				return usecase.SweepResult{}, usecase.ErrSweepRunning
			},
		},
		Job{Name: "disabled"},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.Positive(t, expired.Load())
	assert.Positive(t, synced.Load())

	assert.Equal(t, 1, logs.FilterMessage("scheduler job disabled").Len())
	assert.Positive(t, logs.FilterMessage("scheduler job done").Len())
	assert.Positive(t, logs.FilterMessage("scheduler job skipped, previous run still in progress").Len())
	assert.Zero(t, logs.FilterMessage("scheduler job failed").Len())
}

func TestScheduler_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(zap.New(core))

	s.runOnce(context.Background(), Job{
		Name: "sync",
		Run: func(ctx context.Context) (usecase.SweepResult, error) {
			return usecase.SweepResult{}, errors.New("db down")
		},
	})

	entries := logs.FilterMessage("scheduler job failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sync", entries[0].ContextMap()["job"])
	assert.Equal(t, "db down", entries[0].ContextMap()["error"])
}
