package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_RunsImmediatelyThenOnInterval(t *testing.T) {
	var runs int32
	r := New()
	require.NoError(t, r.Add("tick", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))

	r.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	r.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs), "no runs after Stop")
}

func TestRunner_AddValidation(t *testing.T) {
	r := New()
	assert.Error(t, r.Add("bad", 0, func(ctx context.Context) error { return nil }))

	r.Start(context.Background())
	defer r.Stop()
	assert.ErrorIs(t, r.Add("late", time.Second, func(ctx context.Context) error { return nil }), ErrStarted)
}

func TestRunner_FailingJobsKeepRunning(t *testing.T) {
	var errRuns, panicRuns int32
	r := New()
	require.NoError(t, r.Add("fails", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&errRuns, 1)
		return errors.New("nope")
	}))
	require.NoError(t, r.Add("panics", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&panicRuns, 1)
		panic("boom")
	}))

	r.Start(context.Background())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&errRuns) >= 2 && atomic.LoadInt32(&panicRuns) >= 2
	}, time.Second, 5*time.Millisecond)
	r.Stop()
}

func TestRunner_StopCancelsJobContext(t *testing.T) {
	started := make(chan struct{})
	var cancelled int32
	r := New()
	require.NoError(t, r.Add("blocks", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		atomic.StoreInt32(&cancelled, 1)
		return ctx.Err()
	}))

	r.Start(context.Background())
	<-started
	r.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled))
}

func TestRunner_StopWithoutStart(t *testing.T) {
	assert.NotPanics(t, New().Stop)
}

func TestRunner_ParentContextEndsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	r := New()
	require.NoError(t, r.Add("tick", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	r.Start(ctx)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 1 }, time.Second, time.Millisecond)
	cancel()
	r.Stop()
}
