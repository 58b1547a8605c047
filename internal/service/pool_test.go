package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(2, 4)
	p.Start(context.Background())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		require.True(t, p.TryAcquire())
		wg.Add(1)
		require.NoError(t, p.Enqueue(func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 5, ran.Load())
	require.NoError(t, p.Stop(context.Background()))
}

func TestPool_AdmissionIsBounded(t *testing.T) {
	p := NewPool(1, 1)
	p.Start(context.Background())

	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		require.True(t, p.TryAcquire())
		require.NoError(t, p.Enqueue(func(ctx context.Context) { <-release }))
	}
	assert.False(t, p.TryAcquire(), "running + queued capacity is exhausted")

	close(release)
	require.Eventually(t, func() bool {
		if p.TryAcquire() {
			p.Release()
			return true
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop(context.Background()))
}

func TestPool_StopCancelsRunningTasks(t *testing.T) {
	p := NewPool(1, 0)
	p.Start(context.Background())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	require.True(t, p.TryAcquire())
	require.NoError(t, p.Enqueue(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.True(t, sawCancel.Load())

	assert.False(t, p.TryAcquire())
}

func TestPool_NotStartedRefusesWork(t *testing.T) {
	p := NewPool(1, 1)
	assert.False(t, p.TryAcquire())
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Start(context.Background())

	require.True(t, p.TryAcquire())
	require.NoError(t, p.Stop(context.Background()))
	assert.ErrorIs(t, p.Enqueue(func(context.Context) {}), ErrPoolClosed)
}
