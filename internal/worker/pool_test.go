package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolWaitsForSubmittedWork(t *testing.T) {
	pool := NewPool(2)
	var completed atomic.Int32

	for i := 0; i < 6; i++ {
		require.NoError(t, pool.Submit(context.Background(), "event", func(context.Context) {
			time.Sleep(10 * time.Millisecond)
			completed.Add(1)
		}))
	}

	pool.Wait()
	require.EqualValues(t, 6, completed.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(3)
	var running, peak atomic.Int32

	for i := 0; i < 12; i++ {
		require.NoError(t, pool.Submit(context.Background(), "event", func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}

	pool.Wait()
	require.LessOrEqual(t, peak.Load(), int32(3))
	require.Equal(t, 3, pool.Size())
}

func TestPoolSubmitHonorsContextCancelWhenFull(t *testing.T) {
	pool := NewPool(1)
	started := make(chan struct{})
	block := make(chan struct{})

	require.NoError(t, pool.Submit(context.Background(), "blocker", func(context.Context) {
		close(started)
		<-block
	}))
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, pool.Submit(ctx, "late", func(context.Context) {}), context.Canceled)

	close(block)
	pool.Wait()
}

func TestPoolSurvivesPanics(t *testing.T) {
	pool := NewPool(1)

	require.NoError(t, pool.Submit(context.Background(), "boom", func(context.Context) {
		panic("boom")
	}))

	var ran atomic.Bool
	require.NoError(t, pool.Submit(context.Background(), "after", func(context.Context) {
		ran.Store(true)
	}))

	pool.Wait()
	require.True(t, ran.Load())
}

func TestNewPoolMinimumSize(t *testing.T) {
	require.Equal(t, 1, NewPool(0).Size())
}
