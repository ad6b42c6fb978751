package dispatch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSameKeyRunsInOrder(t *testing.T) {
	d := NewDispatcher(testLogger())

	var mu sync.Mutex
	var got []int
	var running, maxRunning int32

	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, d.Enqueue("user-1", func(ctx context.Context) {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			atomic.AddInt32(&running, -1)
		}))
	}

	require.NoError(t, d.Close(context.Background()))

	require.Len(t, got, 50)
	for i := range got {
		assert.Equal(t, i, got[i])
	}
	assert.Equal(t, int32(1), maxRunning)
}

func TestDifferentKeysRunInParallel(t *testing.T) {
	d := NewDispatcher(testLogger())

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Enqueue(fmt.Sprintf("user-%d", i), func(ctx context.Context) {
			started.Done()
			<-release
		}))
	}

	waited := make(chan struct{})
	go func() {
		started.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs for different keys did not start concurrently")
	}
	assert.Equal(t, 3, d.Active())

	close(release)
	require.NoError(t, d.Close(context.Background()))
	assert.Zero(t, d.Active())
}

func TestPanicDoesNotStopQueue(t *testing.T) {
	d := NewDispatcher(testLogger())

	var ran atomic.Bool
	require.NoError(t, d.Enqueue("k", func(ctx context.Context) { panic("boom") }))
	require.NoError(t, d.Enqueue("k", func(ctx context.Context) { ran.Store(true) }))

	require.NoError(t, d.Close(context.Background()))
	assert.True(t, ran.Load())
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(testLogger())
	require.NoError(t, d.Close(context.Background()))

	assert.ErrorIs(t, d.Enqueue("k", func(ctx context.Context) {}), ErrClosed)
}

func TestCloseTimeoutCancelsJobs(t *testing.T) {
	d := NewDispatcher(testLogger())

	require.NoError(t, d.Enqueue("k", func(ctx context.Context) {
		<-ctx.Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}
