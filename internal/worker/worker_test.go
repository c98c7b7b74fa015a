package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func counting(n *atomic.Int64) ProcessFunc[string] {
	return func(ctx context.Context, id string) error {
		n.Add(1)
		return nil
	}
}

func TestStopDrainsQueuedJobs(t *testing.T) {
	var handled atomic.Int64
	pool := NewPool("ingest", 2, 10, counting(&handled))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for _, id := range []string{"HR-1", "HR-2", "HR-3", "HR-4", "HR-5"} {
		require.NoError(t, pool.Submit(ctx, id))
	}
	pool.Stop()

	assert.EqualValues(t, 5, handled.Load())
	ok, failed := pool.Stats()
	assert.EqualValues(t, 5, ok)
	assert.Zero(t, failed)
}

func TestSubmitFromManyGoroutines(t *testing.T) {
	var handled atomic.Int64
	pool := NewPool("ingest", 4, 16, counting(&handled))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pool.Submit(ctx, "HR"))
		}()
	}
	wg.Wait()
	pool.Stop()

	assert.EqualValues(t, 100, handled.Load())
}

func TestFailedJobsAreCounted(t *testing.T) {
	pool := NewPool("ingest", 1, 10, func(ctx context.Context, n int) error {
		if n%3 == 0 {
			return errors.New("invalid record")
		}
		return nil
	})
	pool.Start(context.Background())

	for i := 0; i < 9; i++ {
		require.NoError(t, pool.Submit(context.Background(), i))
	}
	pool.Stop()

	ok, failed := pool.Stats()
	assert.EqualValues(t, 6, ok)
	assert.EqualValues(t, 3, failed)
}

func TestSubmitAfterStop(t *testing.T) {
	var handled atomic.Int64
	pool := NewPool("ingest", 1, 1, counting(&handled))
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	err := pool.Submit(context.Background(), "HR-late")
	assert.ErrorIs(t, err, ErrStopped)
	assert.Zero(t, handled.Load())
}

func TestSubmitGivesUpWithContext(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool("ingest", 1, 0, func(ctx context.Context, id string) error {
		<-release
		return nil
	})
	pool.Start(context.Background())

	// occupies the only worker
	require.NoError(t, pool.Submit(context.Background(), "HR-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Submit(ctx, "HR-2"), context.DeadlineExceeded)

	close(release)
	pool.Stop()
}

func TestStopAfterCancelReturns(t *testing.T) {
	pool := NewPool("ingest", 2, 50, func(ctx context.Context, id string) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(ctx, "HR"))
	}
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after cancel")
	}
}
