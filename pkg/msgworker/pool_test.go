package msgworker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesJobs(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start(context.Background())

	var processed int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		ok := pool.TryDispatch(Job{
			ChatJID: "a@s.whatsapp.net",
			Handler: func(ctx context.Context) error {
				atomic.AddInt64(&processed, 1)
				wg.Done()
				return nil
			},
		})
		require.True(t, ok)
	}

	wg.Wait()
	pool.Stop()

	assert.Equal(t, int64(8), atomic.LoadInt64(&processed))
	stats := pool.Stats()
	assert.Equal(t, int64(8), stats.TotalDispatched)
	assert.Equal(t, int64(8), stats.TotalProcessed)
	assert.Equal(t, int64(0), stats.TotalDropped)
}

func TestPoolPreservesPerChatOrder(t *testing.T) {
	pool := NewPool(4, 50)
	pool.Start(context.Background())

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		pool.Dispatch(Job{
			ChatJID: "ordered@g.us",
			Handler: func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				wg.Done()
				return nil
			},
		})
	}

	wg.Wait()
	pool.Stop()

	require.Len(t, order, 20)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start(context.Background())
	defer pool.Stop()

	release := make(chan struct{})
	blocker := Job{
		ChatJID: "x@s.whatsapp.net",
		Handler: func(ctx context.Context) error {
			<-release
			return nil
		},
	}
	require.True(t, pool.TryDispatch(blocker))

	// Fill the single queue slot, then overflow it.
	deadline := time.After(time.Second)
	filled := false
	for !filled {
		select {
		case <-deadline:
			t.Fatal("queue never filled")
		default:
			if !pool.TryDispatch(blocker) {
				filled = true
			}
		}
	}
	close(release)

	assert.GreaterOrEqual(t, pool.Stats().TotalDropped, int64(1))
}

func TestPoolRejectsAfterStop(t *testing.T) {
	pool := NewPool(1, 5)
	pool.Start(context.Background())
	pool.Stop()

	ok := pool.TryDispatch(Job{ChatJID: "y@s.whatsapp.net", Handler: func(ctx context.Context) error { return nil }})
	assert.False(t, ok)
}
