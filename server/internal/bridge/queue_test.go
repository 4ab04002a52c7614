package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, q *Queue[int], n int) []int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := q.Dequeue(ctx)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestQueue_FIFO(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 5000; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, 5000, q.Len())

	got := drain(t, q, 5000)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := New[int](0)
	done := make(chan int, 1)
	go func() {
		v, err := q.Dequeue(context.Background())
		if err == nil {
			done <- v
		}
	}()

	select {
	case <-done:
		t.Fatal("Dequeue returned on an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Enqueue(42))
	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("Dequeue did not wake after Enqueue")
	}
}

func TestQueue_ConcurrentProducerKeepsOrder(t *testing.T) {
	q := New[int](0)
	const n = 10000

	go func() {
		for i := 0; i < n; i++ {
			_ = q.Enqueue(i)
		}
	}()

	got := drain(t, q, n)
	for i, v := range got {
		require.Equal(t, i, v, "position %d", i)
	}
}

func TestQueue_ManyProducersLoseNothing(t *testing.T) {
	q := New[int](0)
	const producers, per = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				_ = q.Enqueue(p*per + i)
			}
		}(p)
	}

	got := drain(t, q, producers*per)
	wg.Wait()

	// Each producer's own items stay in order.
	last := make(map[int]int)
	for _, v := range got {
		p := v / per
		if prev, ok := last[p]; ok {
			require.Greater(t, v, prev)
		}
		last[p] = v
	}
	assert.Len(t, last, producers)
}

func TestQueue_CloseRejectsEnqueue(t *testing.T) {
	q := New[int](0)
	q.Close()
	assert.ErrorIs(t, q.Enqueue(1), ErrClosed)
}

func TestQueue_CloseDrainsThenReportsClosed(t *testing.T) {
	q := New[int](0)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	q.Close()
	q.Close()

	assert.Equal(t, []int{1, 2}, drain(t, q, 2))
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_CloseWakesBlockedConsumer(t *testing.T) {
	q := New[int](0)
	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer not woken by Close")
	}
}

func TestQueue_ContextCancel(t *testing.T) {
	q := New[int](0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := New[int](3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Enqueue(i))
	}

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())
	assert.Equal(t, []int{3, 4, 5}, drain(t, q, 3))
}

func TestQueue_BoundedCompactsWithoutConsumer(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 10*compactThreshold; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, 2, q.Len())
	assert.LessOrEqual(t, len(q.items), 2*compactThreshold+2)
	assert.Equal(t, []int{10*compactThreshold - 2, 10*compactThreshold - 1}, drain(t, q, 2))
}
