package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q, err := New()
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int

	const jobs = 20
	tickets := make([]*Ticket, 0, jobs)
	for i := 0; i < jobs; i++ {
		i := i
		ticket, err := q.Enqueue(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	for _, ticket := range tickets {
		require.NoError(t, ticket.Wait(context.Background()))
	}
	require.NoError(t, q.Close())

	require.Len(t, order, jobs)
	for i, got := range order {
		assert.Equal(t, i, got, "job %d ran out of order", i)
	}
}

func TestQueue_OneAtATime(t *testing.T) {
	q, err := New()
	require.NoError(t, err)

	var running atomic.Int32
	var overlapped atomic.Bool

	var tickets []*Ticket
	for i := 0; i < 50; i++ {
		ticket, err := q.Enqueue(func(ctx context.Context) error {
			if running.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	for _, ticket := range tickets {
		require.NoError(t, ticket.Wait(context.Background()))
	}
	require.NoError(t, q.Close())

	assert.False(t, overlapped.Load(), "two jobs ran at the same time")
}

func TestQueue_PerProducerOrderUnderConcurrentEnqueue(t *testing.T) {
	q, err := New()
	require.NoError(t, err)

	type event struct {
		producer int
		seq      int
	}

	var mu sync.Mutex
	var events []event

	const producers = 8
	const perProducer = 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := 0; s < perProducer; s++ {
				s := s
				_, err := q.Enqueue(func(ctx context.Context) error {
					mu.Lock()
					events = append(events, event{producer: p, seq: s})
					mu.Unlock()
					return nil
				})
				if err != nil {
					t.Errorf("Enqueue failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	require.NoError(t, q.Close())

	require.Len(t, events, producers*perProducer)

	// An earlier Enqueue from the same goroutine must have fully executed
	// before a later one starts, whatever the interleaving across producers.
	lastSeq := make(map[int]int)
	for p := 0; p < producers; p++ {
		lastSeq[p] = -1
	}
	for _, e := range events {
		assert.Equal(t, lastSeq[e.producer]+1, e.seq,
			"producer %d jobs ran out of order", e.producer)
		lastSeq[e.producer] = e.seq
	}
}

func TestQueue_FailureIsolation(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	boom := errors.New("boom")
	var thirdRan atomic.Bool

	first, err := q.Enqueue(func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	second, err := q.Enqueue(func(ctx context.Context) error { return boom })
	require.NoError(t, err)
	third, err := q.Enqueue(func(ctx context.Context) error {
		thirdRan.Store(true)
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, first.Wait(context.Background()))
	assert.ErrorIs(t, second.Wait(context.Background()), boom)
	assert.NoError(t, third.Wait(context.Background()))
	assert.True(t, thirdRan.Load(), "failure stopped the queue")

	stats := q.Stats()
	assert.Equal(t, uint64(2), stats.Completed)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestQueue_PanicIsolation(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	panicked, err := q.Enqueue(func(ctx context.Context) error {
		panic("kaboom")
	})
	require.NoError(t, err)
	after, err := q.Enqueue(func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	err = panicked.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobPanicked)
	assert.Contains(t, err.Error(), "kaboom")

	assert.NoError(t, after.Wait(context.Background()))
	assert.Equal(t, uint64(1), q.Stats().Failed)
}

func TestQueue_CloseDrainsPending(t *testing.T) {
	q, err := New()
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		_, err := q.Enqueue(func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, q.Close())
	assert.Equal(t, int32(10), ran.Load(), "Close returned before draining")

	_, err = q.Enqueue(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	// Close is idempotent.
	assert.NoError(t, q.Close())
}

func TestQueue_NilJob(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	_, err = q.Enqueue(nil)
	assert.ErrorIs(t, err, ErrNilJob)
}

func TestQueue_StatsAndLen(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	blocker, err := q.Enqueue(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)

	<-started
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(func(ctx context.Context) error { return nil })
		require.NoError(t, err)
	}

	assert.True(t, q.Active())
	assert.Equal(t, 3, q.Len())

	stats := q.Stats()
	assert.Equal(t, 3, stats.Pending)
	assert.True(t, stats.Active)
	assert.Equal(t, uint64(0), stats.Completed)

	close(release)
	require.NoError(t, blocker.Wait(context.Background()))
}

func TestTicket_WaitRespectsContext(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	release := make(chan struct{})
	ticket, err := q.Enqueue(func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ticket.Wait(ctx), context.DeadlineExceeded)

	// The job was not cancelled by the abandoned wait.
	assert.Nil(t, ticket.Err())
	close(release)
	assert.NoError(t, ticket.Wait(context.Background()))
	assert.NoError(t, ticket.Err())
}
