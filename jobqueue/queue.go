package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Job is a unit of work executed by the queue. Jobs receive a background
// context: once a job starts it runs to completion or failure and is never
// cancelled from outside.
type Job func(ctx context.Context) error

// Ticket is the future returned by Enqueue. Err is meaningful only after
// Done is closed; Wait combines both.
type Ticket struct {
	done chan struct{}
	err  error
}

// Done returns a channel closed when the job has settled.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err returns the job's error. It must only be consulted after Done is
// closed; before that it always returns nil.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the job settles or ctx expires. Giving up on the wait
// does not stop the job; it still runs and counts toward queue stats.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time view of queue state.
type Stats struct {
	Pending   int
	Active    bool
	Completed uint64
	Failed    uint64
}

// Option configures a Queue.
type Option func(*Queue) error

// WithLogger sets a custom logger for the queue.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		q.logger = logger
		return nil
	}
}

// Queue executes jobs strictly one at a time, in arrival order. A job's
// failure settles only that job's ticket; the queue keeps draining. There is
// no priority, no cancellation and no timeout: a job that hangs stalls the
// queue indefinitely.
//
// The ordering guarantee is the point: all side effects of job N are visible
// before job N+1 starts, no matter how many goroutines call Enqueue.
type Queue struct {
	logger *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	pending   []*queuedJob
	active    bool
	closed    bool
	completed uint64
	failed    uint64

	drained chan struct{}
}

type queuedJob struct {
	job    Job
	ticket *Ticket
}

// New creates a queue and starts its drain goroutine.
func New(opts ...Option) (*Queue, error) {
	q := &Queue{
		logger:  slog.Default(),
		drained: make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, fmt.Errorf("invalid queue option: %w", err)
		}
	}
	q.cond = sync.NewCond(&q.mu)

	go q.drain()

	return q, nil
}

// Enqueue appends a job and returns its ticket. Arrival order is the order
// in which Enqueue calls land, including from concurrent callers.
func (q *Queue) Enqueue(job Job) (*Ticket, error) {
	if job == nil {
		return nil, ErrNilJob
	}

	ticket := &Ticket{done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	q.pending = append(q.pending, &queuedJob{job: job, ticket: ticket})
	q.mu.Unlock()

	q.cond.Signal()
	return ticket, nil
}

// Len returns the number of jobs waiting to run. The currently running job,
// if any, is not counted.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Active reports whether a job is running right now.
func (q *Queue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Stats returns cumulative counters alongside current queue state.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:   len(q.pending),
		Active:    q.active,
		Completed: q.completed,
		Failed:    q.failed,
	}
}

// Close stops intake, drains every already-enqueued job, then returns.
// Safe to call more than once.
func (q *Queue) Close() error {
	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.mu.Unlock()

	if !alreadyClosed {
		q.cond.Broadcast()
	}
	<-q.drained
	return nil
}

func (q *Queue) drain() {
	defer close(q.drained)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.active = true
		q.mu.Unlock()

		err := q.run(next.job)

		q.mu.Lock()
		q.active = false
		if err != nil {
			q.failed++
		} else {
			q.completed++
		}
		q.mu.Unlock()

		// Settle the ticket before the next job is picked up, so a waiter
		// released here observes every side effect of its own job.
		next.ticket.err = err
		close(next.ticket.done)
	}
}

func (q *Queue) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
			q.logger.Error("recovered panicking job", "panic", r)
		}
	}()
	return job(context.Background())
}
