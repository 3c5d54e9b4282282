package worker

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/okian/saferoute/internal/domain/scoring"
	"github.com/okian/saferoute/pkg/metrics"
)

// job is a contiguous run of points from one ScoreAll call. Workers write
// scores into out, which aliases the caller's result slice.
type job struct {
	ctx       context.Context
	incidents scoring.Incidents
	points    []orb.Point
	out       []int
	done      chan<- error
	enqueued  time.Time
}

// jobQueue is a bounded channel of jobs. Enqueue blocks while the buffer is
// full; Close stops intake and lets workers drain what is left.
type jobQueue struct {
	jobs   chan job
	mu     sync.RWMutex
	closed bool
}

func newJobQueue(size int) *jobQueue {
	metrics.UpdateWorkerQueuedJobs(0)
	return &jobQueue{jobs: make(chan job, size)}
}

// Enqueue adds j, waiting for buffer space until ctx is done.
func (q *jobQueue) Enqueue(ctx context.Context, j job) error { //nolint:gocritic // hugeParam: job is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("worker", "closed")
		return ErrStopped
	}

	select {
	case q.jobs <- j:
		metrics.UpdateWorkerQueuedJobs(len(q.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue returns the channel workers consume. It is closed by Close.
func (q *jobQueue) Dequeue() <-chan job {
	return q.jobs
}

// Len returns the number of buffered jobs.
func (q *jobQueue) Len() int {
	return len(q.jobs)
}

// Close stops intake. It waits for in-flight Enqueue calls, so workers must
// still be draining when it is called.
func (q *jobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *jobQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
