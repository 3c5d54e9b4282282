// Package worker runs point scoring on a fixed set of long-lived goroutines
// so that concurrent route requests share one bounded amount of CPU.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/okian/saferoute/internal/domain/scoring"
	"github.com/okian/saferoute/pkg/logger"
	"github.com/okian/saferoute/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultChunkSize      = 16
	defaultQueueFactor    = 4 // queue slots per worker
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// worker scores jobs until the queue is closed and drained.
type worker struct {
	name      string
	queue     *jobQueue
	evaluator *scoring.Evaluator
	processed *atomic.Int64
	done      chan struct{}
	logger    logger.Logger
}

func (w *worker) run() {
	defer close(w.done)
	for j := range w.queue.Dequeue() {
		w.process(j)
	}
}

func (w *worker) process(j job) { //nolint:gocritic // hugeParam: job is passed by value for channel semantics
	defer func() {
		metrics.RecordWorkerJobLatency(float64(time.Since(j.enqueued).Microseconds()) / 1000)
	}()

	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}
	for i, p := range j.points {
		j.out[i] = w.evaluator.Score(p.Lat(), p.Lon(), j.incidents)
	}
	w.processed.Add(int64(len(j.points)))
	j.done <- nil
}

// Pool scores points on a fixed set of workers. It implements the
// aggregator's PointScorer.
type Pool struct {
	evaluator   *scoring.Evaluator
	workerCount int
	queueSize   int
	chunkSize   int

	queue   *jobQueue
	workers []*worker

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}

	processed         atomic.Int64
	lastProcessed     int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a pool that scores with evaluator. Workers do not run
// until Start.
func NewPool(evaluator *scoring.Evaluator, opts ...Option) *Pool {
	p := &Pool{
		evaluator:   evaluator,
		workerCount: runtime.NumCPU(),
		chunkSize:   defaultChunkSize,
		shutdown:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queueSize == 0 {
		p.queueSize = p.workerCount * defaultQueueFactor
	}
	if p.logger == nil {
		p.logger = logger.Named("worker-pool")
	}

	p.queue = newJobQueue(p.queueSize)
	p.workers = make([]*worker, p.workerCount)
	for i := range p.workers {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = &worker{
			name:      name,
			queue:     p.queue,
			evaluator: evaluator,
			processed: &p.processed,
			done:      make(chan struct{}),
			logger:    p.logger.Named(name),
		}
	}
	return p
}

// Start launches the workers. Calling it again has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for _, w := range p.workers {
			go w.run()
		}
		p.lastProcessedTime = time.Now()
		go p.startMetricsUpdater(ctx)
		p.started.Store(true)
		metrics.UpdateWorkerActiveCount(len(p.workers))
		p.logger.Info(ctx, "worker pool started",
			logger.Int("workers", len(p.workers)),
			logger.Int("queue_size", p.queueSize),
		)
	})
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return len(p.workers) }

// Processed returns the number of points scored so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// ScoreAll scores points and returns the scores in input order. It stops
// enqueueing once ctx is done and returns the context error.
func (p *Pool) ScoreAll(ctx context.Context, incidents scoring.Incidents, points []orb.Point) ([]int, error) {
	if !p.started.Load() {
		return nil, ErrNotStarted
	}
	out := make([]int, len(points))
	if len(points) == 0 {
		return out, nil
	}

	chunks := (len(points) + p.chunkSize - 1) / p.chunkSize
	done := make(chan error, chunks)
	now := time.Now()

	sent := 0
	for start := 0; start < len(points); start += p.chunkSize {
		end := min(start+p.chunkSize, len(points))
		err := p.queue.Enqueue(ctx, job{
			ctx:       ctx,
			incidents: incidents,
			points:    points[start:end],
			out:       out[start:end],
			done:      done,
			enqueued:  now,
		})
		if err != nil {
			return nil, fmt.Errorf("enqueue points: %w", err)
		}
		sent++
	}

	for i := 0; i < sent; i++ {
		select {
		case err := <-done:
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics(ctx)
		}
	}
}

func (p *Pool) updateMetrics(ctx context.Context) {
	now := time.Now()
	total := p.processed.Load()
	elapsed := now.Sub(p.lastProcessedTime).Seconds()
	metrics.UpdateWorkerQueuedJobs(p.queue.Len())
	if elapsed > 0 {
		p.logger.Debug(ctx, "worker pool throughput",
			logger.Float64("points_per_second", float64(total-p.lastProcessed)/elapsed),
			logger.Int("queued_jobs", p.queue.Len()),
		)
	}
	p.lastProcessed = total
	p.lastProcessedTime = now
}

// Stop shuts the pool down with the default timeout.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	_ = p.Shutdown(ctx)
}

// Shutdown stops intake, lets workers drain queued jobs and waits for them
// until ctx is done. Later ScoreAll calls fail with ErrStopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.shutdown)
		if cerr := p.queue.Close(); cerr != nil {
			p.logger.Error(ctx, "error closing job queue", logger.Error(cerr))
		}
		if !p.started.Load() {
			return
		}
		for _, w := range p.workers {
			select {
			case <-w.done:
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.String("worker", w.name))
				err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
				return
			}
		}
		metrics.UpdateWorkerActiveCount(0)
		p.logger.Info(ctx, "worker pool stopped", logger.Any("points_scored", p.processed.Load()))
	})
	return err
}
