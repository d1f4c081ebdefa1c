package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ict-ryuma/document-ocr/constants"
)

var _ Queue = (*ImportQueue)(nil)

// ImportQueue runs imports on a fixed pool of workers.
type ImportQueue struct {
	importer Importer
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onDone   func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ImportQueue)

func WithWorkers(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *ImportQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked from worker goroutines after each job.
func WithOnDone(fn func(Result)) Option {
	return func(q *ImportQueue) {
		q.onDone = fn
	}
}

func NewImportQueue(importer Importer, logger *slog.Logger, opts ...Option) *ImportQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ImportQueue{
		importer: importer,
		logger:   logger,
		workers:  4,
		timeout:  5 * time.Minute,
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ImportQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ImportQueue) process(workerID int, job Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	res, err := q.importer.Import(ctx, job.Path, job.VendorName)
	cancel()

	out := Result{Job: job, Status: constants.JobStatusSaved, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		out.Status = constants.JobStatusFailed
		q.logger.Error("async.import.failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", err)
	} else {
		out.EstimateID = res.EstimateID
		out.Items = len(res.Result.Items)
		out.Method = res.Result.Method
		q.logger.Info("async.import.ok",
			"worker_id", workerID,
			"job_id", job.ID,
			"path", job.Path,
			"estimate_id", res.EstimateID,
			"elapsed_ms", out.Elapsed.Milliseconds(),
		)
	}
	if q.onDone != nil {
		q.onDone(out)
	}
}

// Enqueue assigns the job an ID if it has none and hands it to a worker. It
// blocks while the buffer is full, until ctx is done.
func (q *ImportQueue) Enqueue(ctx context.Context, job Job) (uuid.UUID, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return uuid.Nil, ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.import.queued", "job_id", job.ID, "path", job.Path)
		return job.ID, nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return job.ID, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain.
func (q *ImportQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
		return ctx.Err()
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
		return nil
	}
}
