// Package pipeline hosts the worker pool that performs the one blocking
// operation in the system — the transcription HTTP round-trip — off the
// cooperative event loop.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/segment"
	"github.com/fankserver/voicepipe/internal/transcribe"
)

var (
	// ErrQueueFull is returned when the queue could not accept a job within
	// the submit timeout.
	ErrQueueFull = errors.New("pipeline: queue is full")
	// ErrQueueStopped is returned when Submit is called after Stop.
	ErrQueueStopped = errors.New("pipeline: queue has been stopped")
)

// Job carries one normalized batch chunk through transcription.
type Job struct {
	ID          string
	Device      string
	Samples     []float32
	SubmittedAt time.Time

	OnStart    func()
	OnComplete func(transcribe.Result)
	OnError    func(error)
}

// Config configures the worker pool.
type Config struct {
	WorkerCount    int
	QueueSize      int
	MaxRetries     int
	RetryDelay     time.Duration
	ProcessTimeout time.Duration
}

// DefaultConfig returns reasonable defaults for a local transcription
// endpoint.
func DefaultConfig() Config {
	return Config{
		WorkerCount:    2,
		QueueSize:      64,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		ProcessTimeout: 30 * time.Second,
	}
}

// Metrics tracks queue throughput.
type Metrics struct {
	JobsQueued    int64
	JobsProcessed int64
	JobsFailed    int64
	ActiveWorkers int32
	QueueDepth    int32
}

// Queue is a worker pool that transcribes jobs via a shared Client.
type Queue struct {
	jobs    chan *Job
	workers []*worker
	wg      sync.WaitGroup
	metrics Metrics
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
}

// New builds a Queue; call Start to spin up workers.
func New(config Config) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:   make(chan *Job, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		config: config,
	}
}

// Start launches config.WorkerCount workers, each calling client.Transcribe.
func (q *Queue) Start(client *transcribe.Client) {
	for i := 0; i < q.config.WorkerCount; i++ {
		w := &worker{id: i, queue: q, client: client, log: logrus.WithField("worker_id", i)}
		q.workers = append(q.workers, w)
		q.wg.Add(1)
		go func(w *worker) {
			defer q.wg.Done()
			w.run(q.ctx)
		}(w)
	}
	logrus.WithField("workers", q.config.WorkerCount).Info("pipeline: transcription queue started")
}

// Stop cancels all workers and waits for them to exit.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
	close(q.jobs)
	logrus.Info("pipeline: transcription queue stopped")
}

// Submit enqueues a job. It returns ErrQueueFull if the queue doesn't accept
// it within 100ms and ErrQueueStopped if the queue has already been
// cancelled.
func (q *Queue) Submit(batch segment.BatchChunk, onStart func(), onComplete func(transcribe.Result), onError func(error)) error {
	if q.ctx.Err() != nil {
		return ErrQueueStopped
	}

	job := &Job{
		ID:          uuid.New().String(),
		Device:      batch.Device,
		Samples:     batch.Samples,
		SubmittedAt: time.Now(),
		OnStart:     onStart,
		OnComplete:  onComplete,
		OnError:     onError,
	}

	atomic.AddInt64(&q.metrics.JobsQueued, 1)
	atomic.AddInt32(&q.metrics.QueueDepth, 1)

	select {
	case q.jobs <- job:
		return nil
	case <-time.After(100 * time.Millisecond):
		atomic.AddInt32(&q.metrics.QueueDepth, -1)
		atomic.AddInt64(&q.metrics.JobsFailed, 1)
		if job.OnError != nil {
			job.OnError(ErrQueueFull)
		}
		return ErrQueueFull
	case <-q.ctx.Done():
		return ErrQueueStopped
	}
}

// Snapshot returns a copy of the current metrics.
func (q *Queue) Snapshot() Metrics {
	return Metrics{
		JobsQueued:    atomic.LoadInt64(&q.metrics.JobsQueued),
		JobsProcessed: atomic.LoadInt64(&q.metrics.JobsProcessed),
		JobsFailed:    atomic.LoadInt64(&q.metrics.JobsFailed),
		ActiveWorkers: atomic.LoadInt32(&q.metrics.ActiveWorkers),
		QueueDepth:    atomic.LoadInt32(&q.metrics.QueueDepth),
	}
}
