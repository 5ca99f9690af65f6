package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/transcribe"
)

type worker struct {
	id     int
	queue  *Queue
	client *transcribe.Client
	log    *logrus.Entry
}

func (w *worker) run(ctx context.Context) {
	w.log.Info("pipeline: worker started")
	defer w.log.Info("pipeline: worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.queue.jobs:
			if !ok {
				return
			}
			atomic.AddInt32(&w.queue.metrics.ActiveWorkers, 1)
			w.process(ctx, job)
			atomic.AddInt32(&w.queue.metrics.ActiveWorkers, -1)
		}
	}
}

func (w *worker) process(ctx context.Context, job *Job) {
	start := time.Now()
	if job.OnStart != nil {
		job.OnStart()
	}

	procCtx, cancel := context.WithTimeout(ctx, w.queue.config.ProcessTimeout)
	defer cancel()

	var lastErr error
retry:
	for attempt := 0; attempt < w.queue.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(w.queue.config.RetryDelay):
			case <-procCtx.Done():
				lastErr = procCtx.Err()
				break retry
			}
		}

		result, err := w.transcribeWithTimeout(procCtx, job)
		if err == nil {
			atomic.AddInt32(&w.queue.metrics.QueueDepth, -1)
			atomic.AddInt64(&w.queue.metrics.JobsProcessed, 1)
			w.log.WithFields(logrus.Fields{
				"job_id":       job.ID,
				"process_time": time.Since(start),
				"segments":     len(result.Segments),
			}).Info("pipeline: job transcribed")
			if job.OnComplete != nil {
				job.OnComplete(*result)
			}
			return
		}
		lastErr = err
		w.log.WithError(err).WithFields(logrus.Fields{"job_id": job.ID, "attempt": attempt + 1}).Warn("pipeline: transcription attempt failed")
	}

	atomic.AddInt32(&w.queue.metrics.QueueDepth, -1)
	atomic.AddInt64(&w.queue.metrics.JobsFailed, 1)
	w.log.WithError(lastErr).WithField("job_id", job.ID).Error("pipeline: job failed after all retries")
	if job.OnError != nil {
		job.OnError(lastErr)
	}
}

func (w *worker) transcribeWithTimeout(ctx context.Context, job *Job) (*transcribe.Result, error) {
	resultCh := make(chan *transcribe.Result, 1)
	errCh := make(chan error, 1)

	go func() {
		result, err := w.client.Transcribe(job.Samples)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
