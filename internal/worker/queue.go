// Package worker provides a sequential job queue for pipeline work.
//
// Scene generation is deliberately one-at-a-time: a single ffmpeg encode or
// provider batch in flight bounds disk usage and API pressure, and two
// requests can no longer interleave file operations inside the same session
// directory. The queue keeps submission order.
package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type job struct {
	id   string
	fn   func() error
	done chan error
}

// Queue executes submitted jobs one at a time, in submission order.
type Queue struct {
	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup
	log  *logrus.Logger
}

// NewQueue creates a queue accepting up to size waiting jobs.
func NewQueue(size int, log *logrus.Logger) *Queue {
	return &Queue{
		jobs: make(chan job, size),
		quit: make(chan struct{}),
		log:  log,
	}
}

// Start launches the single worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.run()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case j := <-q.jobs:
			q.log.WithField("job_id", j.id).Info("Job started")
			err := j.fn()
			if err != nil {
				q.log.WithField("job_id", j.id).WithError(err).Error("Job failed")
			} else {
				q.log.WithField("job_id", j.id).Info("Job finished")
			}
			j.done <- err
		case <-q.quit:
			return
		}
	}
}

// Do submits fn and blocks until it has run or ctx is cancelled. A cancelled
// caller abandons the job; the worker still finishes it.
func (q *Queue) Do(ctx context.Context, id string, fn func() error) error {
	j := job{id: id, fn: fn, done: make(chan error, 1)}

	select {
	case q.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the worker down after its current job completes.
func (q *Queue) Stop() {
	close(q.quit)
	q.wg.Wait()
	q.log.Info("Worker queue stopped")
}
