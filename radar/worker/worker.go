// Package worker runs queued scrape jobs. One worker per browser session:
// the page is exclusively-owned mutable state, so a job never shares a
// session with another.
package worker

import (
	"context"

	"go.uber.org/zap"

	"productradar/models"
)

// Runner executes one scrape job end to end.
type Runner interface {
	Run(ctx context.Context, job *models.ScrapeJob) error
}

type Worker struct {
	jobs   <-chan *models.ScrapeJob
	runner Runner
	stop   chan struct{}
}

func NewWorker(jobs <-chan *models.ScrapeJob, runner Runner) *Worker {
	return &Worker{
		jobs:   jobs,
		runner: runner,
		stop:   make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			select {
			case job, ok := <-w.jobs:
				if !ok {
					return
				}
				if err := w.runner.Run(context.Background(), job); err != nil {
					zap.L().Error("worker failed to process job",
						zap.String("job_id", job.ID), zap.Error(err))
					continue
				}
				zap.L().Info("worker processed job", zap.String("job_id", job.ID))
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.stop)
}
