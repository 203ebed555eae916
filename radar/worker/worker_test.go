package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"productradar/models"
)

type recordingRunner struct {
	mu   sync.Mutex
	ids  []string
	fail bool
}

func (r *recordingRunner) Run(_ context.Context, job *models.ScrapeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, job.ID)
	if r.fail {
		return errors.New("scrape failed")
	}
	return nil
}

func (r *recordingRunner) processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestQueueProcessesJobs(t *testing.T) {
	runner := &recordingRunner{}
	wq := NewWorkQueue(1, runner)

	wq.Enqueue(&models.ScrapeJob{ID: "a"})
	wq.Enqueue(&models.ScrapeJob{ID: "b"})

	assert.Eventually(t, func() bool {
		return len(runner.processed()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	wq.Stop()

	assert.Equal(t, []string{"a", "b"}, runner.processed())
}

func TestWorkerSurvivesJobFailure(t *testing.T) {
	runner := &recordingRunner{fail: true}
	wq := NewWorkQueue(1, runner)

	wq.Enqueue(&models.ScrapeJob{ID: "bad"})
	wq.Enqueue(&models.ScrapeJob{ID: "next"})

	assert.Eventually(t, func() bool {
		return len(runner.processed()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	wq.Stop()
}
