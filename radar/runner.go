package radar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"productradar/models"
	"productradar/pkg/metrics"
	"productradar/radar/collector"
	"productradar/radar/config"
	"productradar/radar/session"
	"productradar/radar/sheet"
	"productradar/radar/storage"
	"productradar/translate"
)

// JobRunner executes queued scrape jobs. Each job gets its own browser
// session so a crashed or blocked session never poisons the next job.
type JobRunner struct {
	cfg    config.Config
	store  *storage.MongoStorage
	cells  sheet.CellAPI
	logger *zap.Logger
}

func NewJobRunner(cfg config.Config, store *storage.MongoStorage, cells sheet.CellAPI, logger *zap.Logger) *JobRunner {
	if logger == nil {
		logger = zap.L()
	}
	return &JobRunner{cfg: cfg, store: store, cells: cells, logger: logger}
}

// Run drives one job through the full pipeline and records its lifecycle in
// the job archive.
func (r *JobRunner) Run(ctx context.Context, job *models.ScrapeJob) error {
	r.setStatus(ctx, job, models.JobRunning, "")

	if err := r.run(ctx, job); err != nil {
		r.setStatus(ctx, job, models.JobFailed, err.Error())
		return err
	}
	r.setStatus(ctx, job, models.JobDone, "")
	return nil
}

func (r *JobRunner) run(ctx context.Context, job *models.ScrapeJob) error {
	sess, err := session.Open(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %v", err)
	}
	defer sess.Close()

	if err := sess.EnsureLoggedIn(ctx); err != nil {
		return fmt.Errorf("failed to establish session: %v", err)
	}

	coll := collector.New(r.cfg.MinImpressions, r.cfg.MaxAgeDays, r.cfg.MaxCards, r.cfg.VideosPerRow, r.logger)
	writer := sheet.NewWriter(r.cells, r.cfg.DraftSheet, r.cfg.SuccessSheet, r.logger)

	var translator translate.Translator = translate.Noop{}
	if r.cfg.OpenAIKey != "" {
		translator = translate.NewOpenAI(r.cfg.OpenAIKey, "", r.logger)
	}

	maxProducts := r.cfg.MaxProducts
	if job.MaxItems > 0 {
		maxProducts = job.MaxItems
	}

	scrapeMetrics := metrics.NewScrapeMetrics(metrics.NewSimpleMetricsCollector(r.logger))
	miner := NewLiveMiner(sess, coll, scrapeMetrics, r.logger)
	var archive Archiver
	if r.store != nil {
		archive = r.store
	}
	pipe := NewPipeline(miner, coll, writer, translator, archive, scrapeMetrics, maxProducts, r.logger)

	listing := job.URL
	if listing == "" {
		listing = r.cfg.DashboardURL
	}
	return pipe.Run(ctx, listing)
}

// RunOnce performs a single scrape of the configured listing without the
// service machinery: no queue, no job archive.
func RunOnce(ctx context.Context, cfg config.Config, listingURL string) error {
	cells, err := sheet.NewGoogleCells(ctx, cfg.CredentialsFile, cfg.SpreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to connect to spreadsheet: %v", err)
	}

	runner := NewJobRunner(cfg, nil, cells, zap.L())
	job := &models.ScrapeJob{
		ID:        "local",
		URL:       listingURL,
		Status:    models.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	return runner.Run(ctx, job)
}

func (r *JobRunner) setStatus(ctx context.Context, job *models.ScrapeJob, status, errMsg string) {
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
	if r.store == nil {
		return
	}
	if err := r.store.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
		r.logger.Warn("failed to update job status",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}
