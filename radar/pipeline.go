// Package radar wires the scrape pipeline: discover products, collect and
// rank their ad candidates, extract records, and persist rows to the sheet.
package radar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"productradar/models"
	"productradar/pkg/metrics"
	"productradar/radar/collector"
	"productradar/radar/sheet"
	"productradar/translate"
)

// Miner is the browser-facing surface of the pipeline. The live
// implementation drives one playwright session; tests substitute fixtures.
type Miner interface {
	Products(ctx context.Context, listingURL string, max int) ([]models.ProductPage, error)
	Candidates(ctx context.Context, product models.ProductPage) ([]models.AdCandidate, error)
	Record(ctx context.Context, cand models.AdCandidate) (models.VideoRecord, error)
}

// Archiver persists finished results; nil disables archiving.
type Archiver interface {
	SaveResult(ctx context.Context, result *models.ProductResult) error
}

// Pipeline runs one listing URL end to end.
type Pipeline struct {
	miner      Miner
	collector  *collector.Collector
	writer     *sheet.Writer
	translator translate.Translator
	archive    Archiver
	metrics    *metrics.ScrapeMetrics
	logger     *zap.Logger

	maxProducts int
}

func NewPipeline(
	miner Miner,
	coll *collector.Collector,
	writer *sheet.Writer,
	translator translate.Translator,
	archive Archiver,
	scrapeMetrics *metrics.ScrapeMetrics,
	maxProducts int,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if translator == nil {
		translator = translate.Noop{}
	}
	if scrapeMetrics == nil {
		scrapeMetrics = metrics.NewScrapeMetrics(metrics.NewSimpleMetricsCollector(zap.NewNop()))
	}
	return &Pipeline{
		miner:       miner,
		collector:   coll,
		writer:      writer,
		translator:  translator,
		archive:     archive,
		metrics:     scrapeMetrics,
		logger:      logger,
		maxProducts: maxProducts,
	}
}

// Run processes up to maxProducts products from the listing. Per-product
// failures are logged and skipped; the run only fails when the listing
// itself cannot be read.
func (p *Pipeline) Run(ctx context.Context, listingURL string) error {
	start := time.Now()
	products, err := p.miner.Products(ctx, listingURL, p.maxProducts)
	if err != nil {
		return fmt.Errorf("failed to discover products: %v", err)
	}
	p.logger.Info("run started",
		zap.String("listing", listingURL),
		zap.Int("products", len(products)))

	var written, promoted int
	for _, product := range products {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		complete, err := p.processProduct(ctx, product)
		if err != nil {
			p.logger.Warn("product skipped",
				zap.String("product", product.URL), zap.Error(err))
			continue
		}
		written++
		if complete {
			promoted++
		}
	}

	p.logger.Info("run finished",
		zap.Int("products", len(products)),
		zap.Int("rows_written", written),
		zap.Int("rows_promoted", promoted),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// processProduct takes one product through candidates, extraction, writing
// and promotion. Returns whether the row ended up complete and promoted.
func (p *Pipeline) processProduct(ctx context.Context, product models.ProductPage) (bool, error) {
	candidates, err := p.miner.Candidates(ctx, product)
	if err != nil {
		return false, fmt.Errorf("failed to collect candidates: %v", err)
	}
	kept := p.collector.FilterAndRank(candidates)
	p.metrics.RecordCardsCollected(len(candidates), len(kept))
	p.logger.Info("candidates ranked",
		zap.String("product", product.Name),
		zap.Int("collected", len(candidates)),
		zap.Int("kept", len(kept)))

	videos := make([]models.VideoRecord, 0, len(kept))
	for _, cand := range kept {
		rec, err := p.miner.Record(ctx, cand)
		if err != nil {
			// the slot survives as a sentinel record
			p.logger.Warn("record extraction failed",
				zap.Int("card", cand.CardIndex), zap.Error(err))
			p.metrics.RecordRecordExtracted(false)
			videos = append(videos, models.EmptyVideoRecord())
			continue
		}
		p.metrics.RecordRecordExtracted(true)
		videos = append(videos, p.translated(ctx, rec))
	}

	result := &models.ProductResult{Product: product, Videos: videos}
	row, err := p.writer.WriteResult(ctx, result)
	if err != nil {
		return false, fmt.Errorf("failed to write row: %v", err)
	}
	result.Row = row

	complete, err := p.writer.IsRowComplete(ctx, row)
	if err != nil {
		p.logger.Warn("completeness check failed", zap.Int("row", row), zap.Error(err))
		complete = false
	}
	p.metrics.RecordRowWritten(complete)

	if complete {
		if _, err := p.writer.PromoteRow(ctx, row); err != nil {
			p.logger.Warn("promotion failed", zap.Int("row", row), zap.Error(err))
			complete = false
		} else {
			p.metrics.RecordRowPromoted()
		}
	} else {
		p.logger.Info("row left in draft", zap.Int("row", row))
	}

	if p.archive != nil {
		if err := p.archive.SaveResult(ctx, result); err != nil {
			p.logger.Warn("failed to archive result",
				zap.String("product", product.URL), zap.Error(err))
		}
	}
	return complete, nil
}

// translated runs the script and hook through the translator; failures keep
// the original text.
func (p *Pipeline) translated(ctx context.Context, rec models.VideoRecord) models.VideoRecord {
	if out, err := p.translator.Translate(ctx, rec.Script, "video script"); err == nil {
		rec.Script = out
	} else {
		p.logger.Debug("script translation failed", zap.Error(err))
	}
	if out, err := p.translator.Translate(ctx, rec.Hook, "hook"); err == nil {
		rec.Hook = out
	} else {
		p.logger.Debug("hook translation failed", zap.Error(err))
	}
	return rec
}
