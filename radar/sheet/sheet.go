// Package sheet persists product results to a spreadsheet and promotes
// finished rows. The backing store is eventually consistent and silently
// drops whole-row writes now and then, so every write is one cell at a time
// with a pause and a read-back check.
package sheet

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"productradar/models"
)

// CellAPI is the minimal spreadsheet surface the writer needs. The Google
// implementation lives in gsheets.go; tests use an in-memory fake.
type CellAPI interface {
	ReadCell(ctx context.Context, sheetName, cell string) (string, error)
	WriteCell(ctx context.Context, sheetName, cell, value string) error
}

const (
	// StartRow is the first data row; rows 1-2 hold the header and a
	// worked example that must never be overwritten.
	StartRow = 3

	// columns, 1-based: A ordinal, B product name, C reserved for an
	// external annotator, D category, E product link, then three video
	// slots of seven columns each (F-L, M-S, T-Z)
	colOrdinal  = 1
	colName     = 2
	colExcluded = 3
	colCategory = 4
	colLink     = 5
	firstSlot   = 6
	slotWidth   = 7
	lastCol     = 26

	// allocation scan gives up past this many rows
	maxScanRows = 2000
)

// Writer drives one spreadsheet with a draft area and a success area.
type Writer struct {
	api     CellAPI
	draft   string
	success string
	pause   time.Duration
	logger  *zap.Logger
}

func NewWriter(api CellAPI, draftSheet, successSheet string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		api:     api,
		draft:   draftSheet,
		success: successSheet,
		pause:   100 * time.Millisecond,
		logger:  logger,
	}
}

// WithPause overrides the post-write settle delay. Zero is only sensible
// against an in-memory backend.
func (w *Writer) WithPause(d time.Duration) *Writer {
	w.pause = d
	return w
}

// AllocateRow scans the ordinal column downward from the start row and
// returns the first empty row, appending past the last filled one.
func (w *Writer) AllocateRow(ctx context.Context) (int, error) {
	return w.allocateIn(ctx, w.draft)
}

func (w *Writer) allocateIn(ctx context.Context, sheetName string) (int, error) {
	for row := StartRow; row < StartRow+maxScanRows; row++ {
		value, err := w.api.ReadCell(ctx, sheetName, cellRef(colOrdinal, row))
		if err != nil {
			return 0, fmt.Errorf("failed to scan row %d: %v", row, err)
		}
		if value == "" {
			return row, nil
		}
	}
	return 0, fmt.Errorf("no free row within %d rows", maxScanRows)
}

// WriteResult persists one product and its videos. When the basic fields
// cannot be written (protected cells), it falls back to a fresh row carrying
// only the video fields. Returns the row that ended up holding the data.
func (w *Writer) WriteResult(ctx context.Context, result *models.ProductResult) (int, error) {
	row, err := w.AllocateRow(ctx)
	if err != nil {
		return 0, err
	}

	if err := w.WriteBasicFields(ctx, row, result.Product); err != nil {
		w.logger.Warn("basic fields rejected, falling back to video-only row",
			zap.Int("row", row), zap.Error(err))
		row, err = w.AllocateRow(ctx)
		if err != nil {
			return 0, err
		}
		if err := w.WriteVideoFields(ctx, row, result.Videos); err != nil {
			return 0, err
		}
		return row, nil
	}

	if err := w.WriteVideoFields(ctx, row, result.Videos); err != nil {
		return 0, err
	}
	return row, nil
}

// WriteBasicFields fills the product columns of a row.
func (w *Writer) WriteBasicFields(ctx context.Context, row int, product models.ProductPage) error {
	cells := map[int]string{
		colOrdinal:  fmt.Sprintf("%d", row-StartRow+1),
		colName:     orNA(product.Name),
		colCategory: orNA(product.Category),
		colLink:     orNA(product.URL),
	}
	for _, col := range []int{colOrdinal, colName, colCategory, colLink} {
		if err := w.writeCell(ctx, w.draft, col, row, cells[col]); err != nil {
			return err
		}
	}
	return nil
}

// WriteVideoFields fills up to three video slots of a row.
func (w *Writer) WriteVideoFields(ctx context.Context, row int, videos []models.VideoRecord) error {
	for slot := 0; slot < 3; slot++ {
		rec := models.EmptyVideoRecord()
		if slot < len(videos) {
			rec = videos[slot]
		}
		base := firstSlot + slot*slotWidth
		values := []string{
			orNA(rec.Link),
			orNA(rec.ImpressionsFmt),
			orNA(rec.Script),
			orNA(rec.Hook),
			orNA(rec.AudienceAge),
			orNA(rec.Country),
			orNA(rec.FirstSeen),
		}
		for i, value := range values {
			if err := w.writeCell(ctx, w.draft, base+i, row, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeCell performs the write-pause-verify cycle. A verification mismatch
// is logged, never fatal.
func (w *Writer) writeCell(ctx context.Context, sheetName string, col, row int, value string) error {
	ref := cellRef(col, row)
	if err := w.api.WriteCell(ctx, sheetName, ref, value); err != nil {
		return fmt.Errorf("failed to write %s!%s: %v", sheetName, ref, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.pause):
	}

	got, err := w.api.ReadCell(ctx, sheetName, ref)
	if err != nil {
		w.logger.Warn("cell read-back failed",
			zap.String("cell", ref), zap.Error(err))
		return nil
	}
	if got != value {
		w.logger.Warn("cell read-back mismatch",
			zap.String("cell", ref),
			zap.String("wrote", value),
			zap.String("read", got))
	}
	return nil
}

// IsRowComplete reports whether every column in A-Z except the reserved one
// holds a real value.
func (w *Writer) IsRowComplete(ctx context.Context, row int) (bool, error) {
	for col := colOrdinal; col <= lastCol; col++ {
		if col == colExcluded {
			continue
		}
		value, err := w.api.ReadCell(ctx, w.draft, cellRef(col, row))
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %v", cellRef(col, row), err)
		}
		if value == "" || value == models.NA {
			return false, nil
		}
	}
	return true, nil
}

// PromoteRow copies a complete draft row verbatim into the success area,
// renumbering only the leading ordinal to its new position.
func (w *Writer) PromoteRow(ctx context.Context, draftRow int) (int, error) {
	values := make([]string, lastCol+1)
	for col := colOrdinal; col <= lastCol; col++ {
		value, err := w.api.ReadCell(ctx, w.draft, cellRef(col, draftRow))
		if err != nil {
			return 0, fmt.Errorf("failed to read draft row %d: %v", draftRow, err)
		}
		values[col] = value
	}

	target, err := w.allocateIn(ctx, w.success)
	if err != nil {
		return 0, err
	}
	values[colOrdinal] = fmt.Sprintf("%d", target-StartRow+1)

	for col := colOrdinal; col <= lastCol; col++ {
		if err := w.writeCell(ctx, w.success, col, target, values[col]); err != nil {
			return 0, err
		}
	}
	w.logger.Info("row promoted",
		zap.Int("draft_row", draftRow),
		zap.Int("success_row", target))
	return target, nil
}

// cellRef converts 1-based column/row to A1 notation. Columns stay within
// A-Z by layout.
func cellRef(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col-1, row)
}

func orNA(s string) string {
	if s == "" {
		return models.NA
	}
	return s
}
