package radar

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"productradar/models"
	"productradar/radar/collector"
	"productradar/radar/sheet"
)

// fakeCells mirrors the sheet writer's in-memory store for end-to-end runs.
type fakeCells struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCells() *fakeCells { return &fakeCells{data: map[string]string{}} }

func (f *fakeCells) ReadCell(_ context.Context, sheetName, cell string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[sheetName+"!"+cell], nil
}

func (f *fakeCells) WriteCell(_ context.Context, sheetName, cell, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[sheetName+"!"+cell] = value
	return nil
}

type fakeMiner struct {
	products   []models.ProductPage
	candidates []models.AdCandidate
	records    map[string]models.VideoRecord
	recorded   []string
}

func (m *fakeMiner) Products(_ context.Context, _ string, max int) ([]models.ProductPage, error) {
	if len(m.products) > max {
		return m.products[:max], nil
	}
	return m.products, nil
}

func (m *fakeMiner) Candidates(_ context.Context, _ models.ProductPage) ([]models.AdCandidate, error) {
	return m.candidates, nil
}

func (m *fakeMiner) Record(_ context.Context, cand models.AdCandidate) (models.VideoRecord, error) {
	m.recorded = append(m.recorded, cand.DetailURL)
	rec, ok := m.records[cand.DetailURL]
	if !ok {
		return models.EmptyVideoRecord(), fmt.Errorf("no detail view for %s", cand.DetailURL)
	}
	return rec, nil
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	if text == models.NA {
		return text, nil
	}
	return "T:" + text, nil
}

type memoryArchive struct {
	saved []*models.ProductResult
}

func (a *memoryArchive) SaveResult(_ context.Context, r *models.ProductResult) error {
	a.saved = append(a.saved, r)
	return nil
}

func fullRecord(n int) models.VideoRecord {
	return models.VideoRecord{
		Link:           fmt.Sprintf("https://www.tiktok.com/@a/video/%d", n),
		Impressions:    int64(n) * 10_000,
		ImpressionsFmt: fmt.Sprintf("%dK", n*10),
		Script:         fmt.Sprintf("script-%d", n),
		Hook:           fmt.Sprintf("hook-%d", n),
		AudienceAge:    "35-45 iOS",
		Country:        "United States",
		FirstSeen:      "Oct 27 2025",
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	now := time.Now()
	day := func(daysAgo int) string {
		return now.AddDate(0, 0, -daysAgo).Format("Jan 2 2006")
	}

	miner := &fakeMiner{
		products: []models.ProductPage{{
			URL:       "https://dashboard.example/product/1",
			Name:      "Glow Serum",
			Category:  "Beauty",
			ScrapedAt: now,
		}},
		// five cards, two below the 5K floor
		candidates: []models.AdCandidate{
			{DetailURL: "d1", Impressions: 200_000, RawImpressions: "200K", FirstSeenRaw: day(2), CardIndex: 0},
			{DetailURL: "d2", Impressions: 50_000, RawImpressions: "50K", FirstSeenRaw: day(5), CardIndex: 1},
			{DetailURL: "d3", Impressions: 1_200, RawImpressions: "1.2K", CardIndex: 2},
			{DetailURL: "d4", Impressions: 10_000, RawImpressions: "10K", CardIndex: 3},
			{DetailURL: "d5", Impressions: 900, RawImpressions: "900", CardIndex: 4},
		},
		records: map[string]models.VideoRecord{
			"d1": fullRecord(1),
			"d2": fullRecord(2),
			"d4": fullRecord(4),
		},
	}

	cells := newFakeCells()
	// two earlier drafts so the new row is not at the start position
	cells.data["Draft!A3"] = "1"
	cells.data["Draft!A4"] = "2"

	writer := sheet.NewWriter(cells, "Draft", "Success", zap.NewNop()).WithPause(0)
	coll := collector.New(5_000, 30, 50, 3, zap.NewNop())
	archive := &memoryArchive{}

	p := NewPipeline(miner, coll, writer, prefixTranslator{}, archive, nil, 3, zap.NewNop())
	require.NoError(t, p.Run(context.Background(), "https://dashboard.example/listing"))

	// three candidates survived the floor, extracted in rank order
	assert.Equal(t, []string{"d1", "d2", "d4"}, miner.recorded)

	// draft row 5 holds the product and translated records
	assert.Equal(t, "3", cells.data["Draft!A5"])
	assert.Equal(t, "Glow Serum", cells.data["Draft!B5"])
	assert.Equal(t, "Beauty", cells.data["Draft!D5"])
	assert.Equal(t, "https://www.tiktok.com/@a/video/1", cells.data["Draft!F5"])
	assert.Equal(t, "T:script-1", cells.data["Draft!H5"])
	assert.Equal(t, "T:script-2", cells.data["Draft!O5"])
	assert.Equal(t, "T:hook-2", cells.data["Draft!P5"])

	// complete row promoted to the first success row with a new ordinal
	assert.Equal(t, "1", cells.data["Success!A3"])
	assert.Equal(t, "Glow Serum", cells.data["Success!B3"])
	assert.Equal(t, "T:script-4", cells.data["Success!V3"])

	require.Len(t, archive.saved, 1)
	assert.Equal(t, 5, archive.saved[0].Row)
	assert.Len(t, archive.saved[0].Videos, 3)
}

func TestPipelineIncompleteRowStaysInDraft(t *testing.T) {
	miner := &fakeMiner{
		products: []models.ProductPage{{URL: "u", Name: "P", Category: "C"}},
		candidates: []models.AdCandidate{
			{DetailURL: "d1", Impressions: 10_000, RawImpressions: "10K"},
		},
		records: map[string]models.VideoRecord{
			// country unresolved, so the row cannot complete
			"d1": func() models.VideoRecord {
				r := fullRecord(1)
				r.Country = models.NA
				return r
			}(),
		},
	}

	cells := newFakeCells()
	writer := sheet.NewWriter(cells, "Draft", "Success", zap.NewNop()).WithPause(0)
	coll := collector.New(5_000, 30, 50, 3, zap.NewNop())

	p := NewPipeline(miner, coll, writer, nil, nil, nil, 3, zap.NewNop())
	require.NoError(t, p.Run(context.Background(), "listing"))

	assert.Equal(t, "P", cells.data["Draft!B3"])
	// nothing promoted
	_, promoted := cells.data["Success!A3"]
	assert.False(t, promoted)
}

func TestPipelineFailedExtractionKeepsSentinelSlot(t *testing.T) {
	miner := &fakeMiner{
		products: []models.ProductPage{{URL: "u", Name: "P", Category: "C"}},
		candidates: []models.AdCandidate{
			{DetailURL: "gone", Impressions: 10_000, RawImpressions: "10K"},
		},
		records: map[string]models.VideoRecord{},
	}

	cells := newFakeCells()
	writer := sheet.NewWriter(cells, "Draft", "Success", zap.NewNop()).WithPause(0)
	coll := collector.New(5_000, 30, 50, 3, zap.NewNop())

	p := NewPipeline(miner, coll, writer, nil, nil, nil, 3, zap.NewNop())
	require.NoError(t, p.Run(context.Background(), "listing"))

	assert.Equal(t, models.NA, cells.data["Draft!F3"])
	assert.Equal(t, models.NA, cells.data["Draft!L3"])
}
