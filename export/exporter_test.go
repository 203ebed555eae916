package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productradar/models"
)

func TestWriteCSVFlattensVideos(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	results := []models.ProductResult{
		{
			Product: models.ProductPage{
				Name:      "Glow Serum",
				Category:  "Beauty",
				URL:       "https://example.com/p/1",
				ScrapedAt: time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
			},
			Videos: []models.VideoRecord{
				{Link: "l1", ImpressionsFmt: "170.6K", Script: "s", Hook: "h", AudienceAge: "35-45", Country: "US", FirstSeen: "Oct 27 2025"},
				{Link: "l2", ImpressionsFmt: "55K", Script: "s2", Hook: "h2", AudienceAge: "N/A", Country: "N/A", FirstSeen: "N/A"},
			},
		},
	}

	require.NoError(t, WriteCSV(path, results))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Glow Serum", rows[1][0])
	assert.Equal(t, "2025-11-10", rows[1][3])
	assert.Equal(t, "l2", rows[2][4])
}
