package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScrapeMetricsCounters(t *testing.T) {
	smc := NewSimpleMetricsCollector(zap.NewNop())
	sm := NewScrapeMetrics(smc)

	sm.RecordFieldMiss("hook")
	sm.RecordFieldMiss("hook")
	sm.RecordFieldMiss("country")
	sm.RecordNavigation(true, 120*time.Millisecond)
	sm.RecordNavigation(false, time.Second)
	sm.RecordRecordExtracted(true)
	sm.RecordRowWritten(true)
	sm.RecordRowPromoted()

	assert.Equal(t, 2.0, smc.Counter("field_misses_total", map[string]string{"field": "hook"}))
	assert.Equal(t, 1.0, smc.Counter("field_misses_total", map[string]string{"field": "country"}))
	assert.Equal(t, 1.0, smc.Counter("navigations_total", map[string]string{"success": "true"}))
	assert.Equal(t, 1.0, smc.Counter("navigations_total", map[string]string{"success": "false"}))
	assert.Equal(t, 1.0, smc.Counter("records_extracted_total", map[string]string{"success": "true"}))
	assert.Equal(t, 1.0, smc.Counter("rows_written_total", map[string]string{"complete": "true"}))
	assert.Equal(t, 1.0, smc.Counter("rows_promoted_total", nil))
}
