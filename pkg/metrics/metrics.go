package metrics

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsCollector interface for collecting metrics
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	RecordDuration(name string, duration time.Duration, labels map[string]string)
}

// SimpleMetricsCollector is a basic in-memory metrics collector
type SimpleMetricsCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	gauges     map[string]float64
	logger     *zap.Logger
}

// NewSimpleMetricsCollector creates a new simple metrics collector
func NewSimpleMetricsCollector(logger *zap.Logger) *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
		logger:     logger,
	}
}

// IncrementCounter increments a counter metric
func (smc *SimpleMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	smc.mu.Lock()
	defer smc.mu.Unlock()
	key := buildMetricKey(name, labels)
	smc.counters[key]++

	smc.logger.Debug("Counter incremented",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", smc.counters[key]))
}

// RecordHistogram records a histogram value
func (smc *SimpleMetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	smc.mu.Lock()
	defer smc.mu.Unlock()
	key := buildMetricKey(name, labels)
	smc.histograms[key] = append(smc.histograms[key], value)

	smc.logger.Debug("Histogram recorded",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// SetGauge sets a gauge metric value
func (smc *SimpleMetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	smc.mu.Lock()
	defer smc.mu.Unlock()
	key := buildMetricKey(name, labels)
	smc.gauges[key] = value

	smc.logger.Debug("Gauge set",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// RecordDuration records a duration metric
func (smc *SimpleMetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	smc.RecordHistogram(name+"_duration_seconds", duration.Seconds(), labels)
}

// Counter returns the current value of a counter, for inspection.
func (smc *SimpleMetricsCollector) Counter(name string, labels map[string]string) float64 {
	smc.mu.Lock()
	defer smc.mu.Unlock()
	return smc.counters[buildMetricKey(name, labels)]
}

// buildMetricKey builds a unique key for a metric with labels
func buildMetricKey(name string, labels map[string]string) string {
	key := name
	for k, v := range labels {
		key += "_" + k + "_" + v
	}
	return key
}

// ScrapeMetrics holds the run-level metrics the pipeline reports
type ScrapeMetrics struct {
	collector MetricsCollector
}

// NewScrapeMetrics creates a new scrape metrics instance
func NewScrapeMetrics(collector MetricsCollector) *ScrapeMetrics {
	return &ScrapeMetrics{collector: collector}
}

// RecordCardsCollected counts ad cards found on a product page
func (sm *ScrapeMetrics) RecordCardsCollected(count int, kept int) {
	sm.collector.IncrementCounter("products_scanned_total", nil)
	sm.collector.SetGauge("cards_collected", float64(count), nil)
	sm.collector.SetGauge("candidates_kept", float64(kept), nil)
}

// RecordFieldMiss counts an unresolved detail field
func (sm *ScrapeMetrics) RecordFieldMiss(field string) {
	sm.collector.IncrementCounter("field_misses_total", map[string]string{"field": field})
}

// RecordRecordExtracted counts one finished video record
func (sm *ScrapeMetrics) RecordRecordExtracted(success bool) {
	sm.collector.IncrementCounter("records_extracted_total",
		map[string]string{"success": strconv.FormatBool(success)})
}

// RecordRowWritten counts one spreadsheet row written
func (sm *ScrapeMetrics) RecordRowWritten(complete bool) {
	sm.collector.IncrementCounter("rows_written_total",
		map[string]string{"complete": strconv.FormatBool(complete)})
}

// RecordRowPromoted counts one row promoted to the success area
func (sm *ScrapeMetrics) RecordRowPromoted() {
	sm.collector.IncrementCounter("rows_promoted_total", nil)
}

// RecordNavigation records one navigation outcome and its duration
func (sm *ScrapeMetrics) RecordNavigation(success bool, duration time.Duration) {
	labels := map[string]string{"success": strconv.FormatBool(success)}
	sm.collector.IncrementCounter("navigations_total", labels)
	sm.collector.RecordDuration("navigation", duration, labels)
}
