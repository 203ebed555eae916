package radar

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"productradar/models"
	"productradar/pkg/metrics"
	"productradar/radar/collector"
	"productradar/radar/extractor"
	"productradar/radar/session"
)

// scrollSteps materializes lazy-loaded cards before a snapshot is taken.
const scrollSteps = 5

// LiveMiner implements Miner over one exclusively-owned browser session.
// All calls run strictly serially: scroll position, open modals and the
// current URL are shared page state.
type LiveMiner struct {
	sess      *session.Session
	collector *collector.Collector
	extractor *extractor.Extractor
	metrics   *metrics.ScrapeMetrics
	logger    *zap.Logger
}

func NewLiveMiner(sess *session.Session, coll *collector.Collector, scrapeMetrics *metrics.ScrapeMetrics, logger *zap.Logger) *LiveMiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scrapeMetrics == nil {
		scrapeMetrics = metrics.NewScrapeMetrics(metrics.NewSimpleMetricsCollector(zap.NewNop()))
	}
	return &LiveMiner{
		sess:      sess,
		collector: coll,
		extractor: extractor.New(sess, scrapeMetrics, logger),
		metrics:   scrapeMetrics,
		logger:    logger,
	}
}

// navigate wraps the session navigation so every outcome lands in the run
// metrics.
func (m *LiveMiner) navigate(ctx context.Context, url string) error {
	start := time.Now()
	err := m.sess.NavigateWithRetry(ctx, url)
	m.metrics.RecordNavigation(err == nil, time.Since(start))
	return err
}

func (m *LiveMiner) Products(ctx context.Context, listingURL string, max int) ([]models.ProductPage, error) {
	if err := m.navigate(ctx, listingURL); err != nil {
		return nil, fmt.Errorf("failed to open listing: %v", err)
	}
	m.sess.ScrollIncrementally(ctx, scrollSteps)

	page, err := m.sess.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot listing: %v", err)
	}

	products := m.collector.ProductsFromListing(page, max, time.Now().UTC())
	for i := range products {
		products[i].URL = m.absoluteURL(products[i].URL)
	}
	return products, nil
}

func (m *LiveMiner) Candidates(ctx context.Context, product models.ProductPage) ([]models.AdCandidate, error) {
	if err := m.navigate(ctx, product.URL); err != nil {
		return nil, fmt.Errorf("failed to open product page: %v", err)
	}
	m.sortByFirstSeen()
	m.sess.ScrollIncrementally(ctx, scrollSteps)

	page, err := m.sess.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot product page: %v", err)
	}
	return m.collector.CollectCards(page), nil
}

func (m *LiveMiner) Record(ctx context.Context, cand models.AdCandidate) (models.VideoRecord, error) {
	return m.extractor.ExtractRecord(ctx, cand)
}

// sortOptionSelectors open the ad-list sort control and pick the first-seen
// ordering so the freshest creatives surface before the card cap cuts off.
var sortControlSelectors = []string{
	`[class*="sort-select"]`,
	`[class*="sort"] [class*="select"]`,
	`[class*="filter-bar"] [class*="dropdown"]`,
}

var sortOptionSelectors = []string{
	`li:has-text("First seen")`,
	`[class*="option"]:has-text("First seen")`,
	`li:has-text("Впервые показан")`,
}

// sortByFirstSeen is best effort; when the control cannot be found the ads
// stay in the dashboard's default order and ranking still applies.
func (m *LiveMiner) sortByFirstSeen() {
	page := m.sess.Page()
	for _, sel := range sortControlSelectors {
		control := page.Locator(sel).First()
		if err := control.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(1500),
		}); err != nil {
			continue
		}
		if err := control.Click(); err != nil {
			continue
		}
		for _, opt := range sortOptionSelectors {
			option := page.Locator(opt).First()
			if err := option.WaitFor(playwright.LocatorWaitForOptions{
				State:   playwright.WaitForSelectorStateVisible,
				Timeout: playwright.Float(1500),
			}); err != nil {
				continue
			}
			if err := option.Click(); err == nil {
				m.sess.HumanDelay()
				m.logger.Debug("ad list sorted by first seen")
				return
			}
		}
		return
	}
	m.logger.Debug("sort control not found, keeping default order")
}

func (m *LiveMiner) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(m.sess.Page().URL())
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
