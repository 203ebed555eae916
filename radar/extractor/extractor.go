// Package extractor turns a ranked ad candidate into a full video record by
// visiting its detail view and resolving each output field through the
// locator cascade. A field that cannot be resolved stays at the sentinel;
// only a failed navigation aborts the record.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"productradar/models"
	"productradar/normalize"
	"productradar/pkg/metrics"
	"productradar/radar/locator"
	"productradar/radar/session"
)

// Extractor drives detail-view extraction over one browser session.
type Extractor struct {
	sess    *session.Session
	metrics *metrics.ScrapeMetrics
	logger  *zap.Logger
}

func New(sess *session.Session, scrapeMetrics *metrics.ScrapeMetrics, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scrapeMetrics == nil {
		scrapeMetrics = metrics.NewScrapeMetrics(metrics.NewSimpleMetricsCollector(zap.NewNop()))
	}
	return &Extractor{sess: sess, metrics: scrapeMetrics, logger: logger}
}

// label candidates per field, english first, then the localized variants
// seen in the wild
var (
	scriptLabels    = []string{"Video script", "Transcript", "Анализ транскрипта", "Транскрипт"}
	ageLabels       = []string{"Audience age", "Age", "Возраст аудитории", "Возраст"}
	platformLabels  = []string{"Platform", "OS", "Платформа"}
	countryLabels   = []string{"Country", "Region", "Страна", "Регион"}
	firstSeenLabels = []string{"First seen", "First Seen", "Впервые показан"}
)

var impressionsRe = regexp.MustCompile(`(?i)impressions?\s*[:：]?\s*([\d.,]+\s*[KM]?)\b`)

var hookAfterScriptRe = regexp.MustCompile(`(?:Hook|Хук)\s*[:：]?\s*(.{10,400}?(?:\.|$))`)

// video permalinks only; shop and product permalinks also sit behind "post"
// labels and must never be mistaken for the video link
var videoPermalinkRe = regexp.MustCompile(`https?://(?:www\.|m\.)?tiktok\.com/@[\w.\-]+/video/\d+`)

var moreDetailSelectors = []string{
	`button:has-text("More detail")`,
	`a:has-text("More detail")`,
	`[class*="more-detail"]`,
	`button:has-text("Подробнее")`,
}

// ExtractRecord resolves one candidate into a record. The returned record is
// structurally complete: unresolved fields hold the sentinel.
func (e *Extractor) ExtractRecord(ctx context.Context, cand models.AdCandidate) (models.VideoRecord, error) {
	rec := models.EmptyVideoRecord()

	if err := e.openDetail(ctx, cand); err != nil {
		return rec, err
	}
	e.sess.HumanDelay()

	page, err := e.sess.Snapshot()
	if err != nil {
		return rec, fmt.Errorf("failed to snapshot detail view: %v", err)
	}

	f := resolveFields(page)

	// late-rendering hook sections miss on the first snapshot now and then
	if f.hook == "" {
		time.Sleep(1500 * time.Millisecond)
		if fresh, err := e.sess.Snapshot(); err == nil {
			if hook := resolveHook(fresh); hook != "" {
				f.hook = hook
				f.misses = dropMiss(f.misses, "hook")
			}
		}
	}

	if f.link != "" {
		rec.Link = e.absoluteURL(f.link)
	}
	if f.script != "" {
		rec.Script = f.script
	}
	if f.hook != "" {
		rec.Hook = f.hook
	}
	rec.AudienceAge = normalize.FormatAudience(f.audienceAge, f.platform)
	if f.country != "" {
		rec.Country = f.country
	}

	if n, ok := normalize.ParseMagnitude(f.rawImpressions); ok {
		rec.Impressions = n
	} else if cand.Impressions > 0 {
		// detail view hid the metric; the summary card value stands in
		rec.Impressions = cand.Impressions
	}
	if rec.Impressions > 0 {
		rec.ImpressionsFmt = normalize.FormatMagnitude(rec.Impressions)
	}

	firstSeen := f.firstSeen
	if firstSeen == "" {
		firstSeen = cand.FirstSeenRaw
	}
	if token := normalize.FirstDateOfRange(firstSeen); token != "" {
		rec.FirstSeen = token
	}

	if len(f.misses) > 0 {
		for _, entry := range f.misses {
			e.metrics.RecordFieldMiss(missField(entry))
		}
		e.logger.Info("detail fields unresolved",
			zap.String("detail_url", cand.DetailURL),
			zap.Strings("fields", f.misses))
	}
	return rec, nil
}

// openDetail brings the detail view on screen: directly via the candidate's
// link, or by clicking through its card and the "more detail" control.
func (e *Extractor) openDetail(ctx context.Context, cand models.AdCandidate) error {
	if cand.DetailURL != "" {
		start := time.Now()
		err := e.sess.NavigateWithRetry(ctx, e.absoluteURL(cand.DetailURL))
		e.metrics.RecordNavigation(err == nil, time.Since(start))
		return err
	}

	// re-address the card through the selector the collector matched it with;
	// any other selector counts a different element set
	selector := cand.CardSelector
	if selector == "" {
		selector = cardSelector
	}
	card := e.sess.Page().Locator(selector).Nth(cand.CardIndex)
	if err := card.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("failed to scroll to card %d: %v", cand.CardIndex, err)
	}
	if err := card.Click(); err != nil {
		return fmt.Errorf("failed to open card %d: %v", cand.CardIndex, err)
	}
	e.sess.HumanDelay()

	if err := e.clickFirst(moreDetailSelectors, 5*time.Second); err != nil {
		return fmt.Errorf("failed to reach detail view from card %d: %v", cand.CardIndex, err)
	}
	if err := e.sess.Page().WaitForLoadState(); err != nil {
		e.logger.Debug("detail load state wait failed", zap.Error(err))
	}
	return nil
}

// last resort for candidates that carry no selector of their own
const cardSelector = `[class*="ad-card"], [class*="video-card"], [class*="ad-item"], [class*="creative-card"]`

// clickFirst polls the candidate selectors with a bounded per-candidate wait
// and clicks the first one that becomes visible.
func (e *Extractor) clickFirst(selectors []string, total time.Duration) error {
	per := float64(total.Milliseconds()) / float64(len(selectors))
	var lastErr error
	for _, sel := range selectors {
		loc := e.sess.Page().Locator(sel).First()
		if err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(per),
		}); err != nil {
			lastErr = err
			continue
		}
		return loc.Click()
	}
	return fmt.Errorf("no control became visible: %v", lastErr)
}

// absoluteURL resolves a scraped href against the current page.
func (e *Extractor) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(e.sess.Page().URL())
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ---- snapshot-level field resolution --------------------------------------

type fields struct {
	link           string
	script         string
	hook           string
	audienceAge    string
	platform       string
	country        string
	firstSeen      string
	rawImpressions string
	misses         []string
}

// resolveFields runs the per-field cascades against one snapshot. Pure, so
// the whole mapping is testable on saved HTML.
func resolveFields(p *locator.Page) fields {
	var f fields
	miss := func(name string, r locator.Result) string {
		if r.OK() {
			return r.Value
		}
		f.misses = append(f.misses, name+" ("+string(r.Reason)+")")
		return ""
	}

	f.link = VideoPermalink(p)
	if f.link == "" {
		f.misses = append(f.misses, "link (no video permalink)")
	}

	f.rawImpressions = impressionsFromDataSection(p)

	f.script = miss("script", locator.First(p,
		locator.LabelSplit(withColons(scriptLabels), 20, 4000),
		locator.TreeWalk(scriptLabels, 20, 4000),
		locator.AttrContains("transcript", 20, 4000),
	))

	f.hook = resolveHook(p)
	if f.hook == "" {
		f.misses = append(f.misses, "hook (not found)")
	}

	f.audienceAge = miss("audience age", locator.First(p,
		locator.LabelSplit(withColons(ageLabels), 2, 40),
		locator.TreeWalk(ageLabels, 2, 40),
		locator.AttrContains("audience-age", 2, 40),
		locator.PageRegex(regexp.MustCompile(`(?i)age[:：]?\s*(\d{2}\s*-\s*\d{2}\+?)`), 1, 2, 40),
	))
	if r := locator.First(p, locator.LabelSplit(withColons(platformLabels), 2, 20)); r.OK() {
		f.platform = r.Value
	}

	f.country = miss("country", locator.First(p,
		locator.LabelSplit(withColons(countryLabels), 2, 60),
		locator.TreeWalk(countryLabels, 2, 60),
		locator.AttrContains("country", 2, 60),
	))

	f.firstSeen = miss("first seen", locator.First(p,
		locator.LabelSplit(withColons(firstSeenLabels), 8, 60),
		locator.PageRegex(regexp.MustCompile(`(?i)first seen[:：]?\s*([A-Z][a-z]{2}\s+\d{1,2}\s+\d{4}[^,]*)`), 1, 8, 60),
	))

	return f
}

// dropMiss removes a field's entry from the miss list once a later retry
// resolves it.
func dropMiss(misses []string, field string) []string {
	out := misses[:0]
	for _, m := range misses {
		if !strings.HasPrefix(m, field+" ") {
			out = append(out, m)
		}
	}
	return out
}

// missField extracts the field name from a miss entry like "hook (not found)".
func missField(entry string) string {
	if i := strings.Index(entry, " ("); i > 0 {
		return entry[:i]
	}
	return entry
}

// resolveHook anchors the hook lookup after the script section so the label
// never re-matches transcript prose.
func resolveHook(p *locator.Page) string {
	r := locator.First(p,
		locator.After(scriptLabels, locator.PageRegex(hookAfterScriptRe, 1, 10, 1000)),
		locator.AttrContains("hook", 10, 1000),
	)
	if r.OK() {
		return r.Value
	}
	return ""
}

// VideoPermalink scans anchors for a link matching the video-permalink
// shape. Shop permalinks are rejected even when they carry a "post" label.
func VideoPermalink(p *locator.Page) string {
	var link string
	p.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if isShopPermalink(href) {
			return true
		}
		if m := videoPermalinkRe.FindString(href); m != "" {
			link = m
			return false
		}
		return true
	})
	return link
}

func isShopPermalink(href string) bool {
	return strings.Contains(href, "/shop/") || strings.Contains(href, "shop.tiktok.com")
}

// impressionsFromDataSection looks for the metric inside a "data" panel
// first; a bare page-wide scan confuses it with the likes counter.
func impressionsFromDataSection(p *locator.Page) string {
	var raw string
	p.Find(`[class*="data"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := impressionsRe.FindStringSubmatch(s.Text()); m != nil {
			raw = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	if raw != "" {
		return raw
	}
	if m := impressionsRe.FindStringSubmatch(p.Text()); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// withColons doubles each label with its colon-suffixed form so the split
// lands after the punctuation when present.
func withColons(labels []string) []string {
	out := make([]string, 0, len(labels)*2)
	for _, l := range labels {
		out = append(out, l+":")
	}
	return append(out, labels...)
}
