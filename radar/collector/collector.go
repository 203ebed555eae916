// Package collector enumerates advertisement cards on a rendered product
// page and ranks them for detail extraction. It works on page snapshots so
// the heuristics stay testable without a browser; scrolling the live page to
// materialize lazy content happens in the session controller before the
// snapshot is taken.
package collector

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"productradar/models"
	"productradar/normalize"
	"productradar/radar/locator"
)

// Collector holds the filtering knobs for one run.
type Collector struct {
	MinImpressions int64
	MaxAgeDays     int
	MaxCards       int
	Top            int
	Logger         *zap.Logger
}

func New(minImpressions int64, maxAgeDays, maxCards, top int, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if top <= 0 {
		top = 3
	}
	return &Collector{
		MinImpressions: minImpressions,
		MaxAgeDays:     maxAgeDays,
		MaxCards:       maxCards,
		Top:            top,
		Logger:         logger,
	}
}

// Selectors that have identified ad cards across dashboard redesigns, most
// specific first. The last resort walks up from detail links.
var cardSelectors = []string{
	`[class*="ad-card"]`,
	`[class*="video-card"]`,
	`[class*="ad-item"]`,
	`[class*="creative-card"]`,
}

var detailLinkSelector = `a[href*="/ad/detail"], a[href*="ad_id="], a[href*="/tiktok/detail"]`

var impressionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)impressions?\s*[:：]?\s*([\d.,]+\s*[KM]?)\b`),
	regexp.MustCompile(`(?i)показ[а-я]*\s*[:：]?\s*([\d.,]+\s*[KM]?)\b`),
}

// biggest K/M-suffixed number on the card, used when no label survives the render
var magnitudeTokenRe = regexp.MustCompile(`([\d]+(?:[.,]\d+)?\s*[KMkm])\b`)

// CollectCards enumerates ad cards on the snapshot and scans each card's text
// for the preliminary metrics. Cards with no parseable impression count are
// kept with a zero count; the filter drops them later, but the audit log
// still sees them.
func (c *Collector) CollectCards(p *locator.Page) []models.AdCandidate {
	cards, selector := findBySelectors(p, cardSelectors, detailLinkSelector)
	if c.MaxCards > 0 && len(cards) > c.MaxCards {
		cards = cards[:c.MaxCards]
	}

	candidates := make([]models.AdCandidate, 0, len(cards))
	for _, m := range cards {
		text := squash(m.card.Text())

		cand := models.AdCandidate{CardSelector: selector, CardIndex: m.index}
		if href, ok := m.card.Find(detailLinkSelector).First().Attr("href"); ok {
			cand.DetailURL = strings.TrimSpace(href)
		} else if href, ok := m.card.Filter(detailLinkSelector).Attr("href"); ok {
			cand.DetailURL = strings.TrimSpace(href)
		}

		cand.RawImpressions = scanImpressions(text)
		if n, ok := normalize.ParseMagnitude(cand.RawImpressions); ok {
			cand.Impressions = n
		}
		cand.FirstSeenRaw = normalize.FirstDateOfRange(text)

		candidates = append(candidates, cand)
	}

	c.Logger.Debug("collected ad cards",
		zap.Int("cards", len(cards)),
		zap.Int("candidates", len(candidates)))
	return candidates
}

// FilterAndRank applies the impression floor and recency window, drops
// duplicates, and returns the best candidates in extraction order.
func (c *Collector) FilterAndRank(candidates []models.AdCandidate) []models.AdCandidate {
	return c.FilterAndRankAt(candidates, time.Now())
}

// FilterAndRankAt is FilterAndRank against an explicit reference time.
//
// A candidate passes when its impressions meet the floor and either it has no
// parseable date, the date falls inside the recency window, or the count
// strictly exceeds the floor despite a stale date. Survivors are deduplicated
// by key, sorted most-recent-first (unknown dates last) with impressions as
// the tiebreak, and capped at Top.
func (c *Collector) FilterAndRankAt(candidates []models.AdCandidate, now time.Time) []models.AdCandidate {
	type ranked struct {
		cand    models.AdCandidate
		date    time.Time
		hasDate bool
	}

	seen := make(map[string]bool)
	passing := make([]ranked, 0, len(candidates))
	for _, cand := range candidates {
		if !normalize.MeetsImpressionFloor(cand.Impressions, c.MinImpressions) {
			c.Logger.Debug("candidate below impression floor",
				zap.Int("card", cand.CardIndex),
				zap.String("impressions", cand.RawImpressions))
			continue
		}
		date, hasDate := normalize.ParseCalendarDate(cand.FirstSeenRaw)
		if hasDate && !normalize.WithinRecencyAt(date, c.MaxAgeDays, now) && cand.Impressions <= c.MinImpressions {
			c.Logger.Debug("candidate outside recency window",
				zap.Int("card", cand.CardIndex),
				zap.String("first_seen", cand.FirstSeenRaw))
			continue
		}
		if key := cand.Key(); key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		passing = append(passing, ranked{cand: cand, date: date, hasDate: hasDate})
	}

	sort.SliceStable(passing, func(i, j int) bool {
		a, b := passing[i], passing[j]
		switch {
		case a.hasDate && !b.hasDate:
			return true
		case !a.hasDate && b.hasDate:
			return false
		case a.hasDate && b.hasDate && !a.date.Equal(b.date):
			return a.date.After(b.date)
		default:
			return a.cand.Impressions > b.cand.Impressions
		}
	})

	if len(passing) > c.Top {
		passing = passing[:c.Top]
	}
	out := make([]models.AdCandidate, len(passing))
	for i, r := range passing {
		out[i] = r.cand
	}
	return out
}

// Product listing discovery ------------------------------------------------

var productSelectors = []string{
	`[class*="product-card"]`,
	`[class*="product-item"]`,
	`[class*="goods-card"]`,
}

var productLinkSelector = `a[href*="/product/"], a[href*="product_id="], a[href*="/tiktok-shop-product/"]`

// ProductsFromListing picks candidate products off a rendered listing page.
// Name and category fall back to the sentinel rather than dropping the
// product; the URL is mandatory.
func (c *Collector) ProductsFromListing(p *locator.Page, max int, now time.Time) []models.ProductPage {
	cards, _ := findBySelectors(p, productSelectors, productLinkSelector)

	products := make([]models.ProductPage, 0, len(cards))
	seen := make(map[string]bool)
	for _, m := range cards {
		card := m.card
		href, ok := card.Find(productLinkSelector).First().Attr("href")
		if !ok {
			href, ok = card.Filter(productLinkSelector).Attr("href")
		}
		if !ok || seen[href] {
			continue
		}
		seen[href] = true

		name := firstText(card, `[class*="title"], [class*="name"], h1, h2, h3`)
		if name == "" {
			name = squash(card.Find("a").First().Text())
		}
		if name == "" {
			name = models.NA
		}
		category := firstText(card, `[class*="category"], [class*="tag"]`)
		if category == "" {
			category = models.NA
		}

		products = append(products, models.ProductPage{
			URL:       strings.TrimSpace(href),
			Name:      name,
			Category:  category,
			ScrapedAt: now,
		})
		if max > 0 && len(products) >= max {
			break
		}
	}
	c.Logger.Info("discovered products on listing",
		zap.Int("cards", len(cards)),
		zap.Int("selected", len(products)))
	return products
}

// ---- helpers --------------------------------------------------------------

// cardMatch pairs a card selection with its position in the full match set
// of the selector that found it, so the live page can re-address the same
// element by selector and index later.
type cardMatch struct {
	card  *goquery.Selection
	index int
}

// findBySelectors tries the class-based selectors first; when none match it
// climbs up from the link elements so a full redesign still yields cards.
// The returned selector is the one whose matches the indices count, unfiltered.
func findBySelectors(p *locator.Page, selectors []string, linkSelector string) ([]cardMatch, string) {
	for _, sel := range selectors {
		matched := p.Find(sel)
		if matched.Length() == 0 {
			continue
		}
		var cards []cardMatch
		matched.Each(func(i int, s *goquery.Selection) {
			if looksLikeCard(s, linkSelector) {
				cards = append(cards, cardMatch{card: s, index: i})
			}
		})
		if len(cards) > 0 {
			return cards, sel
		}
	}

	var cards []cardMatch
	p.Find(linkSelector).Each(func(i int, a *goquery.Selection) {
		container := a
		for j := 0; j < 3; j++ {
			parent := container.Parent()
			if parent.Length() == 0 {
				break
			}
			container = parent
		}
		cards = append(cards, cardMatch{card: container, index: i})
	})
	return cards, linkSelector
}

// looksLikeCard requires the telltale of an ad preview: a play icon, a
// thumbnail, or a detail link.
func looksLikeCard(s *goquery.Selection, linkSelector string) bool {
	if s.Find(linkSelector).Length() > 0 {
		return true
	}
	return s.Find(`[class*="play"], img, video, [class*="cover"], [class*="thumb"]`).Length() > 0
}

func scanImpressions(text string) string {
	for _, re := range impressionPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	// no label: take the biggest suffixed magnitude on the card
	var bestRaw string
	var best int64
	for _, m := range magnitudeTokenRe.FindAllStringSubmatch(text, -1) {
		token := strings.ReplaceAll(m[1], " ", "")
		if n, ok := normalize.ParseMagnitude(token); ok && n > best {
			best = n
			bestRaw = token
		}
	}
	return bestRaw
}

func firstText(s *goquery.Selection, selector string) string {
	var out string
	s.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if t := squash(el.Text()); t != "" {
			out = t
			return false
		}
		return true
	})
	return out
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
