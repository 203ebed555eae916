package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productradar/radar/locator"
)

func snapshot(t *testing.T, html string) *locator.Page {
	t.Helper()
	p, err := locator.ParsePage(html)
	require.NoError(t, err)
	return p
}

const detailView = `<html><body>
<div class="detail-header">
  <a href="https://www.tiktok.com/shop/pdp/1729384756">Buy now</a>
  <a href="https://www.tiktok.com/@kitchen.hacks/video/7301234567890123456">Original post</a>
</div>
<div class="ad-data-panel">
  <div>Likes: 12.4K</div>
  <div>Impressions: 170.6K</div>
</div>
<div class="info">
  <div><span>Audience age:</span> 35-45</div>
  <div><span>Platform:</span> iOS</div>
  <div><span>Country:</span> United States</div>
  <div><span>First seen:</span> Oct 27 2025 ~ Nov 02 2025</div>
</div>
<section>
  <h3>Video script</h3>
  <p>Stop scrolling because this peeler does the work of three tools and your prep time drops in half, watch this.</p>
  <h3>Hook</h3>
  <p>Stop scrolling because this peeler does the work of three tools.</p>
</section>
</body></html>`

func TestResolveFieldsFullDetailView(t *testing.T) {
	f := resolveFields(snapshot(t, detailView))

	assert.Equal(t, "https://www.tiktok.com/@kitchen.hacks/video/7301234567890123456", f.link)
	assert.Equal(t, "170.6K", f.rawImpressions)
	assert.Equal(t, "35-45", f.audienceAge)
	assert.Equal(t, "iOS", f.platform)
	assert.Equal(t, "United States", f.country)
	assert.Contains(t, f.firstSeen, "Oct 27 2025")
	assert.Contains(t, f.script, "peeler does the work of three tools")
	assert.Contains(t, f.hook, "Stop scrolling")
	assert.Empty(t, f.misses)
}

func TestVideoPermalinkSkipsShopLinks(t *testing.T) {
	html := `<html><body>
	<a href="https://www.tiktok.com/shop/pdp/999">post</a>
	<a href="https://shop.tiktok.com/view/product/123">post</a>
	<a href="https://www.tiktok.com/@seller/video/7300000000000000001">post</a>
	</body></html>`
	got := VideoPermalink(snapshot(t, html))
	assert.Equal(t, "https://www.tiktok.com/@seller/video/7300000000000000001", got)
}

func TestVideoPermalinkMissesWhenOnlyShopLinks(t *testing.T) {
	html := `<html><body><a href="https://www.tiktok.com/shop/pdp/999">post</a></body></html>`
	assert.Empty(t, VideoPermalink(snapshot(t, html)))
}

func TestImpressionsPreferDataSectionOverLikes(t *testing.T) {
	html := `<html><body>
	<div class="social">Likes: 900K</div>
	<div class="data-block">Impressions: 55K</div>
	</body></html>`
	assert.Equal(t, "55K", impressionsFromDataSection(snapshot(t, html)))
}

func TestImpressionsFallBackToPageScan(t *testing.T) {
	html := `<html><body><div class="stats">Impressions: 2.5M</div></body></html>`
	assert.Equal(t, "2.5M", impressionsFromDataSection(snapshot(t, html)))
}

func TestHookAnchoredAfterScript(t *testing.T) {
	// a "Hook" mention before the transcript must not win
	html := `<html><body>
	<div class="tips">Hook: write better hooks with our course</div>
	<section>
	  <h3>Video script</h3>
	  <p>Full transcript of the advertisement goes here with plenty of words.</p>
	  <h3>Hook</h3>
	  <p>The actual opening line of the advertisement.</p>
	</section>
	</body></html>`
	got := resolveHook(snapshot(t, html))
	assert.Equal(t, "The actual opening line of the advertisement.", got)
}

func TestResolveFieldsReportsMisses(t *testing.T) {
	f := resolveFields(snapshot(t, `<html><body><p>sparse page</p></body></html>`))
	assert.Empty(t, f.link)
	assert.NotEmpty(t, f.misses)
}

func TestDropMissClearsResolvedField(t *testing.T) {
	got := dropMiss([]string{"hook (not found)", "country (not found)"}, "hook")
	assert.Equal(t, []string{"country (not found)"}, got)
	// a field that never missed leaves the list alone
	got = dropMiss([]string{"hook (not found)"}, "script")
	assert.Equal(t, []string{"hook (not found)"}, got)
}

func TestMissField(t *testing.T) {
	assert.Equal(t, "hook", missField("hook (not found)"))
	assert.Equal(t, "audience age", missField("audience age (denylisted)"))
	assert.Equal(t, "link", missField("link"))
}

func TestWithColons(t *testing.T) {
	got := withColons([]string{"Country", "Страна"})
	assert.Equal(t, []string{"Country:", "Страна:", "Country", "Страна"}, got)
}
