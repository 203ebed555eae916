package locator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) *Page {
	t.Helper()
	p, err := ParsePage(html)
	require.NoError(t, err)
	return p
}

const detailHTML = `<html><body>
<div class="header"><a href="/en/login">Log in</a><span>Download App</span></div>
<div class="detail">
  <div class="data-panel">
    <div class="metric"><span class="label">Impressions:</span><span class="value">170.6K</span></div>
    <div class="metric"><span class="label">Likes:</span><span class="value">12K</span></div>
    <div class="metric"><span class="label">First seen:</span><span>Oct 27 2025 - Nov 02 2025</span></div>
  </div>
  <div class="audience-block">
    <span>Audience age:</span> 35-45
  </div>
  <div class="region"><span>Country:</span> United States</div>
  <section class="transcript">
    <h3>Video script</h3>
    <p>Stop scrolling, this kitchen gadget changed how I cook forever and you need to see why it works.</p>
    <h3>Hook</h3>
    <p>Stop scrolling, this kitchen gadget changed how I cook forever.</p>
  </section>
</div>
<div class="footer">All rights reserved. Privacy Policy. Terms of Service.</div>
</body></html>`

func TestLabelSplitFindsValueNextToLabel(t *testing.T) {
	p := mustParse(t, detailHTML)
	r := First(p, LabelSplit([]string{"Country:"}, 2, 60))
	require.True(t, r.OK())
	assert.Equal(t, "United States", r.Value)
}

func TestLabelSplitTriesLabelsInOrder(t *testing.T) {
	p := mustParse(t, detailHTML)
	r := First(p, LabelSplit([]string{"Страна:", "Country:"}, 2, 60))
	require.True(t, r.OK())
	assert.Equal(t, "United States", r.Value)
}

func TestTreeWalkSurvivesSplitMarkup(t *testing.T) {
	html := `<html><body><div class="row">
	  <div class="cell"><b>Audience</b> <i>age</i></div>
	  <div class="cell">25-34</div>
	</div></body></html>`
	p := mustParse(t, html)
	r := First(p, TreeWalk([]string{"Audience age"}, 2, 30))
	require.True(t, r.OK())
	assert.Equal(t, "25-34", r.Value)
}

func TestAttrContainsFallback(t *testing.T) {
	html := `<html><body><div class="ad-transcript-body">A short product pitch about a blender.</div></body></html>`
	p := mustParse(t, html)
	r := First(p,
		LabelSplit([]string{"Video script"}, 10, 0),
		AttrContains("transcript", 10, 0),
	)
	require.True(t, r.OK())
	assert.Equal(t, "A short product pitch about a blender.", r.Value)
}

func TestPageRegexLastResort(t *testing.T) {
	p := mustParse(t, detailHTML)
	re := regexp.MustCompile(`First seen:\s*([A-Z][a-z]{2} \d{1,2} \d{4})`)
	r := First(p, PageRegex(re, 1, 8, 20))
	require.True(t, r.OK())
	assert.Equal(t, "Oct 27 2025", r.Value)
}

func TestAfterAnchorsLookupPastSection(t *testing.T) {
	p := mustParse(t, detailHTML)
	// without the anchor the regex would match inside the script paragraph
	re := regexp.MustCompile(`Hook\s+(.+?\.)`)
	r := First(p, After([]string{"Video script"}, PageRegex(re, 1, 10, 200)))
	require.True(t, r.OK())
	assert.Equal(t, "Stop scrolling, this kitchen gadget changed how I cook forever.", r.Value)
}

func TestDenylistRejectsFooterCapture(t *testing.T) {
	html := `<html><body><div><span>Country:</span> All rights reserved. Privacy Policy.</div></body></html>`
	p := mustParse(t, html)
	r := First(p, LabelSplit([]string{"Country:"}, 2, 200))
	require.False(t, r.OK())
	assert.Equal(t, MissDenylisted, r.Reason)
}

func TestDenylistRejectsVideoMetadata(t *testing.T) {
	_, ok := Clean("Resolution: 1080x1920")
	assert.False(t, ok)
}

func TestCleanTrimsTrailers(t *testing.T) {
	got, ok := Clean(": A strong opening line Show more")
	require.True(t, ok)
	assert.Equal(t, "A strong opening line", got)
}

func TestImplausibleLengthRejected(t *testing.T) {
	html := `<html><body><div><span>Hook:</span> a</div></body></html>`
	p := mustParse(t, html)
	r := First(p, LabelSplit([]string{"Hook:"}, 5, 200))
	require.False(t, r.OK())
	assert.Equal(t, MissImplausible, r.Reason)
}

func TestMissIsDataNotError(t *testing.T) {
	p := mustParse(t, `<html><body><p>nothing useful</p></body></html>`)
	r := First(p,
		LabelSplit([]string{"Audience age"}, 2, 30),
		AttrContains("audience", 2, 30),
	)
	assert.False(t, r.OK())
	assert.Equal(t, MissNotFound, r.Reason)
}

func TestScriptTagsExcludedFromText(t *testing.T) {
	html := `<html><body><script>var country = "nowhere";</script><div>Country: Germany</div></body></html>`
	p := mustParse(t, html)
	assert.NotContains(t, p.Text(), "nowhere")
	r := First(p, LabelSplit([]string{"Country:"}, 2, 60))
	require.True(t, r.OK())
	assert.Equal(t, "Germany", r.Value)
}
