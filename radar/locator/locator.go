// Package locator resolves individual content fields out of a rendered
// dashboard page. The page has no API contract: markup, class names and
// labels change between deploys and languages, so every field is looked up
// through an ordered list of strategies evaluated against an HTML snapshot.
// The first strategy producing a plausible value wins; a miss is data, not
// an error.
package locator

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MissReason explains why a field could not be resolved.
type MissReason string

const (
	MissNotFound    MissReason = "not found"
	MissDenylisted  MissReason = "denylisted"
	MissImplausible MissReason = "implausible length"
)

// Result is the outcome of a strategy or a whole field lookup.
type Result struct {
	Value  string
	Reason MissReason
}

func (r Result) OK() bool { return r.Reason == "" }

func hit(v string) Result      { return Result{Value: v} }
func miss(r MissReason) Result { return Result{Reason: r} }

// Strategy is one pure lookup attempt against a page snapshot.
type Strategy func(p *Page) Result

// Page is a parsed snapshot of the rendered document. Parsing once and
// running every strategy against the same snapshot keeps the cascade cheap
// and deterministic.
type Page struct {
	doc  *goquery.Document
	text string
}

// ParsePage parses raw HTML into a snapshot.
func ParsePage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	// script/style payloads would poison the full-text strategies
	doc.Find("script, style, noscript").Remove()
	text := normalizeSpace(doc.Find("body").Text())
	if text == "" {
		text = normalizeSpace(doc.Text())
	}
	return &Page{doc: doc, text: text}, nil
}

// Text returns the whitespace-normalized text content of the whole page.
func (p *Page) Text() string { return p.text }

// Find exposes the underlying document for callers that enumerate elements
// (card collection) rather than resolving a single field.
func (p *Page) Find(selector string) *goquery.Selection { return p.doc.Find(selector) }

// First evaluates strategies in order and returns the first plausible hit.
// No scoring, no voting: the order of the list is the ranking.
func First(p *Page, strategies ...Strategy) Result {
	reason := MissNotFound
	for _, s := range strategies {
		r := s(p)
		if r.OK() {
			return r
		}
		// keep the most specific reason seen so the caller can audit why
		if r.Reason != MissNotFound {
			reason = r.Reason
		}
	}
	return miss(reason)
}

// ---- denylist -------------------------------------------------------------

// Phrases that the naive label-split strategies routinely swallow from
// footers, navigation menus and video-metadata blocks. A candidate that
// still contains one of these after trimming is rejected outright.
var denylist = []string{
	"privacy policy",
	"terms of service",
	"terms of use",
	"all rights reserved",
	"cookie settings",
	"contact us",
	"sign up",
	"log in",
	"download app",
	"follow us",
	"resolution",
	"bitrate",
	"codec",
	"try it free",
	"upgrade to pro",
	"get started now",
}

// trailing segments that get cut off a candidate instead of rejecting it
var trailers = []string{
	"Show more",
	"Show less",
	"See translation",
	"More detail",
}

// Clean trims label punctuation and boilerplate trailers from a raw
// candidate and rejects it when denylisted content remains.
func Clean(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, ":：-–—")
	s = strings.TrimSpace(s)
	for _, t := range trailers {
		if idx := strings.Index(s, t); idx > 0 {
			s = strings.TrimSpace(s[:idx])
		}
	}
	if s == "" {
		return "", false
	}
	lower := strings.ToLower(s)
	for _, d := range denylist {
		if strings.Contains(lower, d) {
			return "", false
		}
	}
	return s, true
}

func plausible(s string, minLen, maxLen int) bool {
	n := len(strings.TrimSpace(s))
	return n >= minLen && (maxLen <= 0 || n <= maxLen)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ---- strategies -----------------------------------------------------------

// LabelSplit finds an element whose own text matches one of the labels,
// reads the enclosing container's text and takes everything after the label.
// This is the workhorse strategy: cheap, language-aware, and wrong often
// enough that its output always runs through the denylist.
func LabelSplit(labels []string, minLen, maxLen int) Strategy {
	return func(p *Page) Result {
		for _, label := range labels {
			var value string
			p.doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				if !strings.Contains(ownText(sel), label) {
					return true
				}
				parent := sel.Parent()
				if parent.Length() == 0 {
					parent = sel
				}
				text := normalizeSpace(parent.Text())
				if after, ok := splitAfter(text, label); ok {
					value = after
					return false
				}
				return true
			})
			if value == "" {
				continue
			}
			cleaned, ok := Clean(value)
			if !ok {
				return miss(MissDenylisted)
			}
			if !plausible(cleaned, minLen, maxLen) {
				return miss(MissImplausible)
			}
			return hit(cleaned)
		}
		return miss(MissNotFound)
	}
}

// TreeWalk descends the whole document looking for the deepest element that
// contains a label in its subtree, then reads that element's text after the
// label. Slower than LabelSplit but survives markup where the label and the
// value share no immediate parent.
func TreeWalk(labels []string, minLen, maxLen int) Strategy {
	return func(p *Page) Result {
		for _, label := range labels {
			best := deepestContaining(p.doc.Selection, label)
			if best == nil {
				continue
			}
			// climb until the container holds more than the label itself
			container := best
			for i := 0; i < 5; i++ {
				text := normalizeSpace(container.Text())
				if after, ok := splitAfter(text, label); ok && after != "" {
					cleaned, ok := Clean(after)
					if !ok {
						return miss(MissDenylisted)
					}
					if plausible(cleaned, minLen, maxLen) {
						return hit(cleaned)
					}
				}
				parent := container.Parent()
				if parent.Length() == 0 {
					break
				}
				container = parent
			}
		}
		return miss(MissNotFound)
	}
}

// AttrContains matches elements whose class attribute contains the fragment
// ([class*="..."]). Cheap and unreliable; used late in every list.
func AttrContains(fragment string, minLen, maxLen int) Strategy {
	sel := `[class*="` + fragment + `"]`
	return func(p *Page) Result {
		var value string
		p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := normalizeSpace(s.Text())
			if text != "" {
				value = text
				return false
			}
			return true
		})
		if value == "" {
			return miss(MissNotFound)
		}
		cleaned, ok := Clean(value)
		if !ok {
			return miss(MissDenylisted)
		}
		if !plausible(cleaned, minLen, maxLen) {
			return miss(MissImplausible)
		}
		return hit(cleaned)
	}
}

// PageRegex scans the full page text as a last resort. The sanity bounds
// keep a legal notice or a navigation menu from being mistaken for content.
func PageRegex(re *regexp.Regexp, group, minLen, maxLen int) Strategy {
	return func(p *Page) Result {
		m := re.FindStringSubmatch(p.text)
		if m == nil || len(m) <= group {
			return miss(MissNotFound)
		}
		cleaned, ok := Clean(m[group])
		if !ok {
			return miss(MissDenylisted)
		}
		if !plausible(cleaned, minLen, maxLen) {
			return miss(MissImplausible)
		}
		return hit(cleaned)
	}
}

// After restricts a strategy to the part of the page text that follows the
// first occurrence of an anchor label. Only text strategies (PageRegex) see
// the restriction; element strategies keep scanning the full document. Used
// to keep the hook lookup from re-matching the transcript section.
func After(anchorLabels []string, inner Strategy) Strategy {
	return func(p *Page) Result {
		for _, anchor := range anchorLabels {
			idx := strings.Index(p.text, anchor)
			if idx < 0 {
				continue
			}
			sub := &Page{doc: p.doc, text: p.text[idx+len(anchor):]}
			return inner(sub)
		}
		return miss(MissNotFound)
	}
}

// ---- helpers --------------------------------------------------------------

// ownText returns the text held directly by the element, excluding children.
func ownText(sel *goquery.Selection) string {
	return sel.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == "#text"
	}).Text()
}

// splitAfter returns the text that follows the label.
func splitAfter(text, label string) (string, bool) {
	idx := strings.Index(text, label)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len(label):]), true
}

// deepestContaining finds the element deepest in the tree whose subtree
// text contains the label.
func deepestContaining(root *goquery.Selection, label string) *goquery.Selection {
	var best *goquery.Selection
	bestDepth := -1
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(s.Text(), label) {
			return
		}
		depth := s.ParentsFiltered("*").Length()
		if depth > bestDepth {
			best = s
			bestDepth = depth
		}
	})
	return best
}
