package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches elements that never carry article text.
const noiseSelector = "nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup"

// DefaultTextSelectors lists generic main-content containers, most specific last.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		".content",
		"#content",
		".main-content",
		"#main-content",
		"[role='main']",
	}
}

// mainSelection strips noise from doc in place and returns the first element
// matching selectors, or body when none match.
func mainSelection(doc *goquery.Document, selectors, noise []string) *goquery.Selection {
	doc.Find(noiseSelector).Remove()
	if len(noise) > 0 {
		doc.Find(strings.Join(noise, ", ")).Remove()
	}
	for _, selector := range selectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel.First()
		}
	}
	return doc.Find("body")
}

// cleanWhitespace trims every line and drops blank ones.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
