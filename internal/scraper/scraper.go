package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanSnippet turns a search snippet into plain text: stray HTML tags are
// stripped, entities decoded and runs of whitespace collapsed.
func CleanSnippet(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			// drop non-content nodes before taking the text
			doc.Find("script, style, noscript").Remove()
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes and appends "..." when something was cut.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
