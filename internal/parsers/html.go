// Package parsers extracts text and structured fields from filing documents,
// dispatched by form type. Parsers are best-effort: malformed markup degrades
// to partial or empty fields, never an error.
package parsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	scriptRE = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRE  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRE    = regexp.MustCompile(`<[^>]+>`)
	spaceRE  = regexp.MustCompile(`\s+`)
)

// stripMarkup extracts readable text from HTML, dropping script and style
// content and collapsing whitespace. Garbled markup falls back to a crude
// regex strip so callers always get text.
func stripMarkup(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return stripMarkupCrude(raw)
	}
	doc.Find("script, style").Remove()
	return collapseSpace(doc.Text())
}

func stripMarkupCrude(raw string) string {
	text := styleRE.ReplaceAllString(raw, " ")
	text = scriptRE.ReplaceAllString(text, " ")
	text = tagRE.ReplaceAllString(text, " ")
	return collapseSpace(text)
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// head returns the first n bytes of s, tolerating short strings.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
