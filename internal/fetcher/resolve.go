package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrNoDocument indicates the index page listed no usable document links.
var ErrNoDocument = errors.New("no document links on index page")

const archivePrefix = "/Archives/edgar/data/"

// ResolveDocumentURL downloads the filing index page and picks the actual
// document URL out of its link table.
func (f *Fetcher) ResolveDocumentURL(ctx context.Context, indexURL string) (string, error) {
	page, err := f.Download(ctx, indexURL)
	if err != nil {
		return "", fmt.Errorf("download index page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse index page: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isDocumentLink(href) {
			links = append(links, href)
		}
	})
	if len(links) == 0 {
		return "", ErrNoDocument
	}

	best := selectBest(links)

	base, err := url.Parse(indexURL)
	if err != nil {
		return "", fmt.Errorf("parse index url: %w", err)
	}
	ref, err := url.Parse(best)
	if err != nil {
		return "", fmt.Errorf("parse document link %q: %w", best, err)
	}
	resolved := rewriteInlineViewer(base.ResolveReference(ref))

	f.logger.Debug("resolved filing document",
		zap.String("index_url", indexURL),
		zap.String("doc_url", resolved.String()),
	)
	return resolved.String(), nil
}

// isDocumentLink retains links that look like filing documents: .htm/.html/
// .xml, not an index page, and either a bare filename or a path rooted under
// the filing archive.
func isDocumentLink(href string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	if !strings.HasSuffix(lower, ".htm") &&
		!strings.HasSuffix(lower, ".html") &&
		!strings.HasSuffix(lower, ".xml") {
		return false
	}
	if strings.Contains(lower, "-index.") {
		return false
	}
	if !strings.Contains(href, "/") {
		return true
	}
	return strings.Contains(href, archivePrefix)
}

// selectBest applies the selection policy: prefer .htm/.html that is not a
// rendered-view artifact, then any non-XSLT link, then the first candidate.
func selectBest(links []string) string {
	for _, link := range links {
		lower := strings.ToLower(link)
		name := link[strings.LastIndex(link, "/")+1:]
		if isRenderedExhibit(name) || strings.Contains(lower, "/xsl") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), ".htm") ||
			strings.HasSuffix(strings.ToLower(name), ".html") {
			return link
		}
	}
	for _, link := range links {
		if !strings.Contains(strings.ToLower(link), "/xsl") {
			return link
		}
	}
	return links[0]
}

// isRenderedExhibit matches XBRL viewer artifacts like R1.htm, R2.htm.
func isRenderedExhibit(name string) bool {
	if len(name) < 2 || name[0] != 'R' {
		return false
	}
	return name[1] >= '0' && name[1] <= '9'
}

// rewriteInlineViewer converts an inline-viewer URL (.../ix?doc=<path>) to
// the underlying raw-document URL.
func rewriteInlineViewer(u *url.URL) *url.URL {
	if !strings.HasSuffix(u.Path, "/ix") {
		return u
	}
	doc := u.Query().Get("doc")
	if doc == "" {
		return u
	}
	ref, err := url.Parse(doc)
	if err != nil {
		return u
	}
	return u.ResolveReference(ref)
}
