// Package feed polls the EDGAR Atom feed and normalizes its entries.
package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/secpulse/secpulse/internal/filing"
)

// titleRE matches announcement titles of the shape
// "424B2 - BofA Finance LLC (0001682472) (Filer)". Entries whose title does
// not match are not filing announcements and are dropped.
// The separator requires surrounding whitespace so hyphenated form types
// ("8-K") do not split early.
var titleRE = regexp.MustCompile(`^([\w\-/\s]+?)\s+-\s+(.*?)\s*\((\d{10})\)\s*\((.*?)\)$`)

// accessionRE extracts the accession number from the entry id URN, e.g.
// "urn:tag:sec.gov,2008:accession-number=0001193125-26-055710".
var accessionRE = regexp.MustCompile(`accession-number=([\d-]+)`)

// Normalize converts one raw feed entry into a Filing. The second return is
// false when the entry is not a filing announcement or its form type maps to
// no monitored segment.
func Normalize(item *gofeed.Item, tickers *TickerTable) (filing.Filing, bool) {
	if item == nil {
		return filing.Filing{}, false
	}

	// Declared form type comes from structured category metadata when
	// present; the title is the fallback.
	formType := ""
	if len(item.Categories) > 0 {
		formType = strings.TrimSpace(item.Categories[0])
	}

	m := titleRE.FindStringSubmatch(item.Title)
	if m == nil {
		return filing.Filing{}, false
	}
	if formType == "" {
		formType = strings.TrimSpace(m[1])
	}
	company := strings.TrimSpace(m[2])
	cik := strings.TrimSpace(m[3])

	accession := item.GUID
	if acc := accessionRE.FindStringSubmatch(item.GUID); acc != nil {
		accession = acc[1]
	}

	segment, ok := filing.SegmentFor(formType)
	if !ok {
		return filing.Filing{}, false
	}

	var filedAt time.Time
	if item.UpdatedParsed != nil {
		filedAt = item.UpdatedParsed.UTC()
	} else if item.PublishedParsed != nil {
		filedAt = item.PublishedParsed.UTC()
	}

	return filing.Filing{
		AccessionID: accession,
		FormType:    formType,
		Segment:     segment,
		CompanyName: company,
		CIK:         cik,
		Ticker:      tickers.Lookup(cik),
		IndexURL:    item.Link,
		FiledAt:     filedAt,
	}, true
}
