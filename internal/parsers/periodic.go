package parsers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/secpulse/secpulse/internal/filing"
)

var (
	revenueRE   = regexp.MustCompile(`(?i)(?:total\s+)?(?:net\s+)?revenue[s]?\s*[:\s]*\$?\s*([\d,]+(?:\.\d+)?)`)
	netIncomeRE = regexp.MustCompile(`(?i)net\s+(?:income|loss)\s*[:\s]*\$?\s*\(?\s*([\d,]+(?:\.\d+)?)\s*\)?`)
	epsRE       = regexp.MustCompile(`(?i)(?:basic|diluted)\s+(?:net\s+)?(?:income|loss|earnings)\s+per\s+(?:common\s+)?share\s*[:\s]*\$?\s*\(?\s*([\d.]+)\s*\)?`)
	cashRE      = regexp.MustCompile(`(?i)cash\s+and\s+cash\s+equivalents\s*[:\s]*\$?\s*([\d,]+(?:\.\d+)?)`)
	mdaRE       = regexp.MustCompile(`(?i)management['’]?s?\s+discussion\s+and\s+analysis`)
)

// Fixed vocabularies for the MD&A keyword frequency scan.
var (
	riskKeywords = []string{
		"supply chain", "headwinds", "inflation", "recession", "uncertainty",
		"litigation", "regulatory", "cybersecurity", "impairment", "restructuring",
		"tariff", "geopolitical", "liquidity", "default", "downgrade",
	}
	positiveKeywords = []string{
		"growth", "momentum", "strong demand", "record revenue", "expansion",
		"improved margin", "exceeded expectations", "tailwind", "innovation",
	}
)

const (
	mdaWindow   = 10000
	ixbrlSample = 10
)

// periodicParser handles periodic financial reports (10-Q/10-K), including
// the inline XBRL fact overlay embedded in the markup.
type periodicParser struct{}

func (p periodicParser) Parse(raw string) filing.ParsedDocument {
	var text string
	ixCount := 0
	ixFacts := map[string]string{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		text = stripMarkupCrude(raw)
	} else {
		doc.Find("*").Each(func(_ int, s *goquery.Selection) {
			if !strings.HasPrefix(goquery.NodeName(s), "ix:") {
				return
			}
			ixCount++
			name, ok := s.Attr("name")
			if !ok || name == "" {
				return
			}
			if _, dup := ixFacts[name]; !dup && len(ixFacts) < ixbrlSample {
				ixFacts[name] = collapseSpace(s.Text())
			}
		})
		doc.Find("script, style").Remove()
		text = collapseSpace(doc.Text())
	}

	fields := map[string]any{
		"revenue":              firstNumber(revenueRE, text),
		"net_income":           firstNumber(netIncomeRE, text),
		"eps":                  firstNumber(epsRE, text),
		"cash_and_equivalents": firstNumber(cashRE, text),
		"ixbrl_detected":       ixCount > 0,
		"ixbrl_fact_count":     ixCount,
		"ixbrl_sample":         ixFacts,
	}

	// Financial labels can appear late in long documents, so metric
	// extraction above scans the full text; only the MD&A sentiment window
	// is bounded.
	mda := text
	if loc := mdaRE.FindStringIndex(text); loc != nil {
		mda = text[loc[0]:]
	}
	mda = head(mda, mdaWindow)

	riskMentions := keywordCounts(mda, riskKeywords)
	positiveMentions := keywordCounts(mda, positiveKeywords)

	fields["risk_mentions"] = riskMentions
	fields["positive_mentions"] = positiveMentions
	fields["top_risk_factors"] = topKeywords(riskMentions, 3)
	fields["sentiment_score"] = len(positiveMentions) - len(riskMentions)

	return filing.ParsedDocument{Text: text, Fields: fields}
}

func firstNumber(re *regexp.Regexp, text string) any {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := parseFloat(m[1])
	if err != nil {
		return nil
	}
	return v
}

func keywordCounts(text string, vocabulary []string) map[string]int {
	counts := make(map[string]int)
	for _, kw := range vocabulary {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
			counts[kw] = n
		}
	}
	return counts
}

func topKeywords(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
