package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/secpulse/secpulse/internal/filing"
)

var (
	dollarRE    = regexp.MustCompile(`(?i)\$\s*([\d,]+(?:\.\d+)?)\s*(million|billion|thousand)?`)
	sharesRE    = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*shares`)
	atmRE       = regexp.MustCompile(`(?i)at[-\s]the[-\s]market`)
	shelfRE     = regexp.MustCompile(`(?i)shelf\s+registration`)
	secondaryRE = regexp.MustCompile(`(?i)secondary\s+offering`)
)

// proceedsKeywords classifies use-of-proceeds language over the full text.
var proceedsKeywords = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{"growth", regexp.MustCompile(`(?i)growth|expansion|acquisition|research|development|R&D`)},
	{"debt", regexp.MustCompile(`(?i)debt|repay|refinanc|credit\s+facilit|indebtedness`)},
	{"working_capital", regexp.MustCompile(`(?i)working\s+capital|general\s+corporate|operating\s+expenses`)},
}

// Offering type keywords live on the cover page, so the search is bounded to
// the document head.
const offeringTypeWindow = 10000

// offeringParser handles offering/dilution forms (S-1, S-3, 424B series).
type offeringParser struct{}

func (offeringParser) Parse(raw string) filing.ParsedDocument {
	text := stripMarkup(raw)

	var maxOffering any
	if amounts := dollarAmounts(text); len(amounts) > 0 {
		maxOffering = maxFloat(amounts)
	}

	var maxShares any
	var shares []float64
	for _, m := range sharesRE.FindAllStringSubmatch(text, -1) {
		if v, err := parseFloat(m[1]); err == nil {
			shares = append(shares, v)
		}
	}
	if len(shares) > 0 {
		maxShares = maxFloat(shares)
	}

	cover := head(text, offeringTypeWindow)
	isATM := atmRE.MatchString(cover)
	isShelf := shelfRE.MatchString(cover)

	offeringType := "firm commitment"
	switch {
	case isATM:
		offeringType = "ATM (at-the-market)"
	case isShelf:
		offeringType = "shelf registration"
	case secondaryRE.MatchString(cover):
		offeringType = "secondary offering"
	}

	var purposes []string
	for _, kw := range proceedsKeywords {
		if kw.pattern.MatchString(text) {
			purposes = append(purposes, kw.category)
		}
	}
	if len(purposes) == 0 {
		purposes = []string{"unspecified"}
	}

	return filing.ParsedDocument{
		Text: head(text, 20000),
		Fields: map[string]any{
			"max_offering_amount": maxOffering,
			"proposed_shares":     maxShares,
			"offering_type":       offeringType,
			"is_atm":              isATM,
			"is_shelf":            isShelf,
			"use_of_proceeds":     purposes,
		},
	}
}

// dollarAmounts finds every dollar figure, normalizing multiplier words to a
// raw numeric value.
func dollarAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range dollarRE.FindAllStringSubmatch(text, -1) {
		v, err := parseFloat(m[1])
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "billion":
			v *= 1_000_000_000
		case "million":
			v *= 1_000_000
		case "thousand":
			v *= 1_000
		}
		amounts = append(amounts, v)
	}
	return amounts
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
