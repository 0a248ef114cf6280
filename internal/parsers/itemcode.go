package parsers

import (
	"regexp"
	"sort"

	"github.com/secpulse/secpulse/internal/filing"
)

// itemDescriptions maps 8-K item codes to event descriptions.
var itemDescriptions = map[string]string{
	"1.01": "Entry into a Material Definitive Agreement",
	"1.02": "Termination of a Material Definitive Agreement",
	"1.03": "Bankruptcy or Receivership",
	"2.01": "Completion of Acquisition or Disposition of Assets",
	"2.02": "Results of Operations and Financial Condition",
	"2.03": "Creation of a Direct Financial Obligation",
	"2.04": "Triggering Events That Accelerate or Increase a Direct Financial Obligation",
	"2.05": "Costs Associated with Exit or Disposal Activities",
	"2.06": "Material Impairments",
	"3.01": "Notice of Delisting or Failure to Satisfy Listing Standard",
	"3.02": "Unregistered Sales of Equity Securities",
	"3.03": "Material Modification to Rights of Security Holders",
	"4.01": "Changes in Registrant's Certifying Accountant",
	"4.02": "Non-Reliance on Previously Issued Financial Statements",
	"5.01": "Changes in Control of Registrant",
	"5.02": "Departure of Directors or Certain Officers; Appointment of Certain Officers",
	"5.03": "Amendments to Articles of Incorporation or Bylaws",
	"5.04": "Temporary Suspension of Trading Under Employee Benefit Plans",
	"5.05": "Amendments to the Code of Ethics",
	"5.06": "Change in Shell Company Status",
	"5.07": "Submission of Matters to a Vote of Security Holders",
	"5.08": "Shareholder Nominations",
	"7.01": "Regulation FD Disclosure",
	"8.01": "Other Events",
	"9.01": "Financial Statements and Exhibits",
}

// BullishItems and BearishItems code the directional read of 8-K items; the
// heuristic classifier keys off intersection with these sets.
var (
	BullishItems = map[string]struct{}{
		"1.01": {}, "2.01": {}, "2.02": {}, "5.03": {}, "5.07": {}, "5.08": {},
	}
	BearishItems = map[string]struct{}{
		"1.02": {}, "1.03": {}, "2.04": {}, "2.05": {}, "2.06": {},
		"3.01": {}, "3.03": {}, "4.02": {}, "5.02": {}, "5.06": {},
	}
)

var itemCodeRE = regexp.MustCompile(`(?i)Item\s+(\d+\.\d+)`)

// itemCodeParser handles item-code disclosure forms (8-K).
type itemCodeParser struct{}

func (itemCodeParser) Parse(raw string) filing.ParsedDocument {
	text := stripMarkup(raw)

	seen := make(map[string]struct{})
	var items []string
	for _, m := range itemCodeRE.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		items = append(items, code)
	}
	sort.Strings(items)

	descriptions := make([]map[string]string, 0, len(items))
	hasBullish, hasBearish := false, false
	for _, code := range items {
		desc, ok := itemDescriptions[code]
		if !ok {
			desc = "Unknown"
		}
		descriptions = append(descriptions, map[string]string{
			"code":        code,
			"description": desc,
		})
		if _, ok := BullishItems[code]; ok {
			hasBullish = true
		}
		if _, ok := BearishItems[code]; ok {
			hasBearish = true
		}
	}

	return filing.ParsedDocument{
		Text: text,
		Fields: map[string]any{
			"items":             items,
			"item_descriptions": descriptions,
			"has_bullish_items": hasBullish,
			"has_bearish_items": hasBearish,
		},
	}
}
