package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/secpulse/secpulse/internal/filing"
)

var (
	percentRE  = regexp.MustCompile(`(\d+\.?\d*)\s*%`)
	schedule13 = regexp.MustCompile(`(?i)schedule\s+13D`)
	filerRE    = regexp.MustCompile(`(?i)(?:name\s+of\s+reporting\s+person|filed\s+by)[:\s]*([A-Z][\w\s,.'&-]{3,60})`)
	purposeRE  = regexp.MustCompile(`(?is)item\s*4[^.:]{0,80}[:.]\s*(.*?)(?:item\s*5|$)`)

	activismRE = regexp.MustCompile(`(?i)board\s+seat|board\s+representation|strategic\s+alternative|` +
		`change\s+in\s+control|extraordinary\s+transaction|merger|` +
		`proxy\s+contest|replace\s+management|special\s+meeting`)
	passiveRE = regexp.MustCompile(`(?i)investment\s+purposes?\s+only|passive\s+invest|ordinary\s+course`)
)

// Label-anchored extractions are bounded to the cover pages.
const (
	subtypeWindow = 2000
	filerWindow   = 3000
	percentWindow = 5000
	purposeMax    = 500
)

// ownershipParser handles large-ownership forms (Schedule 13D/13G family).
type ownershipParser struct{}

func (ownershipParser) Parse(raw string) filing.ParsedDocument {
	text := stripMarkup(raw)

	is13D := schedule13.MatchString(head(text, subtypeWindow))
	subtype := "13G"
	if is13D {
		subtype = "13D"
	}

	var ownershipPct any
	var percents []float64
	for _, m := range percentRE.FindAllStringSubmatch(head(text, percentWindow), -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 || v > 100 {
			continue
		}
		percents = append(percents, v)
	}
	if len(percents) > 0 {
		ownershipPct = maxFloat(percents)
	}

	filerName := "Unknown"
	if m := filerRE.FindStringSubmatch(head(text, filerWindow)); m != nil {
		filerName = strings.TrimSpace(m[1])
	}

	hasActivism := activismRE.MatchString(text)
	hasPassive := passiveRE.MatchString(text)

	var strategy string
	switch {
	case is13D && hasActivism:
		strategy = "activist"
	case hasPassive:
		strategy = "passive"
	case is13D:
		strategy = "potentially activist"
	default:
		strategy = "passive"
	}

	purpose := ""
	if m := purposeRE.FindStringSubmatch(text); m != nil {
		purpose = head(strings.TrimSpace(m[1]), purposeMax)
	}

	return filing.ParsedDocument{
		Text: text,
		Fields: map[string]any{
			"form_subtype":          subtype,
			"filer_name":            filerName,
			"ownership_pct":         ownershipPct,
			"strategy":              strategy,
			"has_activism_language": hasActivism,
			"purpose_excerpt":       purpose,
		},
	}
}
