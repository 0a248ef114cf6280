package parsers

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/secpulse/secpulse/internal/filing"
)

// transactionCodes maps Form 4 transaction codes to descriptions.
var transactionCodes = map[string]string{
	"P": "Purchase",
	"S": "Sale",
	"A": "Award/Grant",
	"D": "Disposition (non-open-market)",
	"F": "Payment of exercise price or tax liability",
	"I": "Discretionary transaction",
	"M": "Exercise or conversion of derivative security",
	"C": "Conversion of derivative security",
	"E": "Expiration of short derivative position",
	"G": "Gift",
	"L": "Small acquisition",
	"W": "Acquisition or disposition by will or laws of descent",
	"Z": "Deposit into or withdrawal from voting trust",
	"J": "Other acquisition or disposition",
}

// ownershipXMLRE pulls the XML portion out of filings that wrap the document
// in HTML.
var ownershipXMLRE = regexp.MustCompile(`(?s)(<\?xml.*?</ownershipDocument>)`)

var (
	purchaseRE = regexp.MustCompile(`(?i)Purchase`)
	saleRE     = regexp.MustCompile(`(?i)Sale`)
)

type ownershipDocument struct {
	XMLName xml.Name `xml:"ownershipDocument"`
	Issuer  struct {
		Name   string `xml:"issuerName"`
		Ticker string `xml:"issuerTradingSymbol"`
	} `xml:"issuer"`
	Owner struct {
		ID struct {
			Name string `xml:"rptOwnerName"`
		} `xml:"reportingOwnerId"`
		Relationship *ownerRelationship `xml:"reportingOwnerRelationship"`
	} `xml:"reportingOwner"`
	NonDerivative struct {
		Transactions []insiderTransaction `xml:"nonDerivativeTransaction"`
	} `xml:"nonDerivativeTable"`
}

type ownerRelationship struct {
	IsDirector        string `xml:"isDirector"`
	IsOfficer         string `xml:"isOfficer"`
	IsTenPercentOwner string `xml:"isTenPercentOwner"`
	IsOther           string `xml:"isOther"`
	OfficerTitle      string `xml:"officerTitle"`
}

type insiderTransaction struct {
	Coding struct {
		Code string `xml:"transactionCode"`
	} `xml:"transactionCoding"`
	Amounts struct {
		Shares           xmlValue `xml:"transactionShares"`
		PricePerShare    xmlValue `xml:"transactionPricePerShare"`
		AcquiredDisposed xmlValue `xml:"transactionAcquiredDisposedCode"`
	} `xml:"transactionAmounts"`
	Post struct {
		SharesAfter xmlValue `xml:"sharesOwnedFollowingTransaction"`
	} `xml:"postTransactionAmounts"`
}

type xmlValue struct {
	Value string `xml:"value"`
}

func (v xmlValue) float() (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(v.Value), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// insiderParser handles the machine-readable insider-transaction form
// (Form 4). Structural parse failure falls back to markup-stripped text plus
// a crude purchase/sale keyword detector.
type insiderParser struct{}

func (p insiderParser) Parse(raw string) filing.ParsedDocument {
	payload := raw
	if m := ownershipXMLRE.FindStringSubmatch(raw); m != nil {
		payload = m[1]
	}

	var doc ownershipDocument
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return p.parseRendered(raw)
	}

	relationships := relationshipLabels(doc.Owner.Relationship)

	transactions := make([]map[string]any, 0, len(doc.NonDerivative.Transactions))
	totalValue := 0.0
	for _, txn := range doc.NonDerivative.Transactions {
		code := strings.TrimSpace(txn.Coding.Code)
		desc, ok := transactionCodes[code]
		if !ok {
			desc = "Unknown"
		}
		entry := map[string]any{
			"code":                 code,
			"code_description":     desc,
			"acquired_or_disposed": strings.TrimSpace(txn.Amounts.AcquiredDisposed.Value),
		}
		shares, hasShares := txn.Amounts.Shares.float()
		price, hasPrice := txn.Amounts.PricePerShare.float()
		if hasShares {
			entry["shares"] = shares
		}
		if hasPrice {
			entry["price_per_share"] = price
		}
		if after, ok := txn.Post.SharesAfter.float(); ok {
			entry["shares_after"] = after
		}
		if hasShares && hasPrice {
			totalValue += shares * price
		}
		transactions = append(transactions, entry)
	}

	transactionType := any(nil)
	if len(transactions) > 0 {
		transactionType = transactions[0]["code"]
	}

	summary := buildInsiderSummary(doc, relationships, transactions)

	return filing.ParsedDocument{
		Text: summary,
		Fields: map[string]any{
			"issuer_name":             strings.TrimSpace(doc.Issuer.Name),
			"issuer_ticker":           strings.TrimSpace(doc.Issuer.Ticker),
			"owner_name":              strings.TrimSpace(doc.Owner.ID.Name),
			"relationships":           relationships,
			"transactions":            transactions,
			"total_transaction_value": totalValue,
			"transaction_type":        transactionType,
		},
	}
}

// parseRendered handles XSLT-rendered views and other non-XML content.
func (insiderParser) parseRendered(raw string) filing.ParsedDocument {
	text := stripMarkupCrude(raw)
	fields := map[string]any{"parse_error": true}
	if purchaseRE.MatchString(text) {
		fields["transaction_type"] = "P"
	} else if saleRE.MatchString(text) {
		fields["transaction_type"] = "S"
	}
	return filing.ParsedDocument{Text: head(text, 4000), Fields: fields}
}

func relationshipLabels(rel *ownerRelationship) []string {
	labels := []string{}
	if rel == nil {
		return labels
	}
	flags := []struct {
		value string
		label string
	}{
		{rel.IsDirector, "Director"},
		{rel.IsOfficer, "Officer"},
		{rel.IsTenPercentOwner, "10% Owner"},
		{rel.IsOther, "Other"},
	}
	for _, f := range flags {
		v := strings.TrimSpace(f.value)
		if v == "1" || strings.EqualFold(v, "true") {
			labels = append(labels, f.label)
		}
	}
	if title := strings.TrimSpace(rel.OfficerTitle); title != "" {
		labels = append(labels, "Title: "+title)
	}
	return labels
}

func buildInsiderSummary(doc ownershipDocument, relationships []string, transactions []map[string]any) string {
	role := "Unknown role"
	if len(relationships) > 0 {
		role = strings.Join(relationships, ", ")
	}
	lines := []string{
		fmt.Sprintf("Form 4: %s (%s)", strings.TrimSpace(doc.Owner.ID.Name), role),
		fmt.Sprintf("Issuer: %s (%s)", strings.TrimSpace(doc.Issuer.Name), strings.TrimSpace(doc.Issuer.Ticker)),
	}
	for _, t := range transactions {
		code, _ := t["code"].(string)
		action := t["code_description"].(string)
		switch code {
		case "P":
			action = "bought"
		case "S":
			action = "sold"
		}
		sharesStr, priceStr := "N/A", "N/A"
		if shares, ok := t["shares"].(float64); ok {
			sharesStr = fmt.Sprintf("%.0f", shares)
		}
		if price, ok := t["price_per_share"].(float64); ok {
			priceStr = fmt.Sprintf("$%.2f", price)
		}
		lines = append(lines, fmt.Sprintf("  %s %s shares at %s", action, sharesStr, priceStr))
	}
	return strings.Join(lines, "\n")
}
