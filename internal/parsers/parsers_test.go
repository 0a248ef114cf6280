package parsers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemCodeParserExtractsSortedItems(t *testing.T) {
	t.Parallel()

	raw := `<html><body>
	<p>Item 9.01 Financial Statements and Exhibits</p>
	<p>Item 1.01 Entry into a Material Definitive Agreement</p>
	<p>As described under Item 1.01 above...</p>
	</body></html>`

	doc := itemCodeParser{}.Parse(raw)

	require.Equal(t, []string{"1.01", "9.01"}, doc.Fields["items"])
	require.Equal(t, true, doc.Fields["has_bullish_items"])
	require.Equal(t, false, doc.Fields["has_bearish_items"])

	descs, ok := doc.Fields["item_descriptions"].([]map[string]string)
	require.True(t, ok)
	require.Len(t, descs, 2)
	require.Equal(t, "Entry into a Material Definitive Agreement", descs[0]["description"])
}

func TestItemCodeParserBearish(t *testing.T) {
	t.Parallel()

	doc := itemCodeParser{}.Parse("Item 1.03 Bankruptcy or Receivership")
	require.Equal(t, true, doc.Fields["has_bearish_items"])
	require.Equal(t, false, doc.Fields["has_bullish_items"])
}

const form4XML = `<?xml version="1.0"?>
<ownershipDocument>
  <issuer>
    <issuerName>Example Corp</issuerName>
    <issuerTradingSymbol>EXM</issuerTradingSymbol>
  </issuer>
  <reportingOwner>
    <reportingOwnerId>
      <rptOwnerName>Doe Jane</rptOwnerName>
    </reportingOwnerId>
    <reportingOwnerRelationship>
      <isDirector>1</isDirector>
      <isOfficer>1</isOfficer>
      <officerTitle>CEO</officerTitle>
    </reportingOwnerRelationship>
  </reportingOwner>
  <nonDerivativeTable>
    <nonDerivativeTransaction>
      <transactionCoding>
        <transactionCode>P</transactionCode>
      </transactionCoding>
      <transactionAmounts>
        <transactionShares><value>10,000</value></transactionShares>
        <transactionPricePerShare><value>25.50</value></transactionPricePerShare>
        <transactionAcquiredDisposedCode><value>A</value></transactionAcquiredDisposedCode>
      </transactionAmounts>
      <postTransactionAmounts>
        <sharesOwnedFollowingTransaction><value>150000</value></sharesOwnedFollowingTransaction>
      </postTransactionAmounts>
    </nonDerivativeTransaction>
  </nonDerivativeTable>
</ownershipDocument>`

func TestInsiderParserStructured(t *testing.T) {
	t.Parallel()

	doc := insiderParser{}.Parse("<html><body>prefix" + form4XML + "suffix</body></html>")

	require.Equal(t, "Example Corp", doc.Fields["issuer_name"])
	require.Equal(t, "EXM", doc.Fields["issuer_ticker"])
	require.Equal(t, "Doe Jane", doc.Fields["owner_name"])
	require.Equal(t, []string{"Director", "Officer", "Title: CEO"}, doc.Fields["relationships"])
	require.Equal(t, "P", doc.Fields["transaction_type"])
	require.InDelta(t, 255000.0, doc.Fields["total_transaction_value"], 0.001)

	txns, ok := doc.Fields["transactions"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, txns, 1)
	require.Equal(t, "Purchase", txns[0]["code_description"])
	require.InDelta(t, 10000.0, txns[0]["shares"], 0.001)
	require.InDelta(t, 150000.0, txns[0]["shares_after"], 0.001)

	require.Contains(t, doc.Text, "Form 4: Doe Jane (Director, Officer, Title: CEO)")
	require.Contains(t, doc.Text, "bought 10000 shares at $25.50")
}

func TestInsiderParserRenderedFallback(t *testing.T) {
	t.Parallel()

	doc := insiderParser{}.Parse("<html><body><table><td>Open market Sale of shares</td></table></body></html>")

	require.Equal(t, true, doc.Fields["parse_error"])
	require.Equal(t, "S", doc.Fields["transaction_type"])
}

func TestOfferingParser(t *testing.T) {
	t.Parallel()

	raw := `<html><body>
	<p>PROSPECTUS: We are offering 5,000,000 shares of common stock.</p>
	<p>The maximum aggregate offering price is $50 million.</p>
	<p>We intend to use the net proceeds for working capital and to fund research programs.</p>
	</body></html>`

	doc := offeringParser{}.Parse(raw)

	require.InDelta(t, 50_000_000.0, doc.Fields["max_offering_amount"], 0.001)
	require.InDelta(t, 5_000_000.0, doc.Fields["proposed_shares"], 0.001)
	require.Equal(t, "firm commitment", doc.Fields["offering_type"])
	require.Equal(t, false, doc.Fields["is_atm"])

	purposes, ok := doc.Fields["use_of_proceeds"].([]string)
	require.True(t, ok)
	require.Contains(t, purposes, "working_capital")
	require.Contains(t, purposes, "growth")
}

func TestOfferingParserATMPrecedence(t *testing.T) {
	t.Parallel()

	raw := "This prospectus covers an at-the-market offering under our shelf registration statement."
	doc := offeringParser{}.Parse(raw)

	require.Equal(t, "ATM (at-the-market)", doc.Fields["offering_type"])
	require.Equal(t, true, doc.Fields["is_atm"])
	require.Equal(t, true, doc.Fields["is_shelf"])
	require.Equal(t, []string{"unspecified"}, doc.Fields["use_of_proceeds"])
}

func TestOwnershipParserActivist(t *testing.T) {
	t.Parallel()

	raw := `<html><body>
	<h1>SCHEDULE 13D</h1>
	<p>Name of Reporting Person: Activist Capital Partners LP</p>
	<p>Aggregate amount beneficially owned: 8.5% of the class</p>
	<p>Item 4. Purpose of Transaction. The Reporting Person intends to seek board representation
	and may propose strategic alternatives.</p>
	<p>Item 5. Interest in Securities.</p>
	</body></html>`

	doc := ownershipParser{}.Parse(raw)

	require.Equal(t, "13D", doc.Fields["form_subtype"])
	require.Contains(t, doc.Fields["filer_name"], "Activist Capital Partners")
	require.InDelta(t, 8.5, doc.Fields["ownership_pct"], 0.001)
	require.Equal(t, "activist", doc.Fields["strategy"])
	require.Equal(t, true, doc.Fields["has_activism_language"])
	require.Contains(t, doc.Fields["purpose_excerpt"], "board representation")
}

func TestOwnershipParserPassive13G(t *testing.T) {
	t.Parallel()

	raw := `SCHEDULE 13G. Filed by: Index Fund Advisors. The securities were acquired
	for investment purposes only. Aggregate ownership of 6.2% of the outstanding shares.`

	doc := ownershipParser{}.Parse(raw)

	require.Equal(t, "13G", doc.Fields["form_subtype"])
	require.Equal(t, "passive", doc.Fields["strategy"])
	require.Equal(t, false, doc.Fields["has_activism_language"])
}

func TestPeriodicParserFinancials(t *testing.T) {
	t.Parallel()

	raw := `<html><body>
	<p>Total revenues: $1,234.5</p>
	<p>Net income: $200.1</p>
	<p>Diluted earnings per share: $1.25</p>
	<p>Cash and cash equivalents: $5,000</p>
	<p>Management's Discussion and Analysis. We delivered strong demand and record revenue
	this quarter despite inflation and supply chain headwinds. Inflation remains elevated.</p>
	</body></html>`

	doc := periodicParser{}.Parse(raw)

	require.InDelta(t, 1234.5, doc.Fields["revenue"], 0.001)
	require.InDelta(t, 200.1, doc.Fields["net_income"], 0.001)
	require.InDelta(t, 1.25, doc.Fields["eps"], 0.001)
	require.InDelta(t, 5000.0, doc.Fields["cash_and_equivalents"], 0.001)
	require.Equal(t, false, doc.Fields["ixbrl_detected"])

	risk, ok := doc.Fields["risk_mentions"].(map[string]int)
	require.True(t, ok)
	require.Equal(t, 2, risk["inflation"])
	require.Equal(t, 1, risk["supply chain"])

	positive, ok := doc.Fields["positive_mentions"].(map[string]int)
	require.True(t, ok)
	require.Contains(t, positive, "strong demand")
	require.Contains(t, positive, "record revenue")

	top, ok := doc.Fields["top_risk_factors"].([]string)
	require.True(t, ok)
	require.Equal(t, "inflation", top[0])

	// 2 positive keywords vs 3 risk keywords.
	require.Equal(t, -1, doc.Fields["sentiment_score"])
}

func TestPeriodicParserInlineXBRL(t *testing.T) {
	t.Parallel()

	raw := `<html><body>
	<ix:nonFraction name="us-gaap:Revenues">1000</ix:nonFraction>
	<ix:nonFraction name="us-gaap:NetIncomeLoss">50</ix:nonFraction>
	<p>Quarterly report body.</p>
	</body></html>`

	doc := periodicParser{}.Parse(raw)

	require.Equal(t, true, doc.Fields["ixbrl_detected"])
	require.Equal(t, 2, doc.Fields["ixbrl_fact_count"])

	sample, ok := doc.Fields["ixbrl_sample"].(map[string]string)
	require.True(t, ok)
	require.Equal(t, "1000", sample["us-gaap:Revenues"])
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	// Amendments route to the base form's parser.
	doc := r.Parse("8-K/A", "Item 2.02 Results of Operations")
	require.Contains(t, doc.Fields, "items")

	// Unknown forms get the fallback with the form type recorded.
	doc = r.Parse("6-K", "<p>Foreign issuer report</p>")
	require.Equal(t, "6-K", doc.Fields["form_type"])
	require.Equal(t, "Foreign issuer report", doc.Text)
}

func TestStripMarkupRemovesScriptAndStyle(t *testing.T) {
	t.Parallel()

	raw := `<html><head><style>body { color: red; }</style></head>
	<body><script>alert("x")</script><p>Visible   text</p></body></html>`

	text := stripMarkup(raw)
	require.Equal(t, "Visible text", text)
}
