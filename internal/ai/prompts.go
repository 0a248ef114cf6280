package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/secpulse/secpulse/internal/filing"
)

const responseFormat = `Respond in EXACTLY this JSON format:
{"summary": "<2-3 sentence summary>", "impact": <integer -100 to 100 where -100=extremely bearish, 0=neutral, 100=extremely bullish>, "reasons": ["<reason1>", "<reason2>"]}`

// segmentFraming gives the model the analytical angle for each segment.
var segmentFraming = map[filing.Segment]string{
	filing.SegmentCatalyst: "Focus on the disclosed corporate event and its likely near-term price impact.",
	filing.SegmentWhale:    "Focus on the ownership stake, the filer's intent, and activism signals.",
	filing.SegmentPulse:    "Focus on reported financials, guidance tone, and disclosed risks.",
}

const promptTextBudget = 6000

// buildSinglePrompt renders the one-shot prompt for short filings.
func buildSinglePrompt(req filing.ClassifyRequest) string {
	return buildPrompt(req, truncate(req.Text, promptTextBudget))
}

// buildConsolidationPrompt renders the phase-two prompt combining chunk
// summaries with the structured fields.
func buildConsolidationPrompt(req filing.ClassifyRequest, chunkSummaries []string) string {
	var combined strings.Builder
	for i, s := range chunkSummaries {
		fmt.Fprintf(&combined, "[Excerpt %d summary]: %s\n\n", i+1, s)
	}
	return buildPrompt(req, truncate(combined.String(), promptTextBudget))
}

// buildChunkPrompt renders the phase-one prompt that summarizes one chunk.
func buildChunkPrompt(req filing.ClassifyRequest, chunk string) string {
	return fmt.Sprintf(
		"You are a financial analyst. Summarize this SEC filing excerpt from %s (%s) "+
			"in 2-3 sentences focusing on key financial facts, risks, and signals:\n\n%s",
		req.Company, req.FormType, chunk,
	)
}

func buildPrompt(req filing.ClassifyRequest, text string) string {
	ticker := req.Ticker
	if ticker == "" {
		ticker = "N/A"
	}
	fieldsJSON, err := json.MarshalIndent(req.Fields, "", "  ")
	if err != nil {
		fieldsJSON = []byte("{}")
	}
	framing := segmentFraming[req.Segment]

	var b strings.Builder
	b.WriteString("You are a financial analyst. Analyze this SEC filing and provide a brief assessment. ")
	b.WriteString(framing)
	fmt.Fprintf(&b, "\n\nCompany: %s (%s)\nForm: %s\n\nStructured data:\n%s\n\nFiling excerpt:\n%s\n\n",
		req.Company, ticker, req.FormType, fieldsJSON, text)
	b.WriteString(responseFormat)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
