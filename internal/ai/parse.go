package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/secpulse/secpulse/internal/filing"
)

var (
	fencedJSONRE   = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	anchoredJSONRE = regexp.MustCompile(`(?s)\{[^{}]*"summary"[^{}]*\}`)
)

const (
	syntheticSummaryMax = 300
	unparsedReason      = "Could not parse structured model response"
)

// modelReply is the structured shape the model is asked to produce. Impact is
// left raw because models return strings, floats, or nothing at all.
type modelReply struct {
	Summary string          `json:"summary"`
	Impact  json.RawMessage `json:"impact"`
	Signal  json.RawMessage `json:"signal"`
	Reasons []string        `json:"reasons"`
}

// parseReply extracts a Classification from the model's free-text response,
// degrading through: direct JSON, JSON inside a fenced code block, a
// "summary"-keyed object embedded in prose, and finally a synthetic result
// built from the raw text.
func parseReply(text string) filing.Classification {
	text = strings.TrimSpace(text)

	if c, ok := decodeReply(text); ok {
		return c
	}
	if m := fencedJSONRE.FindStringSubmatch(text); m != nil {
		if c, ok := decodeReply(m[1]); ok {
			return c
		}
	}
	if m := anchoredJSONRE.FindString(text); m != "" {
		if c, ok := decodeReply(m); ok {
			return c
		}
	}

	return filing.Classification{
		Summary: truncate(text, syntheticSummaryMax),
		Impact:  0,
		Reasons: []string{unparsedReason},
	}
}

func decodeReply(s string) (filing.Classification, bool) {
	var reply modelReply
	if err := json.Unmarshal([]byte(s), &reply); err != nil {
		return filing.Classification{}, false
	}
	raw := reply.Impact
	if raw == nil {
		raw = reply.Signal
	}
	reasons := reply.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return filing.Classification{
		Summary: reply.Summary,
		Impact:  coerceImpact(raw),
		Reasons: reasons,
	}, true
}

// coerceImpact validates the model's impact value: legacy textual labels map
// to fixed scores, numbers are truncated to integers and clamped, and
// anything non-coercible becomes 0.
func coerceImpact(raw json.RawMessage) int {
	if raw == nil {
		return 0
	}

	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		switch strings.ToLower(label) {
		case "bullish":
			return 60
		case "bearish":
			return -60
		case "neutral":
			return 0
		}
		// Numeric string, e.g. "42".
		if f, err := strconv.ParseFloat(strings.TrimSpace(label), 64); err == nil {
			return filing.ClampImpact(int(f))
		}
		return 0
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return filing.ClampImpact(int(num))
	}
	return 0
}
