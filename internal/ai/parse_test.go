package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReplyDirectJSON(t *testing.T) {
	t.Parallel()

	c := parseReply(`{"summary": "Strong quarter.", "impact": 45, "reasons": ["revenue beat"]}`)
	require.Equal(t, "Strong quarter.", c.Summary)
	require.Equal(t, 45, c.Impact)
	require.Equal(t, []string{"revenue beat"}, c.Reasons)
}

func TestParseReplyFencedJSON(t *testing.T) {
	t.Parallel()

	reply := "Here is my assessment:\n```json\n{\"summary\": \"Dilutive offering.\", \"impact\": -30, \"reasons\": [\"new shares\"]}\n```\nLet me know if you need more."
	c := parseReply(reply)
	require.Equal(t, "Dilutive offering.", c.Summary)
	require.Equal(t, -30, c.Impact)
}

func TestParseReplyAnchoredJSON(t *testing.T) {
	t.Parallel()

	reply := `Sure! {"summary": "Activist stake disclosed.", "impact": 70, "reasons": []} Hope that helps.`
	c := parseReply(reply)
	require.Equal(t, "Activist stake disclosed.", c.Summary)
	require.Equal(t, 70, c.Impact)
}

func TestParseReplySynthetic(t *testing.T) {
	t.Parallel()

	c := parseReply("The filing describes a routine quarterly report with no notable events.")
	require.Equal(t, 0, c.Impact)
	require.Equal(t, []string{unparsedReason}, c.Reasons)
	require.Contains(t, c.Summary, "routine quarterly report")
}

func TestParseReplyLegacySignalKey(t *testing.T) {
	t.Parallel()

	c := parseReply(`{"summary": "Insider purchase.", "signal": "bullish"}`)
	require.Equal(t, 60, c.Impact)
	require.Equal(t, []string{}, c.Reasons)
}

func TestCoerceImpact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"integer", `42`, 42},
		{"float truncates", `55.9`, 55},
		{"clamped high", `250`, 100},
		{"clamped low", `-300`, -100},
		{"bullish label", `"bullish"`, 60},
		{"bearish label", `"BEARISH"`, -60},
		{"neutral label", `"neutral"`, 0},
		{"numeric string", `"35"`, 35},
		{"garbage string", `"very positive"`, 0},
		{"null", `null`, 0},
		{"object", `{"x":1}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, coerceImpact(json.RawMessage(tc.raw)))
		})
	}
	require.Equal(t, 0, coerceImpact(nil))
}

func TestParseReplyLongSyntheticTruncates(t *testing.T) {
	t.Parallel()

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'a'
	}
	c := parseReply(string(long))
	require.Len(t, c.Summary, syntheticSummaryMax)
}
