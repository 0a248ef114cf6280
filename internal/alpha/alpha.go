// Package alpha implements the rule-based heuristic pre-classifier. It runs
// before the generative model to provide a fast signal and serves as the
// fallback when the model is unavailable or times out.
package alpha

import (
	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/parsers"
)

// PreClassify returns a fast heuristic impact score, always an integer in
// [-100, 100], for any combination of segment and fields, including
// incomplete ones.
func PreClassify(segment filing.Segment, fields map[string]any) int {
	switch segment {
	case filing.SegmentCatalyst:
		items := stringSlice(fields["items"])
		if intersects(items, parsers.BearishItems) {
			return -70
		}
		if intersects(items, parsers.BullishItems) {
			return 70
		}
		return 0

	case filing.SegmentWhale:
		subtype, _ := fields["form_subtype"].(string)
		strategy, _ := fields["strategy"].(string)
		if subtype == "13D" && strategy == "activist" {
			return 80
		}
		if subtype == "13D" {
			return 60
		}
		if pct, ok := asFloat(fields["ownership_pct"]); ok && pct > 5 {
			return 40
		}
		return 0

	case filing.SegmentPulse:
		sentiment, _ := asInt(fields["sentiment_score"])
		return filing.ClampImpact(sentiment * 20)
	}

	return 0
}

func intersects(items []string, set map[string]struct{}) bool {
	for _, item := range items {
		if _, ok := set[item]; ok {
			return true
		}
	}
	return false
}

// stringSlice tolerates both []string and []any shapes, since fields may
// round-trip through JSON.
func stringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
