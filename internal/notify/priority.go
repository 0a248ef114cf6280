// Package notify derives delivery priority for processed filings.
package notify

import "github.com/secpulse/secpulse/internal/filing"

// Priority levels attached to outbound filing records.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// highImpactThreshold is the absolute impact score above which a filing is
// always treated as high priority regardless of form type.
const highImpactThreshold = 20

// Compute returns the priority for a classified filing. Strong impact in
// either direction wins; otherwise event-driven forms rank above routine ones.
func Compute(impact int, formType string, segment filing.Segment) string {
	if impact > highImpactThreshold || impact < -highImpactThreshold {
		return PriorityHigh
	}
	base := filing.BaseForm(formType)
	if base == "8-K" || base == "SC 13D" {
		return PriorityMedium
	}
	switch segment {
	case filing.SegmentCatalyst, filing.SegmentWhale:
		return PriorityMedium
	}
	return PriorityLow
}
