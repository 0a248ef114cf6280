package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/secpulse/secpulse/internal/filing"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		impact  int
		form    string
		segment filing.Segment
		want    string
	}{
		{"strong bullish", 55, "10-Q", filing.SegmentPulse, PriorityHigh},
		{"strong bearish", -30, "10-K", filing.SegmentPulse, PriorityHigh},
		{"boundary is not high", 20, "10-Q", filing.SegmentPulse, PriorityLow},
		{"8-K always at least medium", 0, "8-K", filing.SegmentCatalyst, PriorityMedium},
		{"8-K amendment", 5, "8-K/A", filing.SegmentCatalyst, PriorityMedium},
		{"13D always at least medium", 0, "SC 13D", filing.SegmentWhale, PriorityMedium},
		{"13D amendment", -10, "SC 13D/A", filing.SegmentWhale, PriorityMedium},
		{"whale segment without 13D form", 0, "SC 13G", filing.SegmentWhale, PriorityMedium},
		{"quiet periodic", 10, "10-Q", filing.SegmentPulse, PriorityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Compute(tc.impact, tc.form, tc.segment))
		})
	}
}
