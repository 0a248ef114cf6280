// Package filing defines core types shared across subsystems.
package filing

import (
	"strings"
	"time"
)

// Segment is the coarse classification category a form type routes into.
type Segment string

// Segments monitored by the pipeline.
const (
	SegmentCatalyst Segment = "catalyst"
	SegmentWhale    Segment = "whale"
	SegmentPulse    Segment = "pulse"
)

// formSegments routes declared form types to a segment. Forms absent from
// this table are dropped during normalization.
var formSegments = map[string]Segment{
	"8-K":            SegmentCatalyst,
	"8-K/A":          SegmentCatalyst,
	"SC 13D":         SegmentWhale,
	"SC 13D/A":       SegmentWhale,
	"SC 13G":         SegmentWhale,
	"SC 13G/A":       SegmentWhale,
	"SCHEDULE 13D":   SegmentWhale,
	"SCHEDULE 13D/A": SegmentWhale,
	"SCHEDULE 13G":   SegmentWhale,
	"SCHEDULE 13G/A": SegmentWhale,
	"13D":            SegmentWhale,
	"13D/A":          SegmentWhale,
	"13G":            SegmentWhale,
	"13G/A":          SegmentWhale,
	"10-Q":           SegmentPulse,
	"10-Q/A":         SegmentPulse,
	"10-K":           SegmentPulse,
	"10-K/A":         SegmentPulse,
}

// SegmentFor resolves the segment for a declared form type, falling back to
// the base form with any "/A" amendment suffix stripped. The second return
// is false when the form maps to no monitored segment.
func SegmentFor(formType string) (Segment, bool) {
	if seg, ok := formSegments[formType]; ok {
		return seg, true
	}
	base := BaseForm(formType)
	seg, ok := formSegments[base]
	return seg, ok
}

// BaseForm strips the trailing amendment marker from a form type
// ("8-K/A" -> "8-K").
func BaseForm(formType string) string {
	base, _, _ := strings.Cut(formType, "/")
	return strings.TrimSpace(base)
}

// Filing is a normalized feed entry: one filing announcement keyed by its
// accession number, which is globally unique and the sole dedup key.
type Filing struct {
	AccessionID string    `json:"accession_id"`
	FormType    string    `json:"form_type"`
	Segment     Segment   `json:"segment"`
	CompanyName string    `json:"company_name"`
	CIK         string    `json:"cik"`
	Ticker      string    `json:"ticker,omitempty"`
	IndexURL    string    `json:"index_url"`
	FiledAt     time.Time `json:"filed_at"`
}

// ParsedDocument is produced once per filing by exactly one parser variant.
type ParsedDocument struct {
	Text   string         `json:"text"`
	Fields map[string]any `json:"fields"`
}

// Classification is the impact assessment for one filing. Impact is always
// an integer in [-100, 100]; a result is always synthesized, even when only
// the heuristic is available.
type Classification struct {
	Summary string   `json:"summary"`
	Impact  int      `json:"impact"`
	Reasons []string `json:"reasons"`
}

// ClampImpact forces a score into the valid [-100, 100] range.
func ClampImpact(score int) int {
	if score > 100 {
		return 100
	}
	if score < -100 {
		return -100
	}
	return score
}

// Record is the persisted superset of a processed filing. Rows are
// append-only; the accession id carries a uniqueness constraint.
type Record struct {
	ID           int64          `json:"id"`
	Filing       Filing         `json:"filing"`
	Summary      string         `json:"summary"`
	Impact       int            `json:"impact"`
	Reasons      []string       `json:"reasons"`
	RawExcerpt   string         `json:"raw_excerpt"`
	Fields       map[string]any `json:"fields"`
	Priority     string         `json:"priority"`
	ArchiveURI   string         `json:"archive_uri,omitempty"`
	DiscoveredAt time.Time      `json:"discovered_at"`
	ProcessedAt  time.Time      `json:"processed_at"`
}

// SegmentStats aggregates processed filings for one segment over a window.
type SegmentStats struct {
	Segment   Segment `json:"segment"`
	Count     int64   `json:"count"`
	AvgImpact float64 `json:"avg_impact"`
	Bullish   int64   `json:"bullish"`
	Bearish   int64   `json:"bearish"`
}

// LatencyMS reports the feed-to-processed latency for a record, or -1 when
// the filed-at timestamp is unknown.
func (r Record) LatencyMS() int64 {
	if r.Filing.FiledAt.IsZero() {
		return -1
	}
	return r.ProcessedAt.Sub(r.Filing.FiledAt).Milliseconds()
}
