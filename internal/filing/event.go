package filing

import "time"

// EventType distinguishes broadcast payloads.
type EventType string

// Event types emitted by the pipeline.
const (
	// EventProcessing is emitted once fetch/parse begins, before
	// classification, so subscribers see the in-flight state.
	EventProcessing EventType = "filing_processing"
	// EventNewFiling is emitted after the record is persisted.
	EventNewFiling EventType = "new_filing"
)

// Event is one broadcast message.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ProcessingData is the payload of an EventProcessing event.
type ProcessingData struct {
	AccessionID string    `json:"accession_id"`
	CompanyName string    `json:"company_name"`
	Ticker      string    `json:"ticker,omitempty"`
	FormType    string    `json:"form_type"`
	Segment     Segment   `json:"segment"`
	FiledAt     time.Time `json:"filed_at"`
}

// NewFilingData is the payload of an EventNewFiling event.
type NewFilingData struct {
	Record
	LatencyMillis int64 `json:"latency_ms"`
}

// ProcessingEvent builds the in-flight announcement for a filing.
func ProcessingEvent(f Filing) Event {
	return Event{
		Type: EventProcessing,
		Data: ProcessingData{
			AccessionID: f.AccessionID,
			CompanyName: f.CompanyName,
			Ticker:      f.Ticker,
			FormType:    f.FormType,
			Segment:     f.Segment,
			FiledAt:     f.FiledAt,
		},
	}
}

// NewFilingEvent builds the fully-populated completion announcement.
func NewFilingEvent(rec Record) Event {
	return Event{
		Type: EventNewFiling,
		Data: NewFilingData{Record: rec, LatencyMillis: rec.LatencyMS()},
	}
}
