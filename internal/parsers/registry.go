package parsers

import (
	"github.com/secpulse/secpulse/internal/filing"
)

// Parser turns raw document content into a text excerpt plus structured
// fields. Implementations must never fail on arbitrary content.
type Parser interface {
	Parse(raw string) filing.ParsedDocument
}

// Registry dispatches documents to a parser variant keyed by base form type.
type Registry struct {
	parsers  map[string]Parser
	fallback Parser
}

// NewRegistry wires the default parser set.
func NewRegistry() *Registry {
	r := &Registry{
		parsers:  make(map[string]Parser),
		fallback: fallbackParser{},
	}

	r.register(itemCodeParser{}, "8-K")
	r.register(insiderParser{}, "4")
	r.register(offeringParser{}, "S-1", "S-3", "424B2", "424B3", "424B4", "424B5")
	r.register(ownershipParser{}, "SC 13D", "SC 13G", "13D", "13G", "SCHEDULE 13D", "SCHEDULE 13G")
	r.register(periodicParser{}, "10-Q", "10-K")
	return r
}

func (r *Registry) register(p Parser, baseForms ...string) {
	for _, form := range baseForms {
		r.parsers[form] = p
	}
}

// Parse routes raw content to the parser for the form's base type. Unknown
// forms get the generic fallback.
func (r *Registry) Parse(formType, raw string) filing.ParsedDocument {
	base := filing.BaseForm(formType)
	if p, ok := r.parsers[base]; ok {
		return p.Parse(raw)
	}
	doc := r.fallback.Parse(raw)
	doc.Fields["form_type"] = formType
	return doc
}

// fallbackParser handles unrecognized form types: markup-stripped text and
// no structured fields beyond the form type the registry adds.
type fallbackParser struct{}

func (fallbackParser) Parse(raw string) filing.ParsedDocument {
	return filing.ParsedDocument{
		Text:   stripMarkup(raw),
		Fields: map[string]any{},
	}
}
