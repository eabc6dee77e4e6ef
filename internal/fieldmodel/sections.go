package fieldmodel

import (
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

// RenderedField is a present field within a visible section.
type RenderedField struct {
	Definition schema.FieldDefinition `json:"definition"`
	Value      model.FieldValue       `json:"value"`
}

// RenderedSection is a visible section with its present fields in declared
// order.
type RenderedSection struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Fields []RenderedField `json:"fields"`
}

// Sections returns the sections of m that should be shown. A section is
// shown when its activation predicate holds and at least one of its fields
// is present.
func (b *Builder) Sections(m model.DocumentFieldModel) []RenderedSection {
	var out []RenderedSection
	for _, sec := range b.schema.Sections() {
		if !sec.Activation.Active(m) {
			continue
		}
		var fields []RenderedField
		for _, def := range sec.Fields {
			v, ok := m.Get(def.Key)
			if !ok || !v.Present() {
				continue
			}
			fields = append(fields, RenderedField{Definition: def, Value: v})
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, RenderedSection{ID: sec.ID, Title: sec.Title, Fields: fields})
	}
	return out
}

// Visible reports whether the section with the given id is rendered for m.
func (b *Builder) Visible(m model.DocumentFieldModel, sectionID string) bool {
	for _, s := range b.Sections(m) {
		if s.ID == sectionID {
			return true
		}
	}
	return false
}
