// Package present turns a field model into the editable view, the copyable
// summary, the JSON/XLSX export and the print document. Nothing here touches
// a rendering surface.
package present

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/fieldmodel"
	"github.com/sells-group/docextract/internal/model"
)

// ErrEmptyResult is returned when no field qualifies for copy, export or
// print.
var ErrEmptyResult = eris.New("present: nothing to output")

// DefaultOrganization is the issuing-organization line of the print footer.
const DefaultOrganization = "Cartório Fernando Dias - 2º Tabelionato de Notas"

// Presenter holds what the transforms need besides the model itself.
type Presenter struct {
	builder      *fieldmodel.Builder
	organization string
	now          func() time.Time
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithOrganization sets the print footer organization line.
func WithOrganization(org string) Option {
	return func(p *Presenter) {
		if org != "" {
			p.organization = org
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Presenter) {
		p.now = now
	}
}

// New creates a Presenter. A nil builder uses the default schema.
func New(b *fieldmodel.Builder, opts ...Option) *Presenter {
	if b == nil {
		b = fieldmodel.New(nil)
	}
	p := &Presenter{builder: b, organization: DefaultOrganization, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// line is one label/value pair that passed the output filter.
type line struct {
	Key   string
	Label string
	Value string
}

// qualifies reports whether a value may appear in copy, export or print
// output: present and free of placeholder brackets.
func qualifies(v model.FieldValue) bool {
	return v.Present() && !model.IsPlaceholder(v.String())
}

// visibleLines returns the qualifying fields of the rendered sections in
// display order.
func (p *Presenter) visibleLines(m model.DocumentFieldModel) []line {
	var out []line
	for _, sec := range p.builder.Sections(m) {
		for _, f := range sec.Fields {
			if !qualifies(f.Value) {
				continue
			}
			out = append(out, line{Key: f.Definition.Key, Label: f.Definition.Label, Value: f.Value.String()})
		}
	}
	return out
}

// unassignedLines returns qualifying fields unknown to the schema, sorted by
// key. They are labelled with their own key.
func (p *Presenter) unassignedLines(m model.DocumentFieldModel) []line {
	var out []line
	for _, k := range p.builder.Unassigned(m) {
		v, _ := m.Get(k)
		if !qualifies(v) {
			continue
		}
		out = append(out, line{Key: k, Label: k, Value: v.String()})
	}
	return out
}
