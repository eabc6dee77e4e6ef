package present

import (
	"github.com/sells-group/docextract/internal/model"
)

// Banner is the status line above the fields.
type Banner struct {
	Kind string `json:"kind"` // "manual" or "ai"
	Text string `json:"text"`
}

// ViewField is one rendered field.
type ViewField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder,omitempty"`
	Editable    bool   `json:"editable"`
	Readonly    bool   `json:"readonly"`
	Required    bool   `json:"required"`
	Error       bool   `json:"error"`
	Mask        string `json:"mask,omitempty"`
	MaxLength   int    `json:"max_length,omitempty"`
}

// ViewSection is one rendered section.
type ViewSection struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Fields []ViewField `json:"fields"`
}

// View is the editable view-model of an extraction result.
type View struct {
	Banner          Banner        `json:"banner"`
	Sections        []ViewSection `json:"sections"`
	MissingRequired []string      `json:"missing_required,omitempty"`
}

// inputPlaceholder is the hint shown in an editable field holding a real value.
const inputPlaceholder = "Digite aqui..."

// StatusBanner returns the banner for a result.
func StatusBanner(r model.ExtractionResult) Banner {
	if r.Source == model.SourceAI {
		label := r.ProviderLabel
		if label == "" {
			label = r.Provider.Label()
		}
		return Banner{Kind: "ai", Text: "🤖 Extração por " + label + " - Verifique e ajuste se necessário"}
	}
	return Banner{Kind: "manual", Text: "✏️ Preenchimento Manual - Clique nos campos para editar"}
}

// EditableView decides, per present field, whether it is editable. AI values
// are always editable. Manual values are editable only while they hold a
// placeholder. A placeholder moves into the input hint and leaves the input
// empty. Required fields with an empty input carry the error flag.
func (p *Presenter) EditableView(r model.ExtractionResult) View {
	v := View{Banner: StatusBanner(r)}

	for _, sec := range p.builder.Sections(r.Model) {
		vs := ViewSection{ID: sec.ID, Title: sec.Title}
		for _, f := range sec.Fields {
			def := f.Definition
			raw := f.Value.String()
			vf := ViewField{
				Key:       def.Key,
				Label:     def.Label,
				Readonly:  def.Readonly,
				Required:  def.Required,
				Mask:      def.Mask,
				MaxLength: def.MaxLength,
			}

			switch {
			case f.Value.IsPlaceholder:
				vf.Editable = true
				vf.Placeholder = raw
			case r.Source == model.SourceAI:
				vf.Editable = true
				vf.Value = raw
				vf.Placeholder = inputPlaceholder
			default:
				vf.Value = raw
			}
			vf.Error = vf.Editable && ValidateField(def, vf.Value) != nil

			vs.Fields = append(vs.Fields, vf)
		}
		v.Sections = append(v.Sections, vs)
	}

	for _, def := range p.builder.Schema().Required() {
		if !r.Model.Present(def.Key) {
			v.MissingRequired = append(v.MissingRequired, def.Key)
		}
	}

	return v
}
