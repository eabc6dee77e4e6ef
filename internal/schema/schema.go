package schema

import (
	_ "embed"
	"slices"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Well-known field keys the pipeline reads directly.
const (
	KeyDocumentType = "tipoDocumento"
	KeyOtherData    = "outrosDados"
	KeyNotes        = "observacoes"
	KeyName         = "nome"
)

// Activation kinds.
const (
	ActivationAlways          = "always"
	ActivationDocTypeContains = "doc_type_contains"
	ActivationAnyKeyPresent   = "any_key_present"
)

// FieldDefinition describes one known document field.
type FieldDefinition struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Required    bool   `yaml:"required" json:"required"`
	MaxLength   int    `yaml:"max_length" json:"max_length,omitempty"`
	Mask        string `yaml:"mask" json:"mask,omitempty"`
	Readonly    bool   `yaml:"readonly" json:"readonly"`
	Placeholder string `yaml:"placeholder" json:"placeholder,omitempty"`
	Section     string `yaml:"-" json:"section"`
}

// Activation is the data form of a section's visibility predicate.
type Activation struct {
	Kind  string   `yaml:"kind" json:"kind"`
	Value string   `yaml:"value" json:"value,omitempty"`
	Keys  []string `yaml:"keys" json:"keys,omitempty"`
}

// Lookup is the read side of a field model that activation predicates need.
type Lookup interface {
	Present(key string) bool
	Value(key string) string
}

// Active evaluates the predicate against a field model.
func (a Activation) Active(m Lookup) bool {
	switch a.Kind {
	case ActivationAlways, "":
		return true
	case ActivationDocTypeContains:
		return m.Present(KeyDocumentType) && strings.Contains(m.Value(KeyDocumentType), a.Value)
	case ActivationAnyKeyPresent:
		for _, k := range a.Keys {
			if m.Present(k) {
				return true
			}
		}
	}
	return false
}

// SectionDefinition groups related fields.
type SectionDefinition struct {
	ID         string            `yaml:"id" json:"id"`
	Title      string            `yaml:"title" json:"title"`
	Order      int               `yaml:"order" json:"order"`
	Activation Activation        `yaml:"activation" json:"activation"`
	Fields     []FieldDefinition `yaml:"fields" json:"fields"`
}

type catalog struct {
	DocumentTypes struct {
		Default string     `yaml:"default"`
		Rules   []TypeRule `yaml:"rules"`
	} `yaml:"document_types"`
	Sections []SectionDefinition `yaml:"sections"`
}

// Schema is the immutable field catalog.
type Schema struct {
	sections    []SectionDefinition
	fields      []FieldDefinition
	byKey       map[string]int
	byFold      map[string]string
	typeRules   []TypeRule
	defaultType string
}

// Parse builds a Schema from catalog YAML.
func Parse(data []byte) (*Schema, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "schema: parse catalog")
	}
	if c.DocumentTypes.Default == "" {
		return nil, eris.New("schema: catalog missing default document type")
	}

	s := &Schema{
		byKey:       make(map[string]int),
		byFold:      make(map[string]string),
		typeRules:   c.DocumentTypes.Rules,
		defaultType: c.DocumentTypes.Default,
	}

	slices.SortStableFunc(c.Sections, func(a, b SectionDefinition) int { return a.Order - b.Order })
	for i := range c.Sections {
		sec := &c.Sections[i]
		if sec.ID == "" {
			return nil, eris.Errorf("schema: section %d has no id", i)
		}
		switch sec.Activation.Kind {
		case "", ActivationAlways, ActivationDocTypeContains, ActivationAnyKeyPresent:
		default:
			return nil, eris.Errorf("schema: section %s: unknown activation %q", sec.ID, sec.Activation.Kind)
		}
		for j := range sec.Fields {
			f := &sec.Fields[j]
			f.Section = sec.ID
			if f.Key == "" || f.Label == "" {
				return nil, eris.Errorf("schema: section %s: field %d needs key and label", sec.ID, j)
			}
			if _, dup := s.byKey[f.Key]; dup {
				return nil, eris.Errorf("schema: duplicate field key %q", f.Key)
			}
			s.byKey[f.Key] = len(s.fields)
			s.byFold[strings.ToLower(f.Key)] = f.Key
			s.fields = append(s.fields, *f)
		}
	}
	s.sections = c.Sections

	return s, nil
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// Default returns the schema built from the embedded catalog. It panics if
// the embedded catalog is invalid, which the package tests rule out.
func Default() *Schema {
	defaultOnce.Do(func() {
		s, err := Parse(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultSchema = s
	})
	return defaultSchema
}

// Sections returns the sections in display order.
func (s *Schema) Sections() []SectionDefinition {
	return slices.Clone(s.sections)
}

// Fields returns every field definition in display order.
func (s *Schema) Fields() []FieldDefinition {
	return slices.Clone(s.fields)
}

// ByKey returns the field for an exact key, or nil.
func (s *Schema) ByKey(key string) *FieldDefinition {
	i, ok := s.byKey[key]
	if !ok {
		return nil
	}
	f := s.fields[i]
	return &f
}

// Canonical maps a key to its schema spelling, ignoring case. Unknown keys
// return ok=false.
func (s *Schema) Canonical(key string) (string, bool) {
	k, ok := s.byFold[strings.ToLower(strings.TrimSpace(key))]
	return k, ok
}

// Label returns the field label, falling back to the key itself.
func (s *Schema) Label(key string) string {
	if f := s.ByKey(key); f != nil {
		return f.Label
	}
	return key
}

// Required returns the required fields.
func (s *Schema) Required() []FieldDefinition {
	var out []FieldDefinition
	for _, f := range s.fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}
