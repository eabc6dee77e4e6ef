package model

import (
	"maps"
	"slices"
	"strings"
)

// RawFieldMap is unstructured key/value data as returned by an extraction
// strategy, before it is normalized against the field schema.
type RawFieldMap map[string]any

// FieldValue is a single value in a DocumentFieldModel. A nil Raw means the
// field is absent.
type FieldValue struct {
	Raw           *string `json:"raw"`
	IsPlaceholder bool    `json:"is_placeholder"`
}

// NewFieldValue builds a FieldValue from a string. Blank strings and the
// literal "null" produce an absent value.
func NewFieldValue(s string) FieldValue {
	s = strings.TrimSpace(s)
	if !IsPresentString(s) {
		return FieldValue{}
	}
	return FieldValue{Raw: &s, IsPlaceholder: IsPlaceholder(s)}
}

// Present reports whether the value is non-null, non-empty and not "null".
func (v FieldValue) Present() bool {
	return v.Raw != nil && IsPresentString(*v.Raw)
}

// String returns the raw value, or "" when absent.
func (v FieldValue) String() string {
	if v.Raw == nil {
		return ""
	}
	return *v.Raw
}

// IsPresentString applies the presence rule to an already-stringified value.
func IsPresentString(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "null"
}

// IsPlaceholder reports whether s still carries an unresolved manual-fill
// marker such as "[NOME]".
func IsPlaceholder(s string) bool {
	return strings.Contains(s, "[") && strings.Contains(s, "]")
}

// DocumentFieldModel maps field keys to values. Keys the schema does not know
// are kept alongside known ones. Treat it as immutable; With returns a copy.
type DocumentFieldModel struct {
	Fields map[string]FieldValue `json:"fields"`
}

// NewDocumentFieldModel wraps the given values.
func NewDocumentFieldModel(fields map[string]FieldValue) DocumentFieldModel {
	if fields == nil {
		fields = map[string]FieldValue{}
	}
	return DocumentFieldModel{Fields: fields}
}

// Get returns the value for key and whether the key exists at all.
func (m DocumentFieldModel) Get(key string) (FieldValue, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// Present reports whether key holds a present value.
func (m DocumentFieldModel) Present(key string) bool {
	return m.Fields[key].Present()
}

// Value returns the string value for key, or "" when absent.
func (m DocumentFieldModel) Value(key string) string {
	return m.Fields[key].String()
}

// Keys returns all keys in sorted order.
func (m DocumentFieldModel) Keys() []string {
	return slices.Sorted(maps.Keys(m.Fields))
}

// With returns a copy of the model with key set to v.
func (m DocumentFieldModel) With(key string, v FieldValue) DocumentFieldModel {
	out := make(map[string]FieldValue, len(m.Fields)+1)
	maps.Copy(out, m.Fields)
	out[key] = v
	return DocumentFieldModel{Fields: out}
}

// Raw converts the model back into a RawFieldMap. Absent values become nil.
func (m DocumentFieldModel) Raw() RawFieldMap {
	raw := make(RawFieldMap, len(m.Fields))
	for k, v := range m.Fields {
		if v.Raw == nil {
			raw[k] = nil
			continue
		}
		raw[k] = *v.Raw
	}
	return raw
}
