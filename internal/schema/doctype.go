package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TypeRule labels a document when its file name contains any of the
// substrings. Rules are evaluated in order, first match wins.
type TypeRule struct {
	Contains []string `yaml:"contains" json:"contains"`
	Label    string   `yaml:"label" json:"label"`
}

// Matches reports whether the folded file name hits the rule.
func (r TypeRule) Matches(folded string) bool {
	for _, sub := range r.Contains {
		if strings.Contains(folded, Fold(sub)) {
			return true
		}
	}
	return false
}

// TypeRules returns the ordered inference rules.
func (s *Schema) TypeRules() []TypeRule {
	out := make([]TypeRule, len(s.typeRules))
	copy(out, s.typeRules)
	return out
}

// DefaultDocumentType is the label used when no rule matches.
func (s *Schema) DefaultDocumentType() string {
	return s.defaultType
}

// InferDocumentType derives a document type label from a file name.
func (s *Schema) InferDocumentType(fileName string) string {
	folded := Fold(fileName)
	for _, r := range s.typeRules {
		if r.Matches(folded) {
			return r.Label
		}
	}
	return s.defaultType
}

// Fold lowercases s and strips diacritics, so "Habilitação" matches
// "habilitacao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
