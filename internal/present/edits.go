package present

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

// Edit rejection reasons.
const (
	EditReadonly = "readonly"
	EditTooLong  = "too_long"
	EditUnknown  = "unknown_field"
	EditRequired = "required"
)

// EditError rejects a single field edit. The result is left unchanged.
type EditError struct {
	Key    string
	Reason string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("present: edit %s rejected: %s", e.Key, e.Reason)
}

// ValidateField checks an input value against its definition: required
// fields must not be empty and values must fit the maximum length.
func ValidateField(def schema.FieldDefinition, value string) error {
	value = strings.TrimSpace(value)
	if def.Required && value == "" {
		return &EditError{Key: def.Key, Reason: EditRequired}
	}
	if def.MaxLength > 0 && utf8.RuneCountInString(value) > def.MaxLength {
		return &EditError{Key: def.Key, Reason: EditTooLong}
	}
	return nil
}

// ApplyMask formats value against a mask where '0' takes the next digit and
// any other rune is copied literally. Formatting stops when digits run out.
func ApplyMask(mask, value string) string {
	var digits []rune
	for _, r := range value {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}

	var sb strings.Builder
	i := 0
	for _, m := range mask {
		if i >= len(digits) {
			break
		}
		if m == '0' {
			sb.WriteRune(digits[i])
			i++
			continue
		}
		sb.WriteRune(m)
	}
	return sb.String()
}

// ApplyEdits returns a copy of r with the operator's edits applied. Keys are
// matched to their canonical spelling. A blank edit restores the field's
// placeholder, or clears it when the field has none. All edits are checked
// before any is applied.
func (p *Presenter) ApplyEdits(r model.ExtractionResult, edits map[string]string) (model.ExtractionResult, error) {
	s := p.builder.Schema()
	m := r.Model

	type change struct {
		key string
		val model.FieldValue
	}
	var changes []change

	for _, k := range sortedKeys(edits) {
		v := strings.TrimSpace(edits[k])
		key := strings.TrimSpace(k)
		if canon, ok := s.Canonical(key); ok {
			key = canon
		}

		def := s.ByKey(key)
		if def == nil {
			if _, exists := m.Get(key); !exists {
				return r, &EditError{Key: key, Reason: EditUnknown}
			}
			changes = append(changes, change{key, model.NewFieldValue(v)})
			continue
		}
		if def.Readonly {
			return r, &EditError{Key: key, Reason: EditReadonly}
		}
		if def.Mask != "" && v != "" && !model.IsPlaceholder(v) {
			v = ApplyMask(def.Mask, v)
		}
		if err := ValidateField(*def, v); err != nil && !isRequired(err) {
			return r, err
		}
		if !model.IsPresentString(v) && def.Placeholder != "" {
			v = def.Placeholder
		}
		changes = append(changes, change{key, model.NewFieldValue(v)})
	}

	for _, c := range changes {
		m = m.With(c.key, c.val)
	}
	return r.WithModel(m), nil
}

func isRequired(err error) bool {
	var ee *EditError
	return errors.As(err, &ee) && ee.Reason == EditRequired
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
