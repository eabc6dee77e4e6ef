// Package fieldmodel normalizes raw extraction output into a
// DocumentFieldModel and derives which sections it renders.
package fieldmodel

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

// Builder normalizes raw field maps against a schema.
type Builder struct {
	schema *schema.Schema
}

// New creates a Builder. A nil schema uses schema.Default().
func New(s *schema.Schema) *Builder {
	if s == nil {
		s = schema.Default()
	}
	return &Builder{schema: s}
}

// Schema returns the schema the builder normalizes against.
func (b *Builder) Schema() *schema.Schema {
	return b.schema
}

// Build normalizes raw into a field model. Known keys are folded to their
// canonical spelling; unknown keys are kept verbatim. When the document type
// is absent it is inferred from fileName.
func (b *Builder) Build(raw model.RawFieldMap, fileName string) model.DocumentFieldModel {
	fields := make(map[string]model.FieldValue, len(raw)+1)

	// Exact canonical spellings win over case variants of the same key.
	keys := slices.Sorted(maps.Keys(raw))
	for _, k := range keys {
		if b.schema.ByKey(k) != nil {
			fields[k] = model.NewFieldValue(stringify(raw[k]))
		}
	}
	for _, k := range keys {
		key := strings.TrimSpace(k)
		if key == "" || b.schema.ByKey(k) != nil {
			continue
		}
		if canon, known := b.schema.Canonical(key); known {
			key = canon
		}
		fv := model.NewFieldValue(stringify(raw[k]))
		if existing, seen := fields[key]; seen && (existing.Present() || !fv.Present()) {
			continue
		}
		fields[key] = fv
	}

	if !fields[schema.KeyDocumentType].Present() {
		fields[schema.KeyDocumentType] = model.NewFieldValue(b.schema.InferDocumentType(fileName))
	}

	return model.NewDocumentFieldModel(fields)
}

// Unassigned returns keys in m that belong to no section, sorted.
func (b *Builder) Unassigned(m model.DocumentFieldModel) []string {
	var out []string
	for _, k := range m.Keys() {
		if b.schema.ByKey(k) == nil {
			out = append(out, k)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
