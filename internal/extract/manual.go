package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

// ManualTemplate builds the fill-in field set for f. Every catalog field gets
// a bracketed placeholder, except the document type, which is inferred from
// the file name, and the free-text field, which records the file name and
// size. It never fails.
func ManualTemplate(s *schema.Schema, f model.File) model.RawFieldMap {
	raw := make(model.RawFieldMap, len(s.Fields()))
	for _, def := range s.Fields() {
		switch def.Key {
		case schema.KeyDocumentType:
			raw[def.Key] = s.InferDocumentType(f.Name)
		case schema.KeyOtherData:
			raw[def.Key] = fmt.Sprintf("Arquivo: %s (%sMB)", f.Name, f.SizeMB())
		default:
			raw[def.Key] = placeholderFor(def)
		}
	}
	return raw
}

func placeholderFor(def schema.FieldDefinition) string {
	if def.Placeholder != "" {
		return def.Placeholder
	}
	return "[" + strings.ToUpper(def.Label) + "]"
}
