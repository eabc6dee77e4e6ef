package present

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

// ExportField is one exported label/value pair.
type ExportField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ExportDocument is the downloadable JSON representation of a result.
type ExportDocument struct {
	ExtractedAt      time.Time              `json:"extractedAt"`
	DocumentName     string                 `json:"documentName"`
	ExtractionMethod string                 `json:"extractionMethod"`
	Fields           map[string]ExportField `json:"fields"`

	// order keeps the display order of Fields for tabular sinks.
	order []string
}

// Ordered returns the exported fields in display order.
func (d ExportDocument) Ordered() []ExportField {
	out := make([]ExportField, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.Fields[k])
	}
	return out
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeKey turns a label into a snake_case export key: lowercase, no
// diacritics, no non-word characters, whitespace runs as single underscores.
func NormalizeKey(label string) string {
	k := schema.Fold(label)
	k = nonWord.ReplaceAllString(k, "")
	k = strings.TrimSpace(k)
	return whitespace.ReplaceAllString(k, "_")
}

// ExportDocument builds the export from the shown fields followed by the
// unassigned keys. An unassigned key never replaces a shown field: when its
// normalized key is taken it is exported as extra_<key>.
func (p *Presenter) ExportDocument(r model.ExtractionResult, documentName string) (ExportDocument, error) {
	visible := p.visibleLines(r.Model)
	extra := p.unassignedLines(r.Model)
	if len(visible)+len(extra) == 0 {
		return ExportDocument{}, ErrEmptyResult
	}

	doc := ExportDocument{
		ExtractedAt:      p.now().UTC(),
		DocumentName:     documentName,
		ExtractionMethod: r.ExtractionMethod(),
		Fields:           make(map[string]ExportField, len(visible)+len(extra)),
	}
	for _, l := range visible {
		doc.add(exportKey(l), l)
	}
	for _, l := range extra {
		k := exportKey(l)
		if _, taken := doc.Fields[k]; taken {
			k = "extra_" + k
			for i := 2; ; i++ {
				if _, taken := doc.Fields[k]; !taken {
					break
				}
				k = fmt.Sprintf("extra_%s_%d", exportKey(l), i)
			}
		}
		doc.add(k, l)
	}
	return doc, nil
}

func (d *ExportDocument) add(k string, l line) {
	if _, seen := d.Fields[k]; !seen {
		d.order = append(d.order, k)
	}
	d.Fields[k] = ExportField{Label: l.Label, Value: l.Value}
}

func exportKey(l line) string {
	if k := NormalizeKey(l.Label); k != "" {
		return k
	}
	return NormalizeKey(l.Key)
}

// ExportFileName returns documento_<ISO date>_<epoch millis>.json.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("documento_%s_%d.json", now.UTC().Format("2006-01-02"), now.UnixMilli())
}

// WriteJSON writes the export document as indented JSON.
func WriteJSON(w io.Writer, doc ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "present: encode export")
	}
	return nil
}
