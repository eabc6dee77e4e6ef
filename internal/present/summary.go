package present

import (
	"strings"

	"github.com/sells-group/docextract/internal/model"
)

// PlainTextSummary renders "<label>: <value>\n" for every shown field whose
// value is present and free of placeholders.
func (p *Presenter) PlainTextSummary(m model.DocumentFieldModel) (string, error) {
	lines := p.visibleLines(m)
	if len(lines) == 0 {
		return "", ErrEmptyResult
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Label)
		sb.WriteString(": ")
		sb.WriteString(l.Value)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
