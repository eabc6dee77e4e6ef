package present

import (
	"html/template"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/model"
)

const (
	printTitle     = "Dados Extraídos do Documento"
	printFooter    = "Documento gerado pelo Sistema de Extração de Documentos"
	printNoFile    = "Não informado"
	printTimestamp = "02/01/2006 15:04:05"
)

// PrintLine is one label/value row of a print document.
type PrintLine struct {
	Label string
	Value string
}

// PrintDocument is the print-ready form of a result.
type PrintDocument struct {
	Title        string
	GeneratedAt  time.Time
	FileName     string
	Lines        []PrintLine
	Footer       string
	Organization string
}

// Date returns the generation timestamp in the pt-BR layout.
func (d PrintDocument) Date() string {
	return d.GeneratedAt.Format(printTimestamp)
}

// ShortDate returns the generation date alone.
func (d PrintDocument) ShortDate() string {
	return d.GeneratedAt.Format("02/01/2006")
}

// PrintDocument applies the summary filter and wraps the rows in the fixed
// header and footer.
func (p *Presenter) PrintDocument(m model.DocumentFieldModel, fileName string) (PrintDocument, error) {
	lines := p.visibleLines(m)
	if len(lines) == 0 {
		return PrintDocument{}, ErrEmptyResult
	}
	if fileName == "" {
		fileName = printNoFile
	}

	doc := PrintDocument{
		Title:        printTitle,
		GeneratedAt:  p.now(),
		FileName:     fileName,
		Footer:       printFooter,
		Organization: p.organization,
	}
	for _, l := range lines {
		doc.Lines = append(doc.Lines, PrintLine{Label: l.Label, Value: l.Value})
	}
	return doc, nil
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Dados Extraídos - {{.ShortDate}}</title>
<style>
body { font-family: Arial, sans-serif; padding: 20px; }
h1 { color: #333; border-bottom: 2px solid #333; padding-bottom: 10px; }
.field { margin-bottom: 15px; }
.label { font-weight: bold; color: #666; }
.value { margin-left: 10px; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ccc; font-size: 0.9em; color: #666; }
</style>
</head>
<body onload="window.print()">
<h1>{{.Title}}</h1>
<p><strong>Data:</strong> {{.Date}}</p>
<p><strong>Arquivo:</strong> {{.FileName}}</p>
<hr>
{{range .Lines}}<div class="field">
<span class="label">{{.Label}}:</span>
<span class="value">{{.Value}}</span>
</div>
{{end}}<div class="footer">
<p>{{.Footer}}</p>
<p>{{.Organization}}</p>
</div>
</body>
</html>
`))

// RenderHTML writes the print document as a self-printing HTML page.
func RenderHTML(w io.Writer, doc PrintDocument) error {
	if err := printTemplate.Execute(w, doc); err != nil {
		return eris.Wrap(err, "present: render print")
	}
	return nil
}
