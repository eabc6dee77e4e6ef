package present

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXSheetName is the sheet holding the exported fields.
const XLSXSheetName = "Dados"

// WriteXLSX writes the export document as a two-column spreadsheet with a
// metadata block above the field rows.
func WriteXLSX(w io.Writer, doc ExportDocument) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(XLSXSheetName)
	if err != nil {
		return eris.Wrap(err, "present: add sheet")
	}

	addRow(sheet, "Documento", doc.DocumentName)
	addRow(sheet, "Extraído em", doc.ExtractedAt.Format(time.RFC3339))
	addRow(sheet, "Método", doc.ExtractionMethod)
	addRow(sheet, "Campo", "Valor")
	for _, fld := range doc.Ordered() {
		addRow(sheet, fld.Label, fld.Value)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "present: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}
