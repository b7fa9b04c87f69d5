package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFontSize  = 10
	pdfRowHeight = 10
)

// PDF renders the visible columns of t as a bordered grid on A4 portrait.
// Column width is the page width divided by the column count plus one.
func PDF(t Table) ([]byte, error) {
	t = t.Visible()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	colW := pageW / float64(len(t.Columns)+1)

	if t.Title != "" {
		pdf.SetFont("Arial", "B", pdfFontSize+2)
		pdf.CellFormat(0, pdfRowHeight, tr(t.Title), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Arial", "B", pdfFontSize)
	for _, c := range t.Columns {
		pdf.CellFormat(colW, pdfRowHeight, tr(c.Name), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", pdfFontSize)
	for _, row := range t.Rows {
		for i, cell := range row {
			align := "L"
			if t.Columns[i].Numeric {
				align = "R"
			}
			pdf.CellFormat(colW, pdfRowHeight, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
