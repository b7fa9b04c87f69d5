/*
Package report turns ledger views into exportable documents.

PURPOSE:
  Builds a neutral Table from sale lines or reconciled payment events and
  renders it as PDF or XLSX, or formats a fixed-width text summary for
  chat delivery.

INTERNAL COLUMNS:
  Tables carry the row identity (ID) so callers can map a rendered row back
  to a ledger entry. Such columns are marked Internal and every renderer
  works on Visible(), so identifiers never reach a document.

SEE ALSO:
  - pdf.go: PDF rendering (go-pdf/fpdf)
  - xlsx.go: Spreadsheet rendering (excelize)
  - message.go: Text summaries
*/
package report

import (
	"errors"
	"fmt"

	"github.com/mrbanana/bunch-ledger/ledger"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Column struct {
	Name     string
	Internal bool // bookkeeping only, never rendered
	Numeric  bool // rendered as a number where the format supports it
}

type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Visible returns a copy of t without internal columns.
func (t Table) Visible() Table {
	keep := make([]int, 0, len(t.Columns))
	out := Table{Title: t.Title}
	for i, c := range t.Columns {
		if c.Internal {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, c)
	}
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, 0, len(keep))
		for _, i := range keep {
			if i < len(row) {
				cells = append(cells, row[i])
			} else {
				cells = append(cells, "")
			}
		}
		out.Rows[r] = cells
	}
	return out
}

// Headers returns the column names in order.
func (t Table) Headers() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// =============================================================================
// LEDGER TABLES
// =============================================================================

// SalesTable lists sale lines in the order given.
func SalesTable(title string, lines []ledger.SaleLine) Table {
	t := Table{
		Title: title,
		Columns: []Column{
			{Name: "ID", Internal: true},
			{Name: "Date"},
			{Name: "Customer"},
			{Name: "Bunches", Numeric: true},
			{Name: "Total", Numeric: true},
			{Name: "Commission", Numeric: true},
			{Name: "Net", Numeric: true},
		},
	}
	for _, l := range lines {
		t.Rows = append(t.Rows, []string{
			string(l.ID),
			l.Date.String(),
			l.Customer,
			fmt.Sprint(l.Bunches),
			l.Total.String(),
			l.Commission.String(),
			l.Net.String(),
		})
	}
	return t
}

// PaymentsTable lists reconciled events in the order given.
func PaymentsTable(title string, events []ledger.ReconciledEvent) Table {
	t := Table{
		Title: title,
		Columns: []Column{
			{Name: "ID", Internal: true},
			{Name: "Customer"},
			{Name: "Date"},
			{Name: "Paid", Numeric: true},
			{Name: "Discount", Numeric: true},
			{Name: "Total Paid", Numeric: true},
			{Name: "Remaining", Numeric: true},
		},
	}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{
			string(e.ID),
			e.Customer,
			e.Date.String(),
			e.Paid().String(),
			e.Discount().String(),
			e.TotalPaid.String(),
			e.Remaining.String(),
		})
	}
	return t
}

// =============================================================================
// FORMATS
// =============================================================================

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF, "":
		return FormatPDF, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

func (f Format) Extension() string { return "." + string(f) }

// Render renders the visible part of t in format f.
func Render(f Format, t Table) ([]byte, error) {
	switch f {
	case FormatPDF:
		return PDF(t)
	case FormatXLSX:
		return XLSX(t)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
