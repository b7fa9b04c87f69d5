package report

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet every export writes to.
const Sheet = "Sheet1"

// XLSX renders the visible columns of t as a single-sheet workbook with a
// header row. Numeric columns are written as numbers.
func XLSX(t Table) ([]byte, error) {
	t = t.Visible()

	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range t.Rows {
		values := make([]any, len(row))
		for i, cell := range row {
			values[i] = cellValue(t.Columns[i], cell)
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(Sheet, axis, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(c Column, cell string) any {
	if !c.Numeric {
		return cell
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return cell
	}
	f, _ := d.Float64()
	return f
}
