package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/mrbanana/bunch-ledger/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func saleLines() []ledger.SaleLine {
	c := ledger.DefaultCommission()
	return c.Lines([]ledger.Sale{
		{ID: "s-1", Seq: 1, Date: ledger.NewDate(2024, time.June, 1), Customer: "alice", Bunches: 5, Total: ledger.NewAmountFromInt(500)},
		{ID: "s-2", Seq: 2, Date: ledger.NewDate(2024, time.June, 2), Customer: "alice", Bunches: 2, Total: ledger.ParseAmount("250.50")},
	})
}

func reconciled(t *testing.T) []ledger.ReconciledEvent {
	t.Helper()
	totals := ledger.Totals{"alice": ledger.NewAmountFromInt(610)}
	out, err := ledger.Reconcile(totals, []ledger.PaymentEvent{
		{ID: "e-1", Seq: 1, Customer: "alice", Date: ledger.NewDate(2024, time.June, 3), Kind: ledger.KindPayment, Amount: ledger.NewAmountFromInt(100)},
		{ID: "e-2", Seq: 2, Customer: "alice", Date: ledger.NewDate(2024, time.June, 4), Kind: ledger.KindDiscount, Amount: ledger.NewAmountFromInt(10)},
	})
	require.NoError(t, err)
	return out
}

func TestTable_VisibleStripsInternalColumns(t *testing.T) {
	table := report.SalesTable("Sales", saleLines())

	visible := table.Visible()

	assert.Equal(t, []string{"Date", "Customer", "Bunches", "Total", "Commission", "Net"}, visible.Headers())
	require.Len(t, visible.Rows, 2)
	assert.Equal(t, []string{"02-Jun-2024", "alice", "2", "250.5", "40", "210.5"}, visible.Rows[0])
	for _, row := range visible.Rows {
		for _, cell := range row {
			assert.NotContains(t, cell, "s-")
		}
	}
	// The source table keeps its ids.
	assert.Equal(t, "s-2", table.Rows[0][0])
}

func TestPaymentsTable(t *testing.T) {
	table := report.PaymentsTable("Payments", reconciled(t)).Visible()

	assert.Equal(t, []string{"Customer", "Date", "Paid", "Discount", "Total Paid", "Remaining"}, table.Headers())
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"alice", "04-Jun-2024", "0", "10", "100", "500"}, table.Rows[0])
	assert.Equal(t, []string{"alice", "03-Jun-2024", "100", "0", "100", "510"}, table.Rows[1])
}

func TestPDF(t *testing.T) {
	out, err := report.Render(report.FormatPDF, report.SalesTable("Sales for alice", saleLines()))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDF_EmptyTable(t *testing.T) {
	out, err := report.PDF(report.SalesTable("", nil))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSX(t *testing.T) {
	out, err := report.Render(report.FormatXLSX, report.PaymentsTable("Payments", reconciled(t)))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Customer", "Date", "Paid", "Discount", "Total Paid", "Remaining"}, rows[0])
	assert.Equal(t, "alice", rows[1][0])
	assert.Equal(t, "510", rows[2][5])
}

func TestParseFormat(t *testing.T) {
	f, err := report.ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, report.FormatXLSX, f)
	assert.Equal(t, ".xlsx", f.Extension())

	f, err = report.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, report.FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = report.ParseFormat("docx")
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestSalesMessage(t *testing.T) {
	msg := report.SalesMessage("alice", saleLines())

	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "📊 Sales Summary for alice", lines[0])
	assert.Equal(t, strings.Repeat("-", 60), lines[2])
	assert.Equal(t, "02-Jun-2024         2 ₹   250.50 ₹         40 ₹   210.50", lines[3])
	assert.Equal(t, "01-Jun-2024         5 ₹      500 ₹        100 ₹      400", lines[4])
}

func TestPaymentsMessage(t *testing.T) {
	events := reconciled(t)
	summary := ledger.Summarize("alice", ledger.NewAmountFromInt(610), events)

	msg := report.PaymentsMessage(summary, events)

	assert.True(t, strings.HasPrefix(msg, "💰 Payment Summary for alice\n"))
	assert.Contains(t, msg, "03-Jun-2024  ₹   100 ₹        0 ₹         100 ₹         510")
	assert.Contains(t, msg, "🎁 Final Discount Applied: ₹10")
	assert.True(t, strings.HasSuffix(msg, "🧮 Final Remaining: ₹500"))
}

func TestPaymentsMessage_NoDiscountNoFooter(t *testing.T) {
	summary := ledger.Summarize("bob", ledger.NewAmountFromInt(50), nil)

	msg := report.PaymentsMessage(summary, nil)

	assert.NotContains(t, msg, "Final Discount")
}

func TestSummaryLine(t *testing.T) {
	events := reconciled(t)
	summary := ledger.Summarize("alice", ledger.NewAmountFromInt(610), events)

	assert.Equal(t, "Summary: Total Paid ₹100 | Discount ₹10 | Final Remaining ₹500", report.SummaryLine(summary))
}
