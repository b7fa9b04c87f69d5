package report

import (
	"fmt"
	"strings"

	"github.com/mrbanana/bunch-ledger/ledger"
)

const rule = "------------------------------------------------------------"

// SalesMessage formats a customer's sale lines as a fixed-width text summary.
func SalesMessage(customer string, lines []ledger.SaleLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Sales Summary for %s\n", customer)
	fmt.Fprintf(&b, "%-12s %8s %10s %12s %10s\n", "  Date  ", "  Bunches  ", "  Total  ", "  Commission  ", "  Final  ")
	b.WriteString(rule)
	for _, l := range lines {
		fmt.Fprintf(&b, "\n%-12s %8d ₹%9s ₹%11s ₹%9s",
			l.Date.String(), l.Bunches, money(l.Total), money(l.Commission), money(l.Net))
	}
	return b.String()
}

// PaymentsMessage formats a customer's reconciled events as a fixed-width
// text summary. A discount on the summary adds the final position lines.
func PaymentsMessage(summary ledger.Summary, events []ledger.ReconciledEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Payment Summary for %s\n", summary.Customer)
	fmt.Fprintf(&b, "%-12s %6s %9s %12s %12s\n", "  Date  ", "  Paid  ", "  Discount  ", "  Total Paid  ", "  Remaining  ")
	b.WriteString(rule)
	for _, e := range events {
		fmt.Fprintf(&b, "\n%-12s ₹%6s ₹%9s ₹%12s ₹%12s",
			e.Date.String(), money(e.Paid()), money(e.Discount()), money(e.TotalPaid), money(e.Remaining))
	}
	if summary.TotalDiscount.IsPositive() {
		fmt.Fprintf(&b, "\n\n🎁 Final Discount Applied: ₹%s", money(summary.TotalDiscount))
		fmt.Fprintf(&b, "\n🧮 Final Remaining: ₹%s", money(summary.Remaining))
	}
	return b.String()
}

// SummaryLine is the one-line position shown under a customer's payments.
func SummaryLine(s ledger.Summary) string {
	return fmt.Sprintf("Summary: Total Paid ₹%s | Discount ₹%s | Final Remaining ₹%s",
		money(s.TotalPaid), money(s.TotalDiscount), money(s.Remaining))
}

// money prints whole amounts without decimals and anything else with two.
func money(a ledger.Amount) string {
	if a.Value.IsInteger() {
		return a.Value.String()
	}
	return a.Value.StringFixed(2)
}
