/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

MONEY AND NUMBERS:
  Amounts are returned as decimal strings so no precision is lost in
  transit. Incoming numeric fields accept either a JSON number or a
  string; anything unparseable or negative reads as zero.

DATES:
  Returned in the ledger layout (02-Jan-2006). Accepted in that layout or
  ISO (2006-01-02); an empty date means today.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"encoding/json"

	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/mrbanana/bunch-ledger/report"
)

// =============================================================================
// LENIENT NUMBER
// =============================================================================

// Number is a numeric request field that may arrive as a number or a string.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	*n = Number(data)
	return nil
}

func (n Number) Amount() ledger.Amount { return ledger.ParseAmount(string(n)) }
func (n Number) Bunches() int64        { return ledger.ParseBunches(string(n)) }

// =============================================================================
// REQUESTS
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateSaleRequest struct {
	Date     string `json:"date"`
	Customer string `json:"customer"`
	Bunches  Number `json:"bunches"`
	Total    Number `json:"total"`
}

// PaymentRequest records a payment or a discount.
type PaymentRequest struct {
	Customer string `json:"customer"`
	Date     string `json:"date"`
	Amount   Number `json:"amount"`
}

type ShareRequest struct {
	Customer    string `json:"customer"`
	Destination string `json:"destination,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt"`
}

type CustomerTotalDTO struct {
	Customer string `json:"customer"`
	Total    string `json:"total"`
}

type SaleLineDTO struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq"`
	Date       string `json:"date"`
	Customer   string `json:"customer"`
	Bunches    int64  `json:"bunches"`
	Total      string `json:"total"`
	Commission string `json:"commission"`
	Net        string `json:"net"`
}

type SaleDTO struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Date     string `json:"date"`
	Customer string `json:"customer"`
	Bunches  int64  `json:"bunches"`
	Total    string `json:"total"`
}

// PaymentEventDTO is a payment or discount with the running balance after it.
// Running fields are empty on write responses.
type PaymentEventDTO struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Customer      string `json:"customer"`
	Date          string `json:"date"`
	Kind          string `json:"kind"`
	Paid          string `json:"paid"`
	Discount      string `json:"discount"`
	TotalPaid     string `json:"totalPaid,omitempty"`
	TotalDiscount string `json:"totalDiscount,omitempty"`
	Remaining     string `json:"remaining,omitempty"`
}

type DiscountResponse struct {
	Event   PaymentEventDTO `json:"event"`
	Created bool            `json:"created"`
}

type SummaryDTO struct {
	Customer      string `json:"customer"`
	Total         string `json:"total"`
	TotalPaid     string `json:"totalPaid"`
	TotalDiscount string `json:"totalDiscount"`
	Remaining     string `json:"remaining"`
	Line          string `json:"line"`
}

type ChartPointDTO struct {
	Label string `json:"label"`
	Net   string `json:"net"`
}

type ShareResponse struct {
	Destination string `json:"destination"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSaleDTO(s ledger.Sale) SaleDTO {
	return SaleDTO{
		ID:       string(s.ID),
		Seq:      s.Seq,
		Date:     s.Date.String(),
		Customer: s.Customer,
		Bunches:  s.Bunches,
		Total:    s.Total.String(),
	}
}

func toSaleLineDTOs(lines []ledger.SaleLine) []SaleLineDTO {
	out := make([]SaleLineDTO, len(lines))
	for i, l := range lines {
		out[i] = SaleLineDTO{
			ID:         string(l.ID),
			Seq:        l.Seq,
			Date:       l.Date.String(),
			Customer:   l.Customer,
			Bunches:    l.Bunches,
			Total:      l.Total.String(),
			Commission: l.Commission.String(),
			Net:        l.Net.String(),
		}
	}
	return out
}

func toEventDTO(e ledger.PaymentEvent) PaymentEventDTO {
	return PaymentEventDTO{
		ID:       string(e.ID),
		Seq:      e.Seq,
		Customer: e.Customer,
		Date:     e.Date.String(),
		Kind:     string(e.Kind),
		Paid:     e.Paid().String(),
		Discount: e.Discount().String(),
	}
}

func toReconciledDTOs(events []ledger.ReconciledEvent) []PaymentEventDTO {
	out := make([]PaymentEventDTO, len(events))
	for i, e := range events {
		dto := toEventDTO(e.PaymentEvent)
		dto.TotalPaid = e.TotalPaid.String()
		dto.TotalDiscount = e.TotalDiscount.String()
		dto.Remaining = e.Remaining.String()
		out[i] = dto
	}
	return out
}

func toSummaryDTO(s ledger.Summary) SummaryDTO {
	return SummaryDTO{
		Customer:      s.Customer,
		Total:         s.Total.String(),
		TotalPaid:     s.TotalPaid.String(),
		TotalDiscount: s.TotalDiscount.String(),
		Remaining:     s.Remaining.String(),
		Line:          report.SummaryLine(s),
	}
}

func toChartDTOs(points []ledger.ChartPoint) []ChartPointDTO {
	out := make([]ChartPointDTO, len(points))
	for i, p := range points {
		out[i] = ChartPointDTO{Label: p.Label, Net: p.Net.String()}
	}
	return out
}
