/*
handlers.go - HTTP API handlers for the bunch ledger

PURPOSE:
  Exposes the ledger via a JSON API. Handles HTTP request/response and
  JSON serialization, and delegates everything else to ledger.Book.

ENDPOINTS:
  Session:
    POST   /api/login                 Exchange credentials for a token

  Sales:
    GET    /api/customers             Net total per customer
    GET    /api/sales?customer=       Sale lines with commission and net
    POST   /api/sales                 Record a sale (admin)
    GET    /api/sales/export          PDF / XLSX of the sale lines
    POST   /api/sales/share           Send the sale lines as a text message

  Payments:
    GET    /api/payments?customer=    Reconciled events, newest first
    POST   /api/payments              Record a payment
    DELETE /api/payments/{id}         Remove a payment or discount
    GET    /api/payments/summary      One customer's position
    GET    /api/payments/export       PDF / XLSX of the events
    POST   /api/payments/share        Send the events as a text message
    POST   /api/discounts             Apply a discount (admin)

  Other:
    GET    /api/charts?by=customer|date
    POST   /api/admin/reset           Clear both ledgers (admin)

CUSTOMER SELECTION:
  An absent customer parameter, or "All", selects every customer. The
  selection is always a request argument; nothing is remembered between
  requests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, no destination address
  - 401: Bad credentials or missing/expired session
  - 403: Admin role required
  - 404: Payment event not found
  - 422: Payment for a customer with no sales
  - 502: Message provider declined the message
  - 503: Messaging not configured
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrbanana/bunch-ledger/auth"
	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/mrbanana/bunch-ledger/notify"
	"github.com/mrbanana/bunch-ledger/report"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Book   *ledger.Book
	Users  *auth.Users
	Tokens *auth.Tokens
	Logger *zap.Logger

	// Notifier is nil when no message provider is configured.
	Notifier *notify.Notifier
}

func NewHandler(book *ledger.Book, users *auth.Users, tokens *auth.Tokens, notifier *notify.Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Book:     book,
		Users:    users,
		Tokens:   tokens,
		Notifier: notifier,
		Logger:   logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SESSION
// =============================================================================

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	role, err := h.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	username := strings.TrimSpace(req.Username)
	token, session, err := h.Tokens.Issue(username, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	h.Logger.Info("login", zap.String("user", username), zap.String("role", string(role)))
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Username:  username,
		Role:      string(role),
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// SALES
// =============================================================================

// ListCustomers returns every customer with sales and their net total.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Book.Totals(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to load customers", err)
		return
	}

	out := make([]CustomerTotalDTO, 0, len(totals))
	for _, name := range totals.Customers() {
		out = append(out, CustomerTotalDTO{Customer: name, Total: totals.Get(name).String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Book.Sales(r.Context(), customerParam(r))
	if err != nil {
		h.writeLedgerError(w, "Failed to load sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleLineDTOs(lines))
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	sale, err := h.Book.AddSale(r.Context(), ledger.SaleInput{
		Date:     date,
		Customer: req.Customer,
		Bunches:  req.Bunches.Bunches(),
		Total:    req.Total.Amount(),
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to record sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

func (h *Handler) ExportSales(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export format", err)
		return
	}
	customer := customerParam(r)
	lines, err := h.Book.Sales(r.Context(), customer)
	if err != nil {
		h.writeLedgerError(w, "Failed to load sales", err)
		return
	}
	h.writeDocument(w, format, "sales_summary", report.SalesTable(title("Sales Summary", customer), lines))
}

func (h *Handler) ShareSales(w http.ResponseWriter, r *http.Request) {
	req, ok := h.shareRequest(w, r)
	if !ok {
		return
	}
	lines, err := h.Book.Sales(r.Context(), req.Customer)
	if err != nil {
		h.writeLedgerError(w, "Failed to load sales", err)
		return
	}
	if len(lines) == 0 {
		writeError(w, http.StatusBadRequest, "No sales data to send", nil)
		return
	}
	h.share(w, r, req, report.SalesMessage(req.Customer, lines))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	events, err := h.Book.Payments(r.Context(), customerParam(r))
	if err != nil {
		h.writeLedgerError(w, "Failed to load payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciledDTOs(events))
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	req, date, ok := decodePayment(w, r)
	if !ok {
		return
	}
	event, err := h.Book.RecordPayment(r.Context(), req.Customer, date, req.Amount.Amount())
	if err != nil {
		h.writeLedgerError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(event))
}

// ApplyDiscount records a discount. Repeating the same discount for the
// same customer on the same day returns the existing one with 200.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	req, date, ok := decodePayment(w, r)
	if !ok {
		return
	}
	event, created, err := h.Book.ApplyDiscount(r.Context(), req.Customer, date, req.Amount.Amount())
	if err != nil {
		h.writeLedgerError(w, "Failed to apply discount", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, DiscountResponse{Event: toEventDTO(event), Created: created})
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.EventID(chi.URLParam(r, "id"))
	if err := h.Book.DeletePayment(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to delete payment", err)
		return
	}
	h.Logger.Info("payment deleted", zap.String("id", string(id)), zap.String("user", sessionUser(r)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Book.PaymentSummary(r.Context(), customerParam(r))
	if err != nil {
		h.writeLedgerError(w, "Failed to summarize payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

func (h *Handler) ExportPayments(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export format", err)
		return
	}
	customer := customerParam(r)
	events, err := h.Book.Payments(r.Context(), customer)
	if err != nil {
		h.writeLedgerError(w, "Failed to load payments", err)
		return
	}
	h.writeDocument(w, format, "payment_tracker", report.PaymentsTable(title("Payment Tracker", customer), events))
}

func (h *Handler) SharePayments(w http.ResponseWriter, r *http.Request) {
	req, ok := h.shareRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	summary, err := h.Book.PaymentSummary(ctx, req.Customer)
	if err != nil {
		h.writeLedgerError(w, "Failed to summarize payments", err)
		return
	}
	events, err := h.Book.Payments(ctx, req.Customer)
	if err != nil {
		h.writeLedgerError(w, "Failed to load payments", err)
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "No payments to send", nil)
		return
	}
	h.share(w, r, req, report.PaymentsMessage(summary, events))
}

// =============================================================================
// CHARTS AND ADMIN
// =============================================================================

func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	by := ledger.ChartGrouping(r.URL.Query().Get("by"))
	switch by {
	case "":
		by = ledger.ByCustomer
	case ledger.ByCustomer, ledger.ByDate:
	default:
		writeError(w, http.StatusBadRequest, "by must be customer or date", nil)
		return
	}
	points, err := h.Book.Chart(r.Context(), by)
	if err != nil {
		h.writeLedgerError(w, "Failed to build chart", err)
		return
	}
	writeJSON(w, http.StatusOK, toChartDTOs(points))
}

// ResetData clears both ledgers.
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := h.Book.Reset(r.Context()); err != nil {
		h.writeLedgerError(w, "Failed to reset data", err)
		return
	}
	h.Logger.Warn("ledger data reset", zap.String("user", sessionUser(r)))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps ledger errors to HTTP status codes.
func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrUnreconcilableCustomer):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *Handler) writeDocument(w http.ResponseWriter, format report.Format, name string, table report.Table) {
	body, err := report.Render(format, table)
	if err != nil {
		h.Logger.Error("export failed", zap.String("format", string(format)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to render document", err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, name, format.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// shareRequest decodes a share body and checks that messaging is available
// and that a single customer was chosen.
func (h *Handler) shareRequest(w http.ResponseWriter, r *http.Request) (ShareRequest, bool) {
	if h.Notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "Messaging is not configured", nil)
		return ShareRequest{}, false
	}
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return ShareRequest{}, false
	}
	req.Customer = selectCustomer(req.Customer)
	if req.Customer == ledger.AllCustomers {
		writeError(w, http.StatusBadRequest, "Please select a specific customer", nil)
		return ShareRequest{}, false
	}
	return req, true
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request, req ShareRequest, text string) {
	addr, err := h.Notifier.Notify(r.Context(), req.Customer, req.Destination, text)
	switch {
	case errors.Is(err, notify.ErrNoDestination):
		writeError(w, http.StatusBadRequest, "Please enter a valid WhatsApp number", err)
	case err != nil:
		writeError(w, http.StatusBadGateway, "Message was not delivered", err)
	default:
		writeJSON(w, http.StatusOK, ShareResponse{Destination: addr})
	}
}

func decodePayment(w http.ResponseWriter, r *http.Request) (PaymentRequest, ledger.Date, bool) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, ledger.Date{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return req, ledger.Date{}, false
	}
	return req, date, true
}

// parseDate reads a request date; empty means today.
func parseDate(s string) (ledger.Date, error) {
	if strings.TrimSpace(s) == "" {
		return ledger.Today(), nil
	}
	return ledger.ParseDate(s)
}

func customerParam(r *http.Request) string {
	return selectCustomer(r.URL.Query().Get("customer"))
}

// selectCustomer maps "" and "All" to AllCustomers.
func selectCustomer(s string) string {
	s = ledger.NormalizeCustomer(s)
	if strings.EqualFold(s, "all") {
		return ledger.AllCustomers
	}
	return s
}

func title(prefix, customer string) string {
	if customer == ledger.AllCustomers {
		return prefix
	}
	return prefix + " for " + customer
}

func sessionUser(r *http.Request) string {
	if s, ok := auth.SessionFrom(r.Context()); ok {
		return s.Username
	}
	return ""
}
