/*
Package csvfile provides a flat-file implementation of ledger.Store.

PURPOSE:
  Keeps the two ledgers as plain CSV files that can be opened in any
  spreadsheet: sales.csv and payments.csv in one directory.

FILE LAYOUT:
  sales.csv:    id,seq,date,name,bunches,total
  payments.csv: id,seq,name,date,paid_amount,discount

  Columns are matched by header name, so files written by older versions
  (without id/seq) still load. On open such rows are given an id and a seq
  and the file is rewritten once.

  A payments row is either a payment (paid_amount set, discount 0) or a
  discount (discount set, paid_amount 0). A legacy row carrying both is
  split into two events, payment first.

CORRUPTION POLICY:
  A file that cannot be parsed as CSV, or whose header lacks the name/date
  columns, is replaced by a header-only file and a warning is logged. A
  leading byte order mark is ignored. Rows with an unreadable date are
  skipped by reads with a warning, but rewrites keep them in the file.
  Numeric cells are parsed leniently (bad or negative values read as zero).

SEQ:
  ledger.seq holds the highest seq handed out before rows were removed
  (reset, delete), so seqs are not reused after a restart.

CONCURRENCY:
  Uses sync.Mutex. Single process, single writer.

SEE ALSO:
  - ledger/store.go: Interface definition
  - store/sqldb/sqldb.go: SQL implementation
*/
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mrbanana/bunch-ledger/ledger"
	"go.uber.org/zap"
)

const (
	SalesFile    = "sales.csv"
	PaymentsFile = "payments.csv"
	SeqFile      = "ledger.seq"
)

var (
	salesHeader    = []string{"id", "seq", "date", "name", "bunches", "total"}
	paymentsHeader = []string{"id", "seq", "name", "date", "paid_amount", "discount"}
)

// errCorrupt marks a file that must be reinitialized.
var errCorrupt = errors.New("corrupt ledger file")

// Store implements ledger.Store over two CSV files.
type Store struct {
	mu           sync.Mutex
	salesPath    string
	paymentsPath string
	seqPath      string
	seq          int64
	logger       *zap.Logger
}

// Open prepares dir (creating it and missing files), repairs unreadable
// files and assigns ids to legacy rows.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		salesPath:    filepath.Join(dir, SalesFile),
		paymentsPath: filepath.Join(dir, PaymentsFile),
		seqPath:      filepath.Join(dir, SeqFile),
		logger:       logger,
	}

	salesTable, err := s.readSales()
	if err != nil {
		return nil, err
	}
	eventsTable, err := s.readEvents()
	if err != nil {
		return nil, err
	}
	sales, salesDirty := salesTable.sales, salesTable.dirty
	events, eventsDirty := eventsTable.events, eventsTable.dirty

	s.seq = s.loadSeqMark()
	for _, sale := range sales {
		s.seq = max(s.seq, sale.Seq)
	}
	for _, e := range events {
		s.seq = max(s.seq, e.Seq)
	}
	// Legacy rows carry no seq; number them after everything else, in file order.
	for i := range sales {
		if sales[i].Seq == 0 {
			s.seq++
			sales[i].Seq = s.seq
			salesDirty = true
		}
	}
	for i := range events {
		if events[i].Seq == 0 {
			s.seq++
			events[i].Seq = s.seq
			eventsDirty = true
		}
	}

	if salesDirty {
		if err := s.writeSales(sales, salesTable.unreadable); err != nil {
			return nil, err
		}
	}
	if eventsDirty {
		if err := s.writeEvents(events, eventsTable.unreadable); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// =============================================================================
// SALES
// =============================================================================

func (s *Store) AppendSale(_ context.Context, sale ledger.Sale) (ledger.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	sale.Seq = s.seq
	if err := appendRow(s.salesPath, salesRow(sale)); err != nil {
		return ledger.Sale{}, fmt.Errorf("failed to append sale: %w", err)
	}
	return sale, nil
}

func (s *Store) LoadSales(_ context.Context) ([]ledger.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readSales()
	return t.sales, err
}

// =============================================================================
// PAYMENT EVENTS
// =============================================================================

func (s *Store) AppendEvent(_ context.Context, event ledger.PaymentEvent) (ledger.PaymentEvent, error) {
	if !event.Kind.Valid() {
		return ledger.PaymentEvent{}, fmt.Errorf("%w: %q", ledger.ErrInvalidKind, event.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	event.Seq = s.seq
	if err := appendRow(s.paymentsPath, eventRow(event)); err != nil {
		return ledger.PaymentEvent{}, fmt.Errorf("failed to append payment event: %w", err)
	}
	return event, nil
}

func (s *Store) LoadEvents(_ context.Context) ([]ledger.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readEvents()
	return t.events, err
}

// DeleteEvent rewrites payments.csv without the given event.
func (s *Store) DeleteEvent(_ context.Context, id ledger.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readEvents()
	if err != nil {
		return err
	}
	kept := t.events[:0]
	found := false
	for _, e := range t.events {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return ledger.ErrEventNotFound
	}
	if err := s.saveSeqMark(); err != nil {
		return err
	}
	return s.writeEvents(kept, t.unreadable)
}

// Reset truncates both files to their headers. Seq keeps counting, also
// across restarts.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveSeqMark(); err != nil {
		return err
	}
	if err := writeFile(s.salesPath, salesHeader, nil); err != nil {
		return err
	}
	return writeFile(s.paymentsPath, paymentsHeader, nil)
}

// =============================================================================
// READING
// =============================================================================

// salesTable is sales.csv as read. Rows that could not be read are kept
// verbatim (in the current column layout) so rewrites never drop them.
type salesTable struct {
	sales      []ledger.Sale
	unreadable [][]string
	dirty      bool // some row needs an id or the layout is old
}

type paymentsTable struct {
	events     []ledger.PaymentEvent
	unreadable [][]string
	dirty      bool
}

func (s *Store) readSales() (salesTable, error) {
	cols, records, err := s.readTable(s.salesPath, salesHeader)
	if err != nil {
		return salesTable{}, err
	}

	var t salesTable
	for _, rec := range records {
		date, err := ledger.ParseDate(cols.get(rec, "date"))
		if err != nil {
			s.logger.Warn("skipping sale row with unreadable date",
				zap.String("file", s.salesPath), zap.Strings("row", rec))
			t.unreadable = append(t.unreadable, cols.relayout(rec, salesHeader))
			continue
		}
		sale := ledger.Sale{
			ID:       ledger.SaleID(cols.get(rec, "id")),
			Seq:      parseSeq(cols.get(rec, "seq")),
			Date:     date,
			Customer: ledger.NormalizeCustomer(cols.get(rec, "name")),
			Bunches:  ledger.ParseBunches(cols.get(rec, "bunches")),
			Total:    ledger.ParseAmount(cols.get(rec, "total")),
		}
		if sale.ID == "" {
			sale.ID = ledger.NewSaleID()
			t.dirty = true
		}
		t.sales = append(t.sales, sale)
	}
	return t, nil
}

// readEvents splits legacy rows carrying both a paid amount and a discount.
func (s *Store) readEvents() (paymentsTable, error) {
	cols, records, err := s.readTable(s.paymentsPath, paymentsHeader)
	if err != nil {
		return paymentsTable{}, err
	}

	var t paymentsTable
	for _, rec := range records {
		date, err := ledger.ParseDate(cols.get(rec, "date"))
		if err != nil {
			s.logger.Warn("skipping payment row with unreadable date",
				zap.String("file", s.paymentsPath), zap.Strings("row", rec))
			t.unreadable = append(t.unreadable, cols.relayout(rec, paymentsHeader))
			continue
		}
		base := ledger.PaymentEvent{
			ID:       ledger.EventID(cols.get(rec, "id")),
			Seq:      parseSeq(cols.get(rec, "seq")),
			Customer: ledger.NormalizeCustomer(cols.get(rec, "name")),
			Date:     date,
		}
		paid := ledger.ParseAmount(cols.get(rec, "paid_amount"))
		off := ledger.ParseAmount(cols.get(rec, "discount"))

		switch {
		case paid.IsPositive() && off.IsPositive():
			pay, disc := base, base
			pay.Kind, pay.Amount = ledger.KindPayment, paid
			disc.Kind, disc.Amount = ledger.KindDiscount, off
			pay.ID, disc.ID = ledger.NewEventID(), ledger.NewEventID()
			disc.Seq = 0
			t.events = append(t.events, pay, disc)
			t.dirty = true
			continue
		case off.IsPositive():
			base.Kind, base.Amount = ledger.KindDiscount, off
		default:
			base.Kind, base.Amount = ledger.KindPayment, paid
		}
		if base.ID == "" {
			base.ID = ledger.NewEventID()
			t.dirty = true
		}
		t.events = append(t.events, base)
	}
	return t, nil
}

// readTable reads a CSV file, creating it with header when missing and
// reinitializing it when unreadable.
func (s *Store) readTable(path string, header []string) (columns, [][]string, error) {
	cols, records, err := readCSV(path)
	switch {
	case err == nil:
		return cols, records, nil
	case errors.Is(err, os.ErrNotExist):
		if err := writeFile(path, header, nil); err != nil {
			return nil, nil, err
		}
		return newColumns(header), nil, nil
	case errors.Is(err, errCorrupt):
		s.logger.Warn("ledger file unreadable, reinitializing empty file",
			zap.String("file", path),
			zap.Error(err),
		)
		if err := writeFile(path, header, nil); err != nil {
			return nil, nil, err
		}
		return newColumns(header), nil, nil
	default:
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
}

func readCSV(path string) (columns, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, nil, fmt.Errorf("%w: %v", errCorrupt, err)
		}
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: missing header", errCorrupt)
	}

	cols := newColumns(rows[0])
	if !cols.has("name") || !cols.has("date") {
		return nil, nil, fmt.Errorf("%w: header %v lacks name/date", errCorrupt, rows[0])
	}
	return cols, rows[1:], nil
}

// columns maps a header name to its position.
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, name := range header {
		// Excel's "CSV UTF-8" starts the file with a byte order mark.
		name = strings.TrimPrefix(name, "\ufeff")
		c[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return c
}

func (c columns) has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// relayout returns rec's cells in header order. Cells are copied untouched.
func (c columns) relayout(rec []string, header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if j, ok := c[name]; ok && j < len(rec) {
			out[i] = rec[j]
		}
	}
	return out
}

func parseSeq(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// =============================================================================
// WRITING
// =============================================================================

func salesRow(sale ledger.Sale) []string {
	return []string{
		string(sale.ID),
		strconv.FormatInt(sale.Seq, 10),
		sale.Date.String(),
		sale.Customer,
		strconv.FormatInt(sale.Bunches, 10),
		sale.Total.String(),
	}
}

func eventRow(e ledger.PaymentEvent) []string {
	return []string{
		string(e.ID),
		strconv.FormatInt(e.Seq, 10),
		e.Customer,
		e.Date.String(),
		e.Paid().String(),
		e.Discount().String(),
	}
}

// writeSales rewrites sales.csv; unreadable rows follow the readable ones.
func (s *Store) writeSales(sales []ledger.Sale, unreadable [][]string) error {
	rows := make([][]string, 0, len(sales)+len(unreadable))
	for _, sale := range sales {
		rows = append(rows, salesRow(sale))
	}
	return writeFile(s.salesPath, salesHeader, append(rows, unreadable...))
}

func (s *Store) writeEvents(events []ledger.PaymentEvent, unreadable [][]string) error {
	rows := make([][]string, 0, len(events)+len(unreadable))
	for _, e := range events {
		rows = append(rows, eventRow(e))
	}
	return writeFile(s.paymentsPath, paymentsHeader, append(rows, unreadable...))
}

// =============================================================================
// SEQ HIGH-WATER MARK
// =============================================================================

// loadSeqMark returns the highest seq ever handed out, as saved before rows
// were removed. A missing or unreadable mark reads as zero.
func (s *Store) loadSeqMark() int64 {
	data, err := os.ReadFile(s.seqPath)
	if err != nil {
		return 0
	}
	return parseSeq(strings.TrimSpace(string(data)))
}

// saveSeqMark records the current seq so it survives rows being removed.
func (s *Store) saveSeqMark() error {
	if err := os.WriteFile(s.seqPath, []byte(strconv.FormatInt(s.seq, 10)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to save seq mark: %w", err)
	}
	return nil
}

// writeFile replaces path atomically with header plus rows.
func writeFile(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeRows(tmp, append([][]string{header}, rows...)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := writeRows(f, [][]string{row}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
