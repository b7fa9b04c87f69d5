package csvfile_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/mrbanana/bunch-ledger/store/csvfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func day(d int) ledger.Date { return ledger.NewDate(2024, time.May, d) }

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestOpen_CreatesFilesWithHeader(t *testing.T) {
	dir := t.TempDir()

	_, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)

	sales, err := os.ReadFile(filepath.Join(dir, csvfile.SalesFile))
	require.NoError(t, err)
	assert.Equal(t, "id,seq,date,name,bunches,total\n", string(sales))

	payments, err := os.ReadFile(filepath.Join(dir, csvfile.PaymentsFile))
	require.NoError(t, err)
	assert.Equal(t, "id,seq,name,date,paid_amount,discount\n", string(payments))
}

func TestStore_AppendAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)

	sale, err := store.AppendSale(ctx, ledger.Sale{
		ID: ledger.NewSaleID(), Date: day(1), Customer: "alice", Bunches: 5, Total: ledger.NewAmountFromInt(500),
	})
	require.NoError(t, err)
	pay, err := store.AppendEvent(ctx, ledger.PaymentEvent{
		ID: ledger.NewEventID(), Customer: "alice", Date: day(2), Kind: ledger.KindPayment, Amount: ledger.ParseAmount("150.25"),
	})
	require.NoError(t, err)
	assert.Greater(t, pay.Seq, sale.Seq)

	// A fresh Store over the same directory sees the same rows.
	reopened, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)

	sales, err := reopened.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
	assert.Equal(t, int64(5), sales[0].Bunches)
	assert.True(t, day(1).Equal(sales[0].Date))

	events, err := reopened.LoadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, pay.ID, events[0].ID)
	assert.Equal(t, ledger.KindPayment, events[0].Kind)
	assert.Equal(t, "150.25", events[0].Amount.String())

	next, err := reopened.AppendSale(ctx, ledger.Sale{ID: ledger.NewSaleID(), Date: day(3), Customer: "bob", Total: ledger.ZeroAmount()})
	require.NoError(t, err)
	assert.Greater(t, next.Seq, pay.Seq, "seq continues after reopen")
}

func TestStore_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	store, err := csvfile.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	first, err := store.AppendEvent(ctx, ledger.PaymentEvent{ID: ledger.NewEventID(), Customer: "alice", Date: day(1), Kind: ledger.KindPayment, Amount: ledger.NewAmountFromInt(10)})
	require.NoError(t, err)
	second, err := store.AppendEvent(ctx, ledger.PaymentEvent{ID: ledger.NewEventID(), Customer: "alice", Date: day(1), Kind: ledger.KindDiscount, Amount: ledger.NewAmountFromInt(5)})
	require.NoError(t, err)

	require.NoError(t, store.DeleteEvent(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteEvent(ctx, first.ID), ledger.ErrEventNotFound)

	events, err := store.LoadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, ledger.KindDiscount, events[0].Kind)
}

func TestStore_LegacyRowsGetIdentity(t *testing.T) {
	// GIVEN: Files in the old layout, one payment row carrying both columns
	dir := t.TempDir()
	writeFile(t, dir, csvfile.SalesFile, "date,name,bunches,total\n01-May-2024,alice,5,500\n02-May-2024,bob,abc,-3\n")
	writeFile(t, dir, csvfile.PaymentsFile, "name,date,paid_amount,discount\nalice,03-May-2024,100,20\nalice,04-May-2024,50,0\n")

	// WHEN: Opening the store
	store, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	// THEN: Rows load with ids, lenient numbers, and the dual row split
	sales, err := store.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.NotEmpty(t, sales[0].ID)
	assert.Equal(t, int64(0), sales[1].Bunches)
	assert.True(t, sales[1].Total.IsZero())

	events, err := store.LoadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ledger.KindPayment, events[0].Kind)
	assert.Equal(t, "100", events[0].Amount.String())
	assert.Equal(t, ledger.KindDiscount, events[1].Kind)
	assert.Equal(t, "20", events[1].Amount.String())
	assert.Less(t, events[0].Seq, events[1].Seq)

	// AND: Ids are stable across loads because the files were rewritten
	again, err := store.LoadEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, events[2].ID, again[2].ID)

	// AND: The book reconciles the migrated data
	book := ledger.NewBook(store, ledger.DefaultCommission())
	summary, err := book.PaymentSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "150", summary.TotalPaid.String())
	assert.Equal(t, "20", summary.TotalDiscount.String())
	assert.Equal(t, "230", summary.Remaining.String()) // 500 - 5*20 - 170
}

func TestStore_CorruptFileReinitialized(t *testing.T) {
	// GIVEN: A payments file with an unterminated quote and a sales file without a header
	dir := t.TempDir()
	writeFile(t, dir, csvfile.PaymentsFile, "name,date,paid_amount\n\"alice,01-May-2024,10\n")
	writeFile(t, dir, csvfile.SalesFile, "")

	core, logs := observer.New(zap.WarnLevel)

	// WHEN: Opening the store
	store, err := csvfile.Open(dir, zap.New(core))

	// THEN: Both files are empty ledgers and each reset was logged
	require.NoError(t, err)
	events, err := store.LoadEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, logs.FilterMessage("ledger file unreadable, reinitializing empty file").Len())

	content, err := os.ReadFile(filepath.Join(dir, csvfile.PaymentsFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "id,seq,name,date"))
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store, err := csvfile.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	before, err := store.AppendSale(ctx, ledger.Sale{ID: ledger.NewSaleID(), Date: day(1), Customer: "alice", Bunches: 1, Total: ledger.NewAmountFromInt(30)})
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx))

	sales, err := store.LoadSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	after, err := store.AppendSale(ctx, ledger.Sale{ID: ledger.NewSaleID(), Date: day(2), Customer: "alice", Bunches: 1, Total: ledger.NewAmountFromInt(30)})
	require.NoError(t, err)
	assert.Greater(t, after.Seq, before.Seq)
}

func TestStore_ByteOrderMarkHeader(t *testing.T) {
	// GIVEN: A legacy sales file saved as "CSV UTF-8" by a spreadsheet
	dir := t.TempDir()
	writeFile(t, dir, csvfile.SalesFile, "\ufeffdate,name,bunches,total\n01-May-2024,alice,5,500\n")

	core, logs := observer.New(zap.WarnLevel)

	// WHEN: Opening the store
	store, err := csvfile.Open(dir, zap.New(core))
	require.NoError(t, err)

	// THEN: The row loads and the file was not treated as corrupt
	sales, err := store.LoadSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "alice", sales[0].Customer)
	assert.Equal(t, int64(5), sales[0].Bunches)
	assert.Zero(t, logs.FilterMessage("ledger file unreadable, reinitializing empty file").Len())
}

func TestStore_UnreadableDateRowsKeptOnRewrite(t *testing.T) {
	// GIVEN: A legacy payments file where one row has a date in an unknown format
	dir := t.TempDir()
	writeFile(t, dir, csvfile.PaymentsFile, "name,date,paid_amount,discount\nalice,03/05/2024,100,0\nalice,04-May-2024,50,0\n")
	ctx := context.Background()

	// WHEN: Opening the store, which rewrites the file to add ids
	store, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)

	// THEN: Only the readable row is loaded, but the other is still on disk
	events, err := store.LoadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "50", events[0].Amount.String())

	content, err := os.ReadFile(filepath.Join(dir, csvfile.PaymentsFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "alice,03/05/2024,100,0")

	// WHEN: Deleting an event rewrites the file again
	extra, err := store.AppendEvent(ctx, ledger.PaymentEvent{ID: ledger.NewEventID(), Customer: "alice", Date: day(6), Kind: ledger.KindPayment, Amount: ledger.NewAmountFromInt(5)})
	require.NoError(t, err)
	require.NoError(t, store.DeleteEvent(ctx, extra.ID))

	// THEN: The unreadable row survives that rewrite and a reopen
	content, err = os.ReadFile(filepath.Join(dir, csvfile.PaymentsFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "alice,03/05/2024,100,0")

	reopened, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)
	events, err = reopened.LoadEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStore_SeqNotReusedAfterRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)
	first, err := store.AppendSale(ctx, ledger.Sale{ID: ledger.NewSaleID(), Date: day(1), Customer: "alice", Bunches: 1, Total: ledger.NewAmountFromInt(30)})
	require.NoError(t, err)

	// Reset leaves empty files; the next process must not start over.
	require.NoError(t, store.Reset(ctx))
	store, err = csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)
	last, err := store.AppendEvent(ctx, ledger.PaymentEvent{ID: ledger.NewEventID(), Customer: "alice", Date: day(2), Kind: ledger.KindPayment, Amount: ledger.NewAmountFromInt(10)})
	require.NoError(t, err)
	assert.Greater(t, last.Seq, first.Seq)

	// Deleting the newest row must not free its seq either.
	require.NoError(t, store.DeleteEvent(ctx, last.ID))
	store, err = csvfile.Open(dir, zap.NewNop())
	require.NoError(t, err)
	next, err := store.AppendEvent(ctx, ledger.PaymentEvent{ID: ledger.NewEventID(), Customer: "alice", Date: day(3), Kind: ledger.KindPayment, Amount: ledger.NewAmountFromInt(10)})
	require.NoError(t, err)
	assert.Greater(t, next.Seq, last.Seq)
}
