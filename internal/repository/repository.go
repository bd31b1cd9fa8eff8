// Package repository defines the storage contract the engine consumes and
// its Postgres and in-memory implementations. The engine never retries;
// retry policy, if any, lives behind this interface.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// ErrDataUnavailable is returned once every fallback strategy for a
// primary data fetch has been exhausted.
var ErrDataUnavailable = errors.New("ledger data unavailable")

// ErrNotFound is returned for lookups of documents that do not exist.
var ErrNotFound = errors.New("not found")

// Filters narrows a statement computation. PageSize zero disables
// paging; Page is 1-based and values below 1 read as the first page.
type Filters struct {
	CostCenter string
	Project    string
	Page       int
	PageSize   int
}

// Window returns slice bounds for the requested page over n rows,
// clamped so out-of-range pages yield an empty window.
func (f Filters) Window(n int) (int, int) {
	if f.PageSize <= 0 {
		return 0, n
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * f.PageSize
	if lo > n {
		lo = n
	}
	hi := lo + f.PageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}

// MonthlyActivity is one pre-materialized month of P&L aggregates.
type MonthlyActivity struct {
	Year     int
	Month    time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
	COGS     decimal.Decimal
}

// Repository executes parameterized lookups and stored procedures against
// ledger storage. Implementations own connection handling and fallbacks.
type Repository interface {
	FetchBalanceSheetRows(ctx context.Context, companyID int, asOf time.Time, f Filters) ([]model.LedgerRow, error)
	FetchProfitLossRows(ctx context.Context, companyID int, from, to time.Time, f Filters) ([]model.LedgerRow, error)
	FetchBudgetRows(ctx context.Context, companyID int, from, to time.Time, f Filters) ([]model.LedgerRow, error)
	FetchMonthlyActivity(ctx context.Context, companyID, fiscalYear int) ([]MonthlyActivity, error)
	FetchAccountHierarchy(ctx context.Context, companyID int) ([]model.Account, error)
	IsPeriodClosed(ctx context.Context, companyID int, date time.Time) (bool, error)
	GetInvoice(ctx context.Context, id int) (model.Invoice, error)
	GetJournal(ctx context.Context, id int) (model.Journal, error)
	NextJournalSeq(ctx context.Context, year int) (int, error)
	InsertJournal(ctx context.Context, j model.Journal) (int, error)
	MarkInvoicePosted(ctx context.Context, invoiceID, journalID int) error
	MarkInvoiceCancelled(ctx context.Context, invoiceID, reversalJournalID int) error
}
