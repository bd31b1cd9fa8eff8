package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Memory is an in-memory Repository used by tests and the local CLI
// wiring. Err* fields inject failures for collaborator-failure paths.
type Memory struct {
	mu sync.Mutex

	Accounts      []model.Account
	Rows          []model.LedgerRow   // balance sheet rows per call
	PLRows        []model.LedgerRow   // P&L rows per call
	BudgetRows    []model.LedgerRow
	Activity      []MonthlyActivity
	Invoices      map[int]*model.Invoice
	Journals      map[int]model.Journal
	ClosedThrough time.Time

	nextJournalID int

	ErrFetchRows  error
	ErrBudget     error
	ErrInsert     error
	InsertDelay   time.Duration // simulates a slow insert for concurrency tests
	InsertedCount int
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		Invoices:      make(map[int]*model.Invoice),
		Journals:      make(map[int]model.Journal),
		nextJournalID: 1,
	}
}

func (m *Memory) FetchBalanceSheetRows(ctx context.Context, companyID int, asOf time.Time, f Filters) ([]model.LedgerRow, error) {
	if m.ErrFetchRows != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, m.ErrFetchRows)
	}
	lo, hi := f.Window(len(m.Rows))
	return append([]model.LedgerRow(nil), m.Rows[lo:hi]...), nil
}

func (m *Memory) FetchProfitLossRows(ctx context.Context, companyID int, from, to time.Time, f Filters) ([]model.LedgerRow, error) {
	if m.ErrFetchRows != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, m.ErrFetchRows)
	}
	lo, hi := f.Window(len(m.PLRows))
	return append([]model.LedgerRow(nil), m.PLRows[lo:hi]...), nil
}

func (m *Memory) FetchBudgetRows(ctx context.Context, companyID int, from, to time.Time, f Filters) ([]model.LedgerRow, error) {
	if m.ErrBudget != nil {
		return nil, m.ErrBudget
	}
	return append([]model.LedgerRow(nil), m.BudgetRows...), nil
}

func (m *Memory) FetchMonthlyActivity(ctx context.Context, companyID, fiscalYear int) ([]MonthlyActivity, error) {
	return append([]MonthlyActivity(nil), m.Activity...), nil
}

func (m *Memory) FetchAccountHierarchy(ctx context.Context, companyID int) ([]model.Account, error) {
	return append([]model.Account(nil), m.Accounts...), nil
}

func (m *Memory) IsPeriodClosed(ctx context.Context, companyID int, date time.Time) (bool, error) {
	return !m.ClosedThrough.IsZero() && !date.After(m.ClosedThrough), nil
}

func (m *Memory) GetInvoice(ctx context.Context, id int) (model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.Invoices[id]
	if !ok {
		return model.Invoice{}, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return *inv, nil
}

func (m *Memory) GetJournal(ctx context.Context, id int) (model.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Journals[id]
	if !ok {
		return model.Journal{}, fmt.Errorf("journal %d: %w", id, ErrNotFound)
	}
	return j, nil
}

func (m *Memory) NextJournalSeq(ctx context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Journals) + 1, nil
}

func (m *Memory) InsertJournal(ctx context.Context, j model.Journal) (int, error) {
	if m.InsertDelay > 0 {
		select {
		case <-time.After(m.InsertDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrInsert != nil {
		return 0, m.ErrInsert
	}
	id := m.nextJournalID
	m.nextJournalID++
	j.ID = id
	m.Journals[id] = j
	m.InsertedCount++
	return id, nil
}

func (m *Memory) MarkInvoicePosted(ctx context.Context, invoiceID, journalID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.Invoices[invoiceID]
	if !ok || inv.Status != model.InvoiceDraft {
		return fmt.Errorf("invoice %d not in draft: %w", invoiceID, ErrNotFound)
	}
	inv.Status = model.InvoicePosted
	inv.JournalID = journalID
	return nil
}

func (m *Memory) MarkInvoiceCancelled(ctx context.Context, invoiceID, reversalJournalID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.Invoices[invoiceID]
	if !ok || inv.Status != model.InvoicePosted {
		return fmt.Errorf("invoice %d not posted: %w", invoiceID, ErrNotFound)
	}
	inv.Status = model.InvoiceCancelled
	return nil
}
