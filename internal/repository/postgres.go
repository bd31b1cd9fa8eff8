package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Postgres implements Repository over a pgx connection pool. Statement
// rows come from stored procedures with an ordered fallback: the filtered
// procedure, then the enhanced one, then the base one, then a raw scan of
// the journal tables. Each hop triggers only on upstream error.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres creates a Postgres repository.
func NewPostgres(pool *pgxpool.Pool, log *slog.Logger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

// pageClause renders a LIMIT/OFFSET suffix for paged statement queries.
// The stored procedures and the raw scan return rows in hierarchy order,
// which keeps page windows stable across hops.
func pageClause(f Filters) string {
	if f.PageSize <= 0 {
		return ""
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
}

// FetchBalanceSheetRows walks the stored-procedure fallback chain.
func (p *Postgres) FetchBalanceSheetRows(ctx context.Context, companyID int, asOf time.Time, f Filters) ([]model.LedgerRow, error) {
	page := pageClause(f)
	return TryInOrder(ctx, p.log, []Strategy[[]model.LedgerRow]{
		{Name: "filtered_rpc", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx,
				`SELECT * FROM ledger_balance_sheet_filtered($1, $2, $3, $4)`+page,
				companyID, asOf, f.CostCenter, f.Project)
		}},
		{Name: "enhanced_rpc", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx,
				`SELECT * FROM ledger_balance_sheet_enhanced($1, $2)`+page,
				companyID, asOf)
		}},
		{Name: "base_rpc", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx,
				`SELECT * FROM ledger_balance_sheet($1, $2)`+page,
				companyID, asOf)
		}},
		{Name: "raw_scan", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx, `
				SELECT a.id, a.code, a.name, a.type, a.is_group, a.left_index, a.right_index,
				       COALESCE(SUM(jl.debit - jl.credit), 0)::text
				FROM accounts a
				LEFT JOIN journal_lines jl ON jl.account_id = a.id
				LEFT JOIN journals j ON j.id = jl.journal_id AND j.status = 'posted' AND j.date <= $2
				WHERE a.company_id = $1
				GROUP BY a.id, a.code, a.name, a.type, a.is_group, a.left_index, a.right_index
				ORDER BY a.left_index NULLS LAST, a.code`+page,
				companyID, asOf)
		}},
	})
}

// FetchProfitLossRows walks the same fallback chain for the P&L period.
func (p *Postgres) FetchProfitLossRows(ctx context.Context, companyID int, from, to time.Time, f Filters) ([]model.LedgerRow, error) {
	page := pageClause(f)
	return TryInOrder(ctx, p.log, []Strategy[[]model.LedgerRow]{
		{Name: "filtered_rpc", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx,
				`SELECT * FROM ledger_profit_loss_filtered($1, $2, $3, $4, $5)`+page,
				companyID, from, to, f.CostCenter, f.Project)
		}},
		{Name: "enhanced_rpc", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx,
				`SELECT * FROM ledger_profit_loss_enhanced($1, $2, $3)`+page,
				companyID, from, to)
		}},
		{Name: "base_rpc", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx,
				`SELECT * FROM ledger_profit_loss($1, $2, $3)`+page,
				companyID, from, to)
		}},
		{Name: "raw_scan", Run: func(ctx context.Context) ([]model.LedgerRow, error) {
			return p.queryRows(ctx, `
				SELECT a.id, a.code, a.name, a.type, a.is_group, a.left_index, a.right_index,
				       COALESCE(SUM(jl.credit - jl.debit), 0)::text
				FROM accounts a
				LEFT JOIN journal_lines jl ON jl.account_id = a.id
				LEFT JOIN journals j ON j.id = jl.journal_id AND j.status = 'posted'
				     AND j.date BETWEEN $2 AND $3
				WHERE a.company_id = $1 AND a.type IN ('income', 'expense')
				GROUP BY a.id, a.code, a.name, a.type, a.is_group, a.left_index, a.right_index
				ORDER BY a.left_index NULLS LAST, a.code`+page,
				companyID, from, to)
		}},
	})
}

// FetchBudgetRows reads the budget table; unavailability is the caller's
// signal to degrade to an empty budget.
func (p *Postgres) FetchBudgetRows(ctx context.Context, companyID int, from, to time.Time, f Filters) ([]model.LedgerRow, error) {
	return p.queryRows(ctx, `
		SELECT a.id, a.code, a.name, a.type, a.is_group, a.left_index, a.right_index,
		       COALESCE(SUM(b.amount), 0)::text
		FROM accounts a
		JOIN budget_lines b ON b.account_id = a.id AND b.period_start >= $2 AND b.period_end <= $3
		WHERE a.company_id = $1
		GROUP BY a.id, a.code, a.name, a.type, a.is_group, a.left_index, a.right_index`,
		companyID, from, to)
}

// FetchMonthlyActivity reads the materialized monthly P&L aggregates.
func (p *Postgres) FetchMonthlyActivity(ctx context.Context, companyID, fiscalYear int) ([]MonthlyActivity, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT year, month, income::text, expenses::text, cogs::text
		FROM monthly_activity
		WHERE company_id = $1 AND fiscal_year = $2
		ORDER BY year, month`,
		companyID, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("querying monthly activity: %w", err)
	}
	defer rows.Close()

	var result []MonthlyActivity
	for rows.Next() {
		var (
			m                      MonthlyActivity
			month                  int
			income, expenses, cogs string
		)
		if err := rows.Scan(&m.Year, &month, &income, &expenses, &cogs); err != nil {
			return nil, fmt.Errorf("scanning monthly activity: %w", err)
		}
		m.Month = time.Month(month)
		if m.Income, err = decimal.NewFromString(income); err != nil {
			return nil, fmt.Errorf("parsing income %q: %w", income, err)
		}
		if m.Expenses, err = decimal.NewFromString(expenses); err != nil {
			return nil, fmt.Errorf("parsing expenses %q: %w", expenses, err)
		}
		if m.COGS, err = decimal.NewFromString(cogs); err != nil {
			return nil, fmt.Errorf("parsing cogs %q: %w", cogs, err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// FetchAccountHierarchy loads the chart of accounts in hierarchy order.
func (p *Postgres) FetchAccountHierarchy(ctx context.Context, companyID int) ([]model.Account, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, code, name, type, parent_id, is_group, left_index, right_index, currency
		FROM accounts
		WHERE company_id = $1
		ORDER BY left_index NULLS LAST, code`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("querying account hierarchy: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		var parentID *int
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &parentID, &a.IsGroup, &a.LeftIndex, &a.RightIndex, &a.Currency); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		if parentID != nil {
			a.ParentID = *parentID
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// IsPeriodClosed checks the period-close table for a posting date.
func (p *Postgres) IsPeriodClosed(ctx context.Context, companyID int, date time.Time) (bool, error) {
	var closed bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM closed_periods
			WHERE company_id = $1 AND $2 BETWEEN period_start AND period_end
		)`,
		companyID, date).Scan(&closed)
	if err != nil {
		return false, fmt.Errorf("checking closed period: %w", err)
	}
	return closed, nil
}

// GetInvoice loads an invoice with its lines.
func (p *Postgres) GetInvoice(ctx context.Context, id int) (model.Invoice, error) {
	var (
		inv                           model.Invoice
		rate, sub, tax, grand, status string
		journalID                     *int
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, number, party_id, date, currency, exchange_rate::text,
		       status, subtotal::text, tax_total::text, grand_total::text, journal_id
		FROM invoices WHERE id = $1`,
		id).Scan(&inv.ID, &inv.Number, &inv.PartyID, &inv.Date, &inv.Currency, &rate,
		&status, &sub, &tax, &grand, &journalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Invoice{}, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Invoice{}, fmt.Errorf("querying invoice %d: %w", id, err)
	}

	inv.Status = model.InvoiceStatus(status)
	if journalID != nil {
		inv.JournalID = *journalID
	}
	if err := parseDecimals(
		field{rate, &inv.ExchangeRate}, field{sub, &inv.Subtotal},
		field{tax, &inv.TaxTotal}, field{grand, &inv.GrandTotal},
	); err != nil {
		return model.Invoice{}, fmt.Errorf("invoice %d: %w", id, err)
	}

	lineRows, err := p.pool.Query(ctx, `
		SELECT line_number, description, quantity::text, unit_price::text,
		       line_amount::text, tax_code, tax_rate::text, tax_amount::text, account_id
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_number`,
		id)
	if err != nil {
		return model.Invoice{}, fmt.Errorf("querying invoice lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var (
			l                           model.InvoiceLine
			qty, price, amt, trate, tam string
		)
		if err := lineRows.Scan(&l.LineNumber, &l.Description, &qty, &price, &amt, &l.TaxCode, &trate, &tam, &l.AccountID); err != nil {
			return model.Invoice{}, fmt.Errorf("scanning invoice line: %w", err)
		}
		if err := parseDecimals(
			field{qty, &l.Quantity}, field{price, &l.UnitPrice}, field{amt, &l.LineAmount},
			field{trate, &l.TaxRate}, field{tam, &l.TaxAmount},
		); err != nil {
			return model.Invoice{}, fmt.Errorf("invoice %d line %d: %w", id, l.LineNumber, err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, lineRows.Err()
}

// GetJournal loads a journal with its lines.
func (p *Postgres) GetJournal(ctx context.Context, id int) (model.Journal, error) {
	var (
		j                   model.Journal
		debit, credit, stat string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, number, date, currency, total_debit::text, total_credit::text, status, reference
		FROM journals WHERE id = $1`,
		id).Scan(&j.ID, &j.Number, &j.Date, &j.Currency, &debit, &credit, &stat, &j.Reference)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Journal{}, fmt.Errorf("journal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Journal{}, fmt.Errorf("querying journal %d: %w", id, err)
	}
	j.Status = model.JournalStatus(stat)
	if err := parseDecimals(field{debit, &j.TotalDebit}, field{credit, &j.TotalCredit}); err != nil {
		return model.Journal{}, fmt.Errorf("journal %d: %w", id, err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT account_id, debit::text, credit::text, description
		FROM journal_lines WHERE journal_id = $1 ORDER BY id`,
		id)
	if err != nil {
		return model.Journal{}, fmt.Errorf("querying journal lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l      model.JournalLine
			dr, cr string
		)
		if err := rows.Scan(&l.AccountID, &dr, &cr, &l.Description); err != nil {
			return model.Journal{}, fmt.Errorf("scanning journal line: %w", err)
		}
		if err := parseDecimals(field{dr, &l.Debit}, field{cr, &l.Credit}); err != nil {
			return model.Journal{}, fmt.Errorf("journal %d line: %w", id, err)
		}
		j.Lines = append(j.Lines, l)
	}
	return j, rows.Err()
}

// NextJournalSeq returns the next journal sequence for a year.
func (p *Postgres) NextJournalSeq(ctx context.Context, year int) (int, error) {
	var seq int
	err := p.pool.QueryRow(ctx,
		`SELECT nextval('journal_seq_' || $1::text)`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next journal sequence: %w", err)
	}
	return seq, nil
}

// InsertJournal writes a journal and its lines in one transaction and
// returns the new journal id.
func (p *Postgres) InsertJournal(ctx context.Context, j model.Journal) (int, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var journalID int
	err = tx.QueryRow(ctx, `
		INSERT INTO journals (number, date, currency, total_debit, total_credit, status, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		j.Number, j.Date, j.Currency, j.TotalDebit.StringFixed(2), j.TotalCredit.StringFixed(2),
		string(j.Status), j.Reference).Scan(&journalID)
	if err != nil {
		return 0, fmt.Errorf("inserting journal: %w", err)
	}

	for i, line := range j.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO journal_lines (journal_id, account_id, debit, credit, description)
			VALUES ($1, $2, $3, $4, $5)`,
			journalID, line.AccountID, line.Debit.StringFixed(2), line.Credit.StringFixed(2), line.Description)
		if err != nil {
			return 0, fmt.Errorf("inserting journal line %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing journal: %w", err)
	}
	return journalID, nil
}

// MarkInvoicePosted transitions an invoice to posted with its journal.
func (p *Postgres) MarkInvoicePosted(ctx context.Context, invoiceID, journalID int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE invoices SET status = 'posted', journal_id = $2
		WHERE id = $1 AND status = 'draft'`,
		invoiceID, journalID)
	if err != nil {
		return fmt.Errorf("marking invoice posted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d not in draft: %w", invoiceID, ErrNotFound)
	}
	return nil
}

// MarkInvoiceCancelled transitions a posted invoice to cancelled.
func (p *Postgres) MarkInvoiceCancelled(ctx context.Context, invoiceID, reversalJournalID int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE invoices SET status = 'cancelled', reversal_journal_id = $2
		WHERE id = $1 AND status = 'posted'`,
		invoiceID, reversalJournalID)
	if err != nil {
		return fmt.Errorf("marking invoice cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d not posted: %w", invoiceID, ErrNotFound)
	}
	return nil
}

type field struct {
	raw string
	dst *decimal.Decimal
}

func parseDecimals(fields ...field) error {
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("parsing decimal %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func (p *Postgres) queryRows(ctx context.Context, sql string, args ...any) ([]model.LedgerRow, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LedgerRow
	for rows.Next() {
		var (
			r       model.LedgerRow
			balance string
		)
		if err := rows.Scan(&r.AccountID, &r.Code, &r.Name, &r.Type, &r.IsGroup, &r.LeftIndex, &r.RightIndex, &balance); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		if r.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parsing balance %q: %w", balance, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
