// Package posting turns validated invoices into balanced journals. It
// enforces the approval gate, the period-close check, and at-most-one
// journal per idempotency key.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/coa"
	"github.com/ledgerline-dev/ledgerline/internal/id"
	"github.com/ledgerline-dev/ledgerline/internal/idempotency"
	"github.com/ledgerline-dev/ledgerline/internal/invoice"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

// ErrImbalance means a built journal's debits do not equal its credits.
// This is an internal invariant violation: posting halts, nothing is
// silently adjusted.
var ErrImbalance = errors.New("journal debits do not equal credits")

// Status classifies a posting outcome. RequiresApproval is a
// success-shaped outcome, not an error.
type Status string

const (
	StatusPosted           Status = "posted"
	StatusRequiresApproval Status = "requires_approval"
	StatusInvalid          Status = "invalid"
)

// Outcome is the result of PostInvoice.
type Outcome struct {
	Status        Status
	JournalID     int
	JournalNumber string
	ApproverRoles []string                  // set when Status is StatusRequiresApproval
	Errors        []invoice.ValidationError // set when Status is StatusInvalid
}

// Config carries the posting policy for one company.
type Config struct {
	CompanyID         int
	ApprovalThreshold decimal.Decimal
	ApproverRoles     []string
	ReceivableAccount int // debit side for invoice postings
	TaxAccount        int // credit side for collected tax
}

// Service builds and posts journals.
type Service struct {
	repo  repository.Repository
	idem  idempotency.Store
	rates invoice.TaxRateResolver
	cfg   Config
	sink  audit.Sink
	now   func() time.Time
	log   *slog.Logger
}

// NewService creates a posting Service with its collaborators injected.
func NewService(repo repository.Repository, idem idempotency.Store, rates invoice.TaxRateResolver, cfg Config, sink audit.Sink, now func() time.Time, log *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, idem: idem, rates: rates, cfg: cfg, sink: sink, now: now, log: log}
}

// PostInvoice validates an invoice, builds its journal, and posts it.
// Retries with the same idempotency key return the first outcome and
// never create a second journal.
func (s *Service) PostInvoice(ctx context.Context, invoiceID int, idemKey string) (Outcome, error) {
	if idemKey == "" {
		return invalid(invoice.ValidationError{Field: "idempotencyKey", Message: "must not be empty"}), nil
	}

	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading invoice %d: %w", invoiceID, err)
	}

	fingerprint := id.RequestFingerprint(inv.ID, inv.Number, inv.GrandTotal.StringFixed(2), inv.Currency)
	res, err := s.idem.Reserve(ctx, idemKey, fingerprint)
	if err != nil {
		if errors.Is(err, idempotency.ErrFingerprintMismatch) {
			return invalid(invoice.ValidationError{Field: "idempotencyKey", Message: "key was already used for a different request"}), nil
		}
		return Outcome{}, fmt.Errorf("reserving idempotency key: %w", err)
	}
	if !res.Fresh {
		s.log.Info("returning cached posting result", "invoice", invoiceID, "journal", res.Record.JournalID)
		return Outcome{Status: StatusPosted, JournalID: res.Record.JournalID}, nil
	}

	outcome, err := s.postReserved(ctx, &inv)
	if err != nil || outcome.Status != StatusPosted {
		// Free the key so a corrected request can retry.
		if relErr := s.idem.Release(ctx, idemKey); relErr != nil {
			s.log.Warn("releasing idempotency key failed", "key", idemKey, "error", relErr)
		}
		return outcome, err
	}

	if err := s.idem.Complete(ctx, idemKey, outcome.JournalID); err != nil {
		return Outcome{}, fmt.Errorf("completing idempotency key: %w", err)
	}
	return outcome, nil
}

func (s *Service) postReserved(ctx context.Context, inv *model.Invoice) (Outcome, error) {
	if inv.Status != model.InvoiceDraft {
		return invalid(invoice.ValidationError{Field: "status", Message: fmt.Sprintf("invoice is %s, only draft invoices post", inv.Status)}), nil
	}

	// Recompute amounts; posting never trusts caller-supplied figures.
	if errs := invoice.Calculate(inv, s.rates); len(errs) > 0 {
		return Outcome{Status: StatusInvalid, Errors: errs}, nil
	}

	// Every account the journal will touch must exist in the chart before
	// any line is built.
	errs, err := s.checkAccounts(ctx, inv)
	if err != nil {
		return Outcome{}, err
	}
	if len(errs) > 0 {
		return Outcome{Status: StatusInvalid, Errors: errs}, nil
	}

	// Approval gate is a distinct outcome, not an error. No journal is
	// created; the caller routes to approval and resubmits.
	if inv.GrandTotal.GreaterThan(s.cfg.ApprovalThreshold) {
		s.log.Info("posting requires approval",
			"invoice", inv.ID, "grand_total", inv.GrandTotal.StringFixed(2),
			"threshold", s.cfg.ApprovalThreshold.StringFixed(2))
		return Outcome{Status: StatusRequiresApproval, ApproverRoles: s.cfg.ApproverRoles}, nil
	}

	closed, err := s.repo.IsPeriodClosed(ctx, s.cfg.CompanyID, inv.Date)
	if err != nil {
		return Outcome{}, fmt.Errorf("checking period close: %w", err)
	}
	if closed {
		return invalid(invoice.ValidationError{Field: "date", Message: fmt.Sprintf("period containing %s is closed", inv.Date.Format("2006-01-02"))}), nil
	}

	journal, err := s.BuildJournal(ctx, *inv)
	if err != nil {
		return Outcome{}, err
	}

	journalID, err := s.repo.InsertJournal(ctx, journal)
	if err != nil {
		return Outcome{}, fmt.Errorf("inserting journal: %w", err)
	}
	if err := s.repo.MarkInvoicePosted(ctx, inv.ID, journalID); err != nil {
		return Outcome{}, fmt.Errorf("journal %d created but invoice %d not marked posted: %w", journalID, inv.ID, err)
	}

	audit.Fire(ctx, s.sink, s.log, audit.Event{
		Timestamp: s.now(),
		Actor:     "posting",
		Action:    "post_invoice",
		Details:   fmt.Sprintf("invoice %s total %s %s", inv.Number, inv.GrandTotal.StringFixed(2), inv.Currency),
		Reference: journal.Number,
	})
	s.log.Info("invoice posted", "invoice", inv.ID, "journal", journalID, "number", journal.Number)

	return Outcome{Status: StatusPosted, JournalID: journalID, JournalNumber: journal.Number}, nil
}

// checkAccounts verifies every account a posting would write against the
// company's chart: each invoice line's account, the receivable account,
// and the tax account when any line carries tax.
func (s *Service) checkAccounts(ctx context.Context, inv *model.Invoice) ([]invoice.ValidationError, error) {
	accounts, err := s.repo.FetchAccountHierarchy(ctx, s.cfg.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	chart := coa.NewIndex(accounts)

	var errs []invoice.ValidationError
	taxed := false
	for _, line := range inv.Lines {
		if !chart.Exists(line.AccountID) {
			errs = append(errs, invoice.ValidationError{
				Line:    line.LineNumber,
				Field:   "accountId",
				Message: fmt.Sprintf("account %d is not in the chart of accounts", line.AccountID),
			})
		}
		if !line.TaxAmount.IsZero() {
			taxed = true
		}
	}
	if !chart.Exists(s.cfg.ReceivableAccount) {
		errs = append(errs, invoice.ValidationError{
			Field:   "receivableAccount",
			Message: fmt.Sprintf("configured account %d is not in the chart of accounts", s.cfg.ReceivableAccount),
		})
	}
	if taxed && !chart.Exists(s.cfg.TaxAccount) {
		errs = append(errs, invoice.ValidationError{
			Field:   "taxAccount",
			Message: fmt.Sprintf("configured account %d is not in the chart of accounts", s.cfg.TaxAccount),
		})
	}
	return errs, nil
}

// BuildJournal converts a calculated invoice into a balanced journal: one
// credit per line to its revenue/expense account, one credit per nonzero
// tax amount, one debit to the receivable account for the grand total.
func (s *Service) BuildJournal(ctx context.Context, inv model.Invoice) (model.Journal, error) {
	year := inv.Date.Year()
	seq, err := s.repo.NextJournalSeq(ctx, year)
	if err != nil {
		return model.Journal{}, fmt.Errorf("allocating journal number: %w", err)
	}

	journal := model.Journal{
		Number:    id.FormatJournalNumber(year, seq),
		Date:      inv.Date,
		Currency:  inv.Currency,
		Status:    model.JournalPosted,
		Reference: inv.Number,
	}

	totalCredit := decimal.Zero
	for _, line := range inv.Lines {
		journal.Lines = append(journal.Lines, model.JournalLine{
			AccountID:   line.AccountID,
			Credit:      line.LineAmount,
			Description: line.Description,
		})
		totalCredit = totalCredit.Add(line.LineAmount)

		if !line.TaxAmount.IsZero() {
			journal.Lines = append(journal.Lines, model.JournalLine{
				AccountID:   s.cfg.TaxAccount,
				Credit:      line.TaxAmount,
				Description: fmt.Sprintf("tax on line %d", line.LineNumber),
			})
			totalCredit = totalCredit.Add(line.TaxAmount)
		}
	}

	journal.Lines = append(journal.Lines, model.JournalLine{
		AccountID:   s.cfg.ReceivableAccount,
		Debit:       inv.GrandTotal,
		Description: fmt.Sprintf("invoice %s", inv.Number),
	})
	journal.TotalDebit = inv.GrandTotal
	journal.TotalCredit = totalCredit

	// Fail closed on any rounding edge: never adjust a line to force
	// balance.
	if !journal.Balanced() {
		return model.Journal{}, fmt.Errorf("%w: debit %s, credit %s",
			ErrImbalance, journal.TotalDebit.StringFixed(2), journal.TotalCredit.StringFixed(2))
	}
	return journal, nil
}

// CancelInvoice reverses a posted invoice's journal and transitions the
// invoice to cancelled. A reversal failure leaves the invoice posted.
func (s *Service) CancelInvoice(ctx context.Context, invoiceID int, reason string) (Outcome, error) {
	if reason == "" {
		return invalid(invoice.ValidationError{Field: "reason", Message: "cancellation requires a reason"}), nil
	}

	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading invoice %d: %w", invoiceID, err)
	}
	if inv.Status != model.InvoicePosted || inv.JournalID == 0 {
		return invalid(invoice.ValidationError{Field: "status", Message: fmt.Sprintf("invoice is %s, only posted invoices cancel", inv.Status)}), nil
	}

	original, err := s.repo.GetJournal(ctx, inv.JournalID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading journal %d: %w", inv.JournalID, err)
	}

	now := s.now()
	seq, err := s.repo.NextJournalSeq(ctx, now.Year())
	if err != nil {
		return Outcome{}, fmt.Errorf("allocating reversal number: %w", err)
	}

	reversal := original.Reversed(id.FormatJournalNumber(now.Year(), seq), now, reason)
	reversal.Status = model.JournalPosted
	if !reversal.Balanced() {
		return Outcome{}, fmt.Errorf("%w: reversal of journal %d", ErrImbalance, original.ID)
	}

	reversalID, err := s.repo.InsertJournal(ctx, reversal)
	if err != nil {
		// No partial state: the invoice stays posted.
		return Outcome{}, fmt.Errorf("posting reversal: %w", err)
	}
	if err := s.repo.MarkInvoiceCancelled(ctx, invoiceID, reversalID); err != nil {
		return Outcome{}, fmt.Errorf("reversal %d posted but invoice %d not marked cancelled: %w", reversalID, invoiceID, err)
	}

	audit.Fire(ctx, s.sink, s.log, audit.Event{
		Timestamp: now,
		Actor:     "posting",
		Action:    "cancel_invoice",
		Details:   fmt.Sprintf("invoice %s reversed: %s", inv.Number, reason),
		Reference: reversal.Number,
	})
	s.log.Info("invoice cancelled", "invoice", invoiceID, "reversal", reversalID)

	return Outcome{Status: StatusPosted, JournalID: reversalID, JournalNumber: reversal.Number}, nil
}

func invalid(errs ...invoice.ValidationError) Outcome {
	return Outcome{Status: StatusInvalid, Errors: errs}
}
