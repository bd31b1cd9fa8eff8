package posting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/idempotency"
	"github.com/ledgerline-dev/ledgerline/internal/invoice"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const (
	acctRevenue    = 4010
	acctReceivable = 1020
	acctTax        = 2020
)

func testConfig() Config {
	return Config{
		CompanyID:         1,
		ApprovalThreshold: dec("10000.00"),
		ApproverRoles:     []string{"finance_manager", "cfo"},
		ReceivableAccount: acctReceivable,
		TaxAccount:        acctTax,
	}
}

// newRepo seeds the chart accounts a posting touches; the chart check
// runs against this fixture.
func newRepo() *repository.Memory {
	repo := repository.NewMemory()
	repo.Accounts = []model.Account{
		{ID: acctRevenue, Code: "4010", Name: "Sales Revenue", Type: model.AccountTypeIncome},
		{ID: acctReceivable, Code: "1020", Name: "Accounts Receivable", Type: model.AccountTypeAsset},
		{ID: acctTax, Code: "2020", Name: "Tax Payable", Type: model.AccountTypeLiability},
	}
	return repo
}

func newService(repo *repository.Memory, sink audit.Sink) *Service {
	rates := invoice.StaticRates{"VAT10": dec("10")}
	clock := func() time.Time { return date(2025, 6, 1) }
	return NewService(repo, idempotency.NewMemory(nil), rates, testConfig(), sink, clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func draftInvoice(id int) *model.Invoice {
	return &model.Invoice{
		ID:       id,
		Number:   "INV-001",
		PartyID:  55,
		Date:     date(2025, 5, 20),
		Currency: "USD",
		Status:   model.InvoiceDraft,
		Lines: []model.InvoiceLine{
			{Quantity: dec("2"), UnitPrice: dec("100.00"), TaxCode: "VAT10", AccountID: acctRevenue, Description: "consulting"},
		},
	}
}

func TestPostInvoiceScenarioA(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	sink := &audit.Memory{}
	svc := newService(repo, sink)

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusPosted, out.Status)
	require.NotZero(t, out.JournalID)
	assert.Equal(t, "JRN-2025-0001", out.JournalNumber)

	j := repo.Journals[out.JournalID]
	require.Len(t, j.Lines, 3)
	assert.True(t, j.Lines[0].Credit.Equal(dec("200.00")), "revenue credit")
	assert.Equal(t, acctRevenue, j.Lines[0].AccountID)
	assert.True(t, j.Lines[1].Credit.Equal(dec("20.00")), "tax credit")
	assert.Equal(t, acctTax, j.Lines[1].AccountID)
	assert.True(t, j.Lines[2].Debit.Equal(dec("220.00")), "receivable debit")
	assert.Equal(t, acctReceivable, j.Lines[2].AccountID)
	assert.True(t, j.Balanced())

	assert.Equal(t, model.InvoicePosted, repo.Invoices[1].Status)
	require.Len(t, sink.Events, 1)
	assert.Equal(t, "post_invoice", sink.Events[0].Action)
}

func TestPostInvoiceRequiresApprovalScenarioC(t *testing.T) {
	repo := newRepo()
	inv := draftInvoice(1)
	inv.Lines[0].UnitPrice = dec("25000.00") // grand total 50,000 + tax
	repo.Invoices[1] = inv
	svc := newService(repo, &audit.Memory{})

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresApproval, out.Status)
	assert.Equal(t, []string{"finance_manager", "cfo"}, out.ApproverRoles)
	assert.Zero(t, repo.InsertedCount, "no journal may be created")
	assert.Equal(t, model.InvoiceDraft, repo.Invoices[1].Status)
}

func TestPostInvoiceIdempotentScenarioD(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	svc := newService(repo, &audit.Memory{})
	ctx := context.Background()

	first, err := svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusPosted, first.Status)

	second, err := svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, second.Status)
	assert.Equal(t, first.JournalID, second.JournalID)
	assert.Equal(t, 1, repo.InsertedCount, "exactly one journal row")
}

func TestPostInvoiceConcurrentDuplicates(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	repo.InsertDelay = 20 * time.Millisecond
	svc := newService(repo, &audit.Memory{})

	const n = 8
	outcomes := make([]Outcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.PostInvoice(context.Background(), 1, "abc123")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, StatusPosted, outcomes[i].Status)
		assert.Equal(t, outcomes[0].JournalID, outcomes[i].JournalID)
	}
	assert.Equal(t, 1, repo.InsertedCount, "concurrent duplicates must create one journal")
}

func TestPostInvoiceValidationFailureReleasesKey(t *testing.T) {
	repo := newRepo()
	inv := draftInvoice(1)
	inv.Lines[0].Quantity = dec("0")
	repo.Invoices[1] = inv
	svc := newService(repo, &audit.Memory{})
	ctx := context.Background()

	out, err := svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "quantity", out.Errors[0].Field)

	// Fix the invoice; the same key must now succeed.
	inv.Lines[0].Quantity = dec("2")
	out, err = svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, out.Status)
}

func TestPostInvoiceUnknownAccount(t *testing.T) {
	repo := newRepo()
	inv := draftInvoice(1)
	inv.Lines[0].AccountID = 9999
	repo.Invoices[1] = inv
	svc := newService(repo, &audit.Memory{})

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "accountId", out.Errors[0].Field)
	assert.Contains(t, out.Errors[0].Message, "9999")
	assert.Zero(t, repo.InsertedCount, "no journal for an unknown account")
	assert.Equal(t, model.InvoiceDraft, repo.Invoices[1].Status)
}

func TestPostInvoiceMisconfiguredControlAccounts(t *testing.T) {
	repo := newRepo()
	repo.Accounts = repo.Accounts[:1] // only the revenue account remains
	repo.Invoices[1] = draftInvoice(1)
	svc := newService(repo, &audit.Memory{})

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	fields := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "receivableAccount")
	assert.Contains(t, fields, "taxAccount")
	assert.Zero(t, repo.InsertedCount)
}

func TestPostInvoiceKeyReuseDifferentRequest(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	other := draftInvoice(2)
	other.Number = "INV-002"
	repo.Invoices[2] = other
	svc := newService(repo, &audit.Memory{})
	ctx := context.Background()

	out, err := svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusPosted, out.Status)

	out, err = svc.PostInvoice(ctx, 2, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "idempotencyKey", out.Errors[0].Field)
}

func TestPostInvoiceClosedPeriod(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	repo.ClosedThrough = date(2025, 5, 31)
	svc := newService(repo, &audit.Memory{})

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "date", out.Errors[0].Field)
	assert.Zero(t, repo.InsertedCount)
}

func TestPostInvoiceNotDraft(t *testing.T) {
	repo := newRepo()
	inv := draftInvoice(1)
	inv.Status = model.InvoicePosted
	repo.Invoices[1] = inv
	svc := newService(repo, &audit.Memory{})

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "status", out.Errors[0].Field)
}

func TestPostInvoiceAuditFailureDoesNotFailPosting(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	sink := &audit.Memory{Err: errors.New("sink down")}
	svc := newService(repo, sink)

	out, err := svc.PostInvoice(context.Background(), 1, "abc123")
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, out.Status)
}

func TestBuildJournalImbalanceFailsClosed(t *testing.T) {
	repo := newRepo()
	svc := newService(repo, &audit.Memory{})

	// Hand-crafted lines that bypass Calculate: claimed totals disagree.
	inv := model.Invoice{
		ID: 1, Number: "INV-BAD", Date: date(2025, 5, 20), Currency: "USD",
		GrandTotal: dec("100.00"),
		Lines: []model.InvoiceLine{
			{LineNumber: 1, LineAmount: dec("90.00"), AccountID: acctRevenue},
		},
	}
	_, err := svc.BuildJournal(context.Background(), inv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImbalance)
}

func TestCancelInvoice(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	svc := newService(repo, &audit.Memory{})
	ctx := context.Background()

	posted, err := svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)
	require.Equal(t, StatusPosted, posted.Status)

	out, err := svc.CancelInvoice(ctx, 1, "duplicate billing")
	require.NoError(t, err)
	require.Equal(t, StatusPosted, out.Status)
	assert.Equal(t, model.InvoiceCancelled, repo.Invoices[1].Status)

	original := repo.Journals[posted.JournalID]
	reversal := repo.Journals[out.JournalID]
	require.Len(t, reversal.Lines, len(original.Lines))
	for i := range original.Lines {
		assert.True(t, reversal.Lines[i].Debit.Equal(original.Lines[i].Credit), "line %d debit", i)
		assert.True(t, reversal.Lines[i].Credit.Equal(original.Lines[i].Debit), "line %d credit", i)
	}
	assert.True(t, reversal.Balanced())
}

func TestCancelInvoiceRequiresReason(t *testing.T) {
	repo := newRepo()
	svc := newService(repo, &audit.Memory{})

	out, err := svc.CancelInvoice(context.Background(), 1, "")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "reason", out.Errors[0].Field)
}

func TestCancelInvoiceReversalFailureLeavesPosted(t *testing.T) {
	repo := newRepo()
	repo.Invoices[1] = draftInvoice(1)
	svc := newService(repo, &audit.Memory{})
	ctx := context.Background()

	_, err := svc.PostInvoice(ctx, 1, "abc123")
	require.NoError(t, err)

	repo.ErrInsert = errors.New("storage down")
	_, err = svc.CancelInvoice(ctx, 1, "bad order")
	require.Error(t, err)
	assert.Equal(t, model.InvoicePosted, repo.Invoices[1].Status, "no partial state on reversal failure")
}
