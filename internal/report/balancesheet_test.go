package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/cache"
	"github.com/ledgerline-dev/ledgerline/internal/currency"
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

func fixedClock() time.Time { return date(2025, 7, 1) }

func newEngine(repo repository.Repository, c cache.Cache) *Engine {
	fx := currency.Static{"USD/EUR": dec("0.5")}
	return NewEngine(repo, c, fx, &audit.Memory{}, time.Minute, time.January, fixedClock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// scenarioRows: current assets 150.00, fixed assets 50.00, current
// liabilities 80.00, equity 120.00.
func scenarioRows() []model.LedgerRow {
	return []model.LedgerRow{
		{AccountID: 1, Code: "1010", Name: "Cash at Bank", Type: model.AccountTypeAsset, LeftIndex: 2, Balance: dec("100.00")},
		{AccountID: 2, Code: "1030", Name: "Inventory", Type: model.AccountTypeAsset, LeftIndex: 4, Balance: dec("50.00")},
		{AccountID: 3, Code: "1100", Name: "Office Equipment", Type: model.AccountTypeAsset, LeftIndex: 6, Balance: dec("50.00")},
		{AccountID: 4, Code: "2010", Name: "Accounts Payable", Type: model.AccountTypeLiability, LeftIndex: 8, Balance: dec("80.00")},
		{AccountID: 5, Code: "3010", Name: "Share Capital", Type: model.AccountTypeEquity, LeftIndex: 10, Balance: dec("120.00")},
	}
}

func bsPeriod() model.ReportPeriod {
	return model.ReportPeriod{CompanyID: 1, AsOf: date(2025, 6, 30), Currency: "USD"}
}

func TestBalanceSheetScenarioB(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	e := newEngine(repo, cache.Noop{})

	bs, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{})
	require.NoError(t, err)

	assert.True(t, bs.TotalAssets.Equal(dec("200.00")), "total assets %s", bs.TotalAssets)
	assert.True(t, bs.TotalLiabilitiesAndEquity.Equal(dec("200.00")))
	assert.True(t, bs.IsBalanced)

	require.NotNil(t, bs.Ratios.Current)
	assert.True(t, bs.Ratios.Current.Equal(dec("1.875")), "current ratio %s", bs.Ratios.Current)

	// Quick ratio excludes the inventory row: (150-50)/80 = 1.25.
	require.NotNil(t, bs.Ratios.Quick)
	assert.True(t, bs.Ratios.Quick.Equal(dec("1.25")), "quick ratio %s", bs.Ratios.Quick)

	// Cash ratio counts only cash-like rows: 100/80 = 1.25.
	require.NotNil(t, bs.Ratios.CashRatio)
	assert.True(t, bs.Ratios.CashRatio.Equal(dec("1.25")))

	assert.True(t, bs.Ratios.WorkingCapital.Equal(dec("70.00")))
}

func TestBalanceSheetRatiosUndefinedNotZero(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = []model.LedgerRow{
		{AccountID: 1, Code: "1010", Name: "Cash at Bank", Type: model.AccountTypeAsset, Balance: dec("100.00")},
		{AccountID: 5, Code: "3010", Name: "Share Capital", Type: model.AccountTypeEquity, Balance: dec("100.00")},
	}
	e := newEngine(repo, cache.Noop{})

	bs, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{})
	require.NoError(t, err)

	assert.Nil(t, bs.Ratios.Current, "no current liabilities -> undefined, not zero")
	assert.Nil(t, bs.Ratios.Quick)
	assert.Nil(t, bs.Ratios.CashRatio)

	// Zero debt over nonzero equity is a defined zero, not undefined.
	require.NotNil(t, bs.Ratios.DebtToEquity)
	assert.True(t, bs.Ratios.DebtToEquity.IsZero())
}

func TestBalanceSheetSectionOrderAndHierarchy(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	e := newEngine(repo, cache.Noop{})

	bs, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{})
	require.NoError(t, err)

	require.Len(t, bs.Sections, 8)
	assert.Equal(t, model.BucketCurrentAssets, bs.Sections[0].Bucket)
	assert.Equal(t, model.BucketOtherEquity, bs.Sections[7].Bucket)

	// Current assets keep hierarchy order: cash (left 2) before inventory (left 4).
	ca := bs.Sections[0]
	require.Len(t, ca.Lines, 2)
	assert.Equal(t, "1010", ca.Lines[0].Code)
	assert.Equal(t, "1030", ca.Lines[1].Code)
}

func TestBalanceSheetGroupRowsExcluded(t *testing.T) {
	repo := repository.NewMemory()
	rows := scenarioRows()
	rows = append(rows, model.LedgerRow{AccountID: 99, Code: "1000", Name: "Assets", Type: model.AccountTypeAsset, IsGroup: true, LeftIndex: 1, Balance: dec("999.00")})
	repo.Rows = rows
	e := newEngine(repo, cache.Noop{})

	bs, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{})
	require.NoError(t, err)
	assert.True(t, bs.TotalAssets.Equal(dec("200.00")), "group balance must not double-count")
}

func TestBalanceSheetComparative(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	e := newEngine(repo, cache.Noop{})

	bs, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{ComparativeAsOf: date(2024, 6, 30)})
	require.NoError(t, err)

	// The memory repo returns the same rows for both periods, so variance
	// is zero but the comparative fields must be populated.
	line := bs.Sections[0].Lines[0]
	require.NotNil(t, line.PreviousPeriodAmount)
	require.NotNil(t, line.Variance)
	assert.True(t, line.PreviousPeriodAmount.Equal(dec("100.00")))
	assert.True(t, line.Variance.IsZero())
	require.NotNil(t, line.VariancePercent)
	assert.True(t, line.VariancePercent.IsZero())
}

func TestBalanceSheetCurrencyConversionKeepsPercents(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	e := newEngine(repo, cache.Noop{})
	ctx := context.Background()

	base, err := e.BalanceSheet(ctx, bsPeriod(), Options{})
	require.NoError(t, err)
	converted, err := e.BalanceSheet(ctx, bsPeriod(), Options{PresentationCurrency: "EUR"})
	require.NoError(t, err)

	assert.Equal(t, "EUR", converted.Currency)
	assert.True(t, converted.TotalAssets.Equal(dec("100.00")), "200 * 0.5")

	for si := range base.Sections {
		for li := range base.Sections[si].Lines {
			b := base.Sections[si].Lines[li]
			c := converted.Sections[si].Lines[li]
			assert.True(t, c.Amount.Equal(b.Amount.Mul(dec("0.5"))), "amount converts")
			assert.True(t, c.PercentOfTotal.Equal(b.PercentOfTotal), "percent is currency-invariant")
		}
	}

	// Pure ratios are invariant; working capital converts.
	assert.True(t, converted.Ratios.Current.Equal(*base.Ratios.Current))
	assert.True(t, converted.Ratios.WorkingCapital.Equal(dec("35.00")))
}

func TestBalanceSheetConversionRoundingRecomputesBalance(t *testing.T) {
	repo := repository.NewMemory()
	// Many cent-sized asset rows against one equity row: at rate 0.5 each
	// 0.005 rounds up to 0.01, so converted assets stay 1.00 while equity
	// halves to 0.50.
	rows := make([]model.LedgerRow, 0, 101)
	for i := 1; i <= 100; i++ {
		rows = append(rows, model.LedgerRow{
			AccountID: i, Code: fmt.Sprintf("10%03d", i), Name: "Cash at Bank",
			Type: model.AccountTypeAsset, LeftIndex: i * 2, Balance: dec("0.01"),
		})
	}
	rows = append(rows, model.LedgerRow{
		AccountID: 200, Code: "3010", Name: "Share Capital",
		Type: model.AccountTypeEquity, LeftIndex: 400, Balance: dec("1.00"),
	})
	repo.Rows = rows
	e := newEngine(repo, cache.Noop{})
	ctx := context.Background()

	base, err := e.BalanceSheet(ctx, bsPeriod(), Options{})
	require.NoError(t, err)
	require.True(t, base.IsBalanced)

	converted, err := e.BalanceSheet(ctx, bsPeriod(), Options{PresentationCurrency: "EUR"})
	require.NoError(t, err)
	assert.True(t, converted.TotalAssets.Equal(dec("1.00")), "assets %s", converted.TotalAssets)
	assert.True(t, converted.TotalLiabilitiesAndEquity.Equal(dec("0.50")))
	assert.False(t, converted.IsBalanced, "flag must reflect the converted totals")
}

func countLines(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Lines)
	}
	return n
}

func TestBalanceSheetPaginationWindowsRows(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	e := newEngine(repo, cache.Noop{})
	ctx := context.Background()

	page1, err := e.BalanceSheet(ctx, bsPeriod(), Options{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(page1.Sections))
	assert.True(t, page1.TotalAssets.Equal(dec("150.00")), "cash + inventory, got %s", page1.TotalAssets)

	page3, err := e.BalanceSheet(ctx, bsPeriod(), Options{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, countLines(page3.Sections), "last page holds the remainder")

	beyond, err := e.BalanceSheet(ctx, bsPeriod(), Options{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, countLines(beyond.Sections))
}

func TestBalanceSheetFingerprintDistinguishesPages(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	mem := cache.NewMemory(fixedClock)
	e := newEngine(repo, mem)
	ctx := context.Background()

	page1, err := e.BalanceSheet(ctx, bsPeriod(), Options{Page: 1, PageSize: 2})
	require.NoError(t, err)
	page2, err := e.BalanceSheet(ctx, bsPeriod(), Options{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.False(t, page1.TotalAssets.Equal(page2.TotalAssets), "pages must not share a cache entry")
}

func TestBalanceSheetMissingRateIsFatal(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	e := newEngine(repo, cache.Noop{})

	_, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{PresentationCurrency: "JPY"})
	require.Error(t, err)
	assert.ErrorIs(t, err, currency.ErrConversion)
}

func TestBalanceSheetCacheShortCircuits(t *testing.T) {
	repo := repository.NewMemory()
	repo.Rows = scenarioRows()
	mem := cache.NewMemory(fixedClock)
	e := newEngine(repo, mem)
	ctx := context.Background()

	first, err := e.BalanceSheet(ctx, bsPeriod(), Options{})
	require.NoError(t, err)

	// Break the repository: a cache hit must not touch it.
	repo.ErrFetchRows = errors.New("db down")
	second, err := e.BalanceSheet(ctx, bsPeriod(), Options{})
	require.NoError(t, err)
	assert.True(t, second.TotalAssets.Equal(first.TotalAssets))
}

func TestBalanceSheetDataUnavailable(t *testing.T) {
	repo := repository.NewMemory()
	repo.ErrFetchRows = errors.New("all fallbacks exhausted")
	e := newEngine(repo, cache.Noop{})

	_, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrDataUnavailable)
}

func TestBalanceSheetEmptyLedger(t *testing.T) {
	repo := repository.NewMemory()
	e := newEngine(repo, cache.Noop{})

	bs, err := e.BalanceSheet(context.Background(), bsPeriod(), Options{})
	require.NoError(t, err)
	assert.True(t, bs.TotalAssets.IsZero())
	assert.True(t, bs.IsBalanced, "an empty ledger balances at zero")
	assert.Equal(t, ScoreUnknown, bs.Health.Overall)
}

func TestScoreHealthThresholds(t *testing.T) {
	strong := dec("2.5")
	adequate := dec("1.2")
	weak := dec("0.4")
	low := dec("0.3")
	high := dec("3.0")

	h := scoreHealth(Ratios{Current: &strong, DebtToEquity: &low})
	assert.Equal(t, ScoreStrong, h.Overall)

	h = scoreHealth(Ratios{Current: &adequate, DebtToEquity: &low})
	assert.Equal(t, ScoreAdequate, h.Overall)

	h = scoreHealth(Ratios{Current: &weak, DebtToEquity: &low})
	assert.Equal(t, ScoreWeak, h.Overall)

	h = scoreHealth(Ratios{Current: &strong, DebtToEquity: &high})
	assert.Equal(t, ScoreWeak, h.Overall)

	h = scoreHealth(Ratios{Current: nil, DebtToEquity: &low})
	assert.Equal(t, ScoreUnknown, h.Overall)
}
