package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Score is an ordinal health grade derived from fixed ratio thresholds.
// It is a display heuristic, not a statistical model.
type Score string

const (
	ScoreStrong   Score = "strong"
	ScoreAdequate Score = "adequate"
	ScoreWeak     Score = "weak"
	ScoreUnknown  Score = "unknown"
)

// Section is one statement bucket with its rows and total.
type Section struct {
	Bucket model.Bucket       `json:"bucket"`
	Lines  []model.ReportLine `json:"lines"`
	Total  decimal.Decimal    `json:"total"`
}

// Ratios are the balance-sheet analysis figures. A nil ratio is
// undefined (zero denominator) and must render as "n/a", never as 0.
type Ratios struct {
	Current        *decimal.Decimal `json:"current"`
	Quick          *decimal.Decimal `json:"quick"`
	DebtToEquity   *decimal.Decimal `json:"debtToEquity"`
	DebtToAssets   *decimal.Decimal `json:"debtToAssets"`
	CashRatio      *decimal.Decimal `json:"cashRatio"`
	WorkingCapital decimal.Decimal  `json:"workingCapital"`
}

// Health is the qualitative scoring block.
type Health struct {
	Liquidity Score `json:"liquidity"`
	Leverage  Score `json:"leverage"`
	Overall   Score `json:"overall"`
}

// BalanceSheet is a complete, internally consistent statement. Partial
// statements are never produced; failures surface as errors instead.
type BalanceSheet struct {
	Period   model.ReportPeriod `json:"period"`
	Currency string             `json:"currency"` // presentation currency
	Sections []Section          `json:"sections"`

	TotalAssets               decimal.Decimal `json:"totalAssets"`
	TotalLiabilities          decimal.Decimal `json:"totalLiabilities"`
	TotalEquity               decimal.Decimal `json:"totalEquity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"totalLiabilitiesAndEquity"`
	IsBalanced                bool            `json:"isBalanced"`

	Ratios Ratios `json:"ratios"`
	Health Health `json:"health"`
}

// Section returns the section for a bucket, or an empty one.
func sectionFor(sections []Section, bucket model.Bucket) Section {
	for _, s := range sections {
		if s.Bucket == bucket {
			return s
		}
	}
	return Section{Bucket: bucket}
}

// ProfitLoss is a complete P&L statement.
type ProfitLoss struct {
	Period   model.ReportPeriod `json:"period"`
	Currency string             `json:"currency"`
	Sections []Section          `json:"sections"`

	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"` // COGS + direct + indirect
	GrossProfit   decimal.Decimal `json:"grossProfit"`
	NetProfit     decimal.Decimal `json:"netProfit"`

	GrossMargin decimal.Decimal `json:"grossMargin"` // percent of income, 0 when income is 0
	NetMargin   decimal.Decimal `json:"netMargin"`
}

// TrendPoint is one month of the P&L trend. Months with no activity are
// emitted with zero values, never omitted.
type TrendPoint struct {
	Year      int             `json:"year"`
	Month     time.Month      `json:"month"`
	Income    decimal.Decimal `json:"income"`
	COGS      decimal.Decimal `json:"cogs"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetProfit decimal.Decimal `json:"netProfit"`
}

// BudgetLine is one account's budget-vs-actual comparison.
type BudgetLine struct {
	AccountID       int             `json:"accountId"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Actual          decimal.Decimal `json:"actual"`
	Budget          decimal.Decimal `json:"budget"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variancePercent"`
}

// BudgetReport is the budget-vs-actual output. HasBudget is false when
// the budget source was unavailable and the report degraded to "no
// variance data".
type BudgetReport struct {
	Period    model.ReportPeriod `json:"period"`
	HasBudget bool               `json:"hasBudget"`
	Lines     []BudgetLine       `json:"lines"`
}
