package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementKind identifies which financial statement a bucket belongs to.
type StatementKind string

const (
	StatementBalanceSheet StatementKind = "balance_sheet"
	StatementProfitLoss   StatementKind = "profit_loss"
)

// Bucket is the statement section an account's balance rolls up into.
type Bucket string

const (
	// Balance sheet buckets.
	BucketCurrentAssets         Bucket = "current_assets"
	BucketNonCurrentAssets      Bucket = "non_current_assets"
	BucketFixedAssets           Bucket = "fixed_assets"
	BucketCurrentLiabilities    Bucket = "current_liabilities"
	BucketNonCurrentLiabilities Bucket = "non_current_liabilities"
	BucketShareCapital          Bucket = "share_capital"
	BucketRetainedEarnings      Bucket = "retained_earnings"
	BucketOtherEquity           Bucket = "other_equity"

	// Profit & loss buckets.
	BucketDirectIncome     Bucket = "direct_income"
	BucketIndirectIncome   Bucket = "indirect_income"
	BucketCostOfGoodsSold  Bucket = "cost_of_goods_sold"
	BucketDirectExpenses   Bucket = "direct_expenses"
	BucketIndirectExpenses Bucket = "indirect_expenses"
)

// ReportPeriod scopes one statement computation.
type ReportPeriod struct {
	CompanyID  int
	AsOf       time.Time // balance sheet
	From       time.Time // P&L
	To         time.Time // P&L
	Currency   string
	FiscalYear int
	CostCenter string
	Project    string
}

// LedgerRow is one account balance as returned by the repository.
type LedgerRow struct {
	AccountID  int
	Code       string
	Name       string
	Type       AccountType
	IsGroup    bool
	LeftIndex  int
	RightIndex int
	Balance    decimal.Decimal // signed, in the company base currency
}

// ReportLine is one rendered statement row. Comparative fields are nil
// unless a comparative period was requested.
type ReportLine struct {
	AccountID            int
	Code                 string
	Name                 string
	Type                 AccountType
	Bucket               Bucket
	Amount               decimal.Decimal
	PercentOfTotal       decimal.Decimal
	PreviousPeriodAmount *decimal.Decimal
	Variance             *decimal.Decimal
	VariancePercent      *decimal.Decimal
}

// IdempotencyRecord pins a posting request to its first outcome so that
// retries never create a second journal.
type IdempotencyRecord struct {
	Key                string
	RequestFingerprint string
	JournalID          int
	CreatedAt          time.Time
}
