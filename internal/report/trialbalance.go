package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/money"
)

// TrialBalanceRow is one account's debit and credit activity across a
// set of journals.
type TrialBalanceRow struct {
	AccountID int
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Net       decimal.Decimal // debit minus credit
}

// TrialBalance sums debits and credits per account across journals and
// reports whether the grand totals agree. A false result means at least
// one journal in the set is corrupt.
func TrialBalance(journals []model.Journal) ([]TrialBalanceRow, bool) {
	byAccount := make(map[int]*TrialBalanceRow)
	for _, j := range journals {
		for _, l := range j.Lines {
			row, ok := byAccount[l.AccountID]
			if !ok {
				row = &TrialBalanceRow{AccountID: l.AccountID}
				byAccount[l.AccountID] = row
			}
			row.Debit = money.Add(row.Debit, l.Debit)
			row.Credit = money.Add(row.Credit, l.Credit)
		}
	}

	rows := make([]TrialBalanceRow, 0, len(byAccount))
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, row := range byAccount {
		row.Net = money.Sub(row.Debit, row.Credit)
		rows = append(rows, *row)
		totalDebit = money.Add(totalDebit, row.Debit)
		totalCredit = money.Add(totalCredit, row.Credit)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccountID < rows[j].AccountID })

	return rows, totalDebit.Equal(totalCredit)
}
