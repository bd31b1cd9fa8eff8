package coa

import "github.com/ledgerline-dev/ledgerline/internal/model"

// DefaultChart returns a starter chart of accounts with nested-interval
// indices already assigned. Used by `ledgerline init` and the in-memory
// wiring.
func DefaultChart(currency string) []model.Account {
	return []model.Account{
		{ID: 1000, Code: "1000", Name: "Assets", Type: model.AccountTypeAsset, IsGroup: true, LeftIndex: 1, RightIndex: 12, Currency: currency},
		{ID: 1010, Code: "1010", Name: "Cash at Bank", Type: model.AccountTypeAsset, ParentID: 1000, LeftIndex: 2, RightIndex: 3, Currency: currency},
		{ID: 1020, Code: "1020", Name: "Accounts Receivable", Type: model.AccountTypeAsset, ParentID: 1000, LeftIndex: 4, RightIndex: 5, Currency: currency},
		{ID: 1030, Code: "1030", Name: "Inventory", Type: model.AccountTypeAsset, ParentID: 1000, LeftIndex: 6, RightIndex: 7, Currency: currency},
		{ID: 1100, Code: "1100", Name: "Office Equipment", Type: model.AccountTypeAsset, ParentID: 1000, LeftIndex: 8, RightIndex: 9, Currency: currency},
		{ID: 1200, Code: "1200", Name: "Long-Term Deposits", Type: model.AccountTypeAsset, ParentID: 1000, LeftIndex: 10, RightIndex: 11, Currency: currency},
		{ID: 2000, Code: "2000", Name: "Liabilities", Type: model.AccountTypeLiability, IsGroup: true, LeftIndex: 13, RightIndex: 20, Currency: currency},
		{ID: 2010, Code: "2010", Name: "Accounts Payable", Type: model.AccountTypeLiability, ParentID: 2000, LeftIndex: 14, RightIndex: 15, Currency: currency},
		{ID: 2020, Code: "2020", Name: "Tax Payable", Type: model.AccountTypeLiability, ParentID: 2000, LeftIndex: 16, RightIndex: 17, Currency: currency},
		{ID: 2100, Code: "2100", Name: "Bank Loan", Type: model.AccountTypeLiability, ParentID: 2000, LeftIndex: 18, RightIndex: 19, Currency: currency},
		{ID: 3000, Code: "3000", Name: "Equity", Type: model.AccountTypeEquity, IsGroup: true, LeftIndex: 21, RightIndex: 26, Currency: currency},
		{ID: 3010, Code: "3010", Name: "Share Capital", Type: model.AccountTypeEquity, ParentID: 3000, LeftIndex: 22, RightIndex: 23, Currency: currency},
		{ID: 3020, Code: "3020", Name: "Retained Earnings", Type: model.AccountTypeEquity, ParentID: 3000, LeftIndex: 24, RightIndex: 25, Currency: currency},
		{ID: 4000, Code: "4000", Name: "Income", Type: model.AccountTypeIncome, IsGroup: true, LeftIndex: 27, RightIndex: 32, Currency: currency},
		{ID: 4010, Code: "4010", Name: "Sales Revenue", Type: model.AccountTypeIncome, ParentID: 4000, LeftIndex: 28, RightIndex: 29, Currency: currency},
		{ID: 4020, Code: "4020", Name: "Interest Income", Type: model.AccountTypeIncome, ParentID: 4000, LeftIndex: 30, RightIndex: 31, Currency: currency},
		{ID: 5000, Code: "5000", Name: "Expenses", Type: model.AccountTypeExpense, IsGroup: true, LeftIndex: 33, RightIndex: 42, Currency: currency},
		{ID: 5010, Code: "5010", Name: "Cost of Goods Sold", Type: model.AccountTypeExpense, ParentID: 5000, LeftIndex: 34, RightIndex: 35, Currency: currency},
		{ID: 5020, Code: "5020", Name: "Salaries", Type: model.AccountTypeExpense, ParentID: 5000, LeftIndex: 36, RightIndex: 37, Currency: currency},
		{ID: 5030, Code: "5030", Name: "Rent", Type: model.AccountTypeExpense, ParentID: 5000, LeftIndex: 38, RightIndex: 39, Currency: currency},
		{ID: 5040, Code: "5040", Name: "Office Supplies", Type: model.AccountTypeExpense, ParentID: 5000, LeftIndex: 40, RightIndex: 41, Currency: currency},
	}
}
