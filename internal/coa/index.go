// Package coa holds the in-memory chart-of-accounts index: hierarchy
// ordering over nested-interval positions and statement-bucket
// classification.
package coa

import (
	"sort"
	"strings"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Index provides lookup over a loaded chart of accounts. The account set
// is read-only input; administration happens outside the engine.
type Index struct {
	accounts []model.Account
	byID     map[int]model.Account
}

// NewIndex creates an Index from a slice of accounts.
func NewIndex(accounts []model.Account) *Index {
	byID := make(map[int]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Index{accounts: accounts, byID: byID}
}

// All returns all accounts.
func (ix *Index) All() []model.Account {
	return ix.accounts
}

// Get returns an account by ID.
func (ix *Index) Get(id int) (model.Account, bool) {
	a, ok := ix.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (ix *Index) Exists(id int) bool {
	_, ok := ix.byID[id]
	return ok
}

// ByType returns all accounts of the given type.
func (ix *Index) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range ix.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// Descendants returns all accounts inside the nested interval of the
// account with the given ID, in hierarchy order.
func (ix *Index) Descendants(id int) []model.Account {
	parent, ok := ix.byID[id]
	if !ok {
		return nil
	}
	var result []model.Account
	for _, a := range ix.accounts {
		if parent.Contains(a) {
			result = append(result, a)
		}
	}
	SortByHierarchy(result)
	return result
}

// SortByHierarchy orders accounts in place by their nested-interval left
// index, which yields a depth-first statement order. Accounts with no
// index sort last; ties break lexicographically by code.
func SortByHierarchy(accounts []model.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		li, lj := accounts[i].LeftIndex, accounts[j].LeftIndex
		switch {
		case li != 0 && lj != 0 && li != lj:
			return li < lj
		case li != 0 && lj == 0:
			return true
		case li == 0 && lj != 0:
			return false
		}
		return accounts[i].Code < accounts[j].Code
	})
}

// SortRowsByHierarchy applies the same ordering to ledger rows.
func SortRowsByHierarchy(rows []model.LedgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		li, lj := rows[i].LeftIndex, rows[j].LeftIndex
		switch {
		case li != 0 && lj != 0 && li != lj:
			return li < lj
		case li != 0 && lj == 0:
			return true
		case li == 0 && lj != 0:
			return false
		}
		return rows[i].Code < rows[j].Code
	})
}

// BucketFor maps an account to its statement and section. Equity and
// current/fixed splits come from name patterns because the account model
// carries no dedicated role field; the fuzziness is confined to this
// function so report math never matches names itself.
func BucketFor(accountType model.AccountType, name string) (model.StatementKind, model.Bucket) {
	n := strings.ToLower(name)

	switch accountType {
	case model.AccountTypeAsset:
		switch {
		case containsAny(n, "equipment", "property", "vehicle", "furniture", "machinery", "building", "fixed asset"):
			return model.StatementBalanceSheet, model.BucketFixedAssets
		case containsAny(n, "deposit", "long-term", "long term", "intangible", "goodwill"):
			return model.StatementBalanceSheet, model.BucketNonCurrentAssets
		default:
			return model.StatementBalanceSheet, model.BucketCurrentAssets
		}
	case model.AccountTypeLiability:
		if containsAny(n, "loan", "mortgage", "debenture", "long-term", "long term", "bond") {
			return model.StatementBalanceSheet, model.BucketNonCurrentLiabilities
		}
		return model.StatementBalanceSheet, model.BucketCurrentLiabilities
	case model.AccountTypeEquity:
		switch {
		case containsAny(n, "share", "capital"):
			return model.StatementBalanceSheet, model.BucketShareCapital
		case strings.Contains(n, "retained earnings"):
			return model.StatementBalanceSheet, model.BucketRetainedEarnings
		default:
			return model.StatementBalanceSheet, model.BucketOtherEquity
		}
	case model.AccountTypeIncome:
		if containsAny(n, "other", "interest", "misc", "gain") {
			return model.StatementProfitLoss, model.BucketIndirectIncome
		}
		return model.StatementProfitLoss, model.BucketDirectIncome
	case model.AccountTypeExpense:
		switch {
		case containsAny(n, "cost of goods", "cogs", "purchases"):
			return model.StatementProfitLoss, model.BucketCostOfGoodsSold
		case containsAny(n, "admin", "office", "depreciation", "insurance", "misc", "other", "interest", "bank charge"):
			return model.StatementProfitLoss, model.BucketIndirectExpenses
		default:
			return model.StatementProfitLoss, model.BucketDirectExpenses
		}
	}
	// Unknown types land in other equity so the statement still balances
	// visibly instead of dropping the row.
	return model.StatementBalanceSheet, model.BucketOtherEquity
}

// IsCashLike reports whether an account counts as cash for the cash ratio.
func IsCashLike(name string) bool {
	return containsAny(strings.ToLower(name), "cash", "bank")
}

// IsInventory reports whether an account is excluded from the quick ratio.
func IsInventory(name string) bool {
	return containsAny(strings.ToLower(name), "stock", "inventory")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
