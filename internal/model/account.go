package model

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a member of the closed account-type set.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account is one node in the chart of accounts. LeftIndex/RightIndex carry
// the nested-interval position; zero means the account was never indexed
// and sorts after all indexed accounts.
type Account struct {
	ID         int
	Code       string
	Name       string
	Type       AccountType
	ParentID   int // 0 = top-level
	IsGroup    bool
	LeftIndex  int
	RightIndex int
	Currency   string
}

// Contains reports whether other lies inside a's nested interval, i.e.
// a is an ancestor of other. Unindexed accounts contain nothing.
func (a Account) Contains(other Account) bool {
	if a.LeftIndex == 0 || other.LeftIndex == 0 {
		return false
	}
	return a.LeftIndex < other.LeftIndex && other.RightIndex < a.RightIndex
}
