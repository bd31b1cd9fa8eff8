package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus is the lifecycle state of a journal.
type JournalStatus string

const (
	JournalDraft     JournalStatus = "draft"
	JournalPosted    JournalStatus = "posted"
	JournalCancelled JournalStatus = "cancelled"
)

// JournalLine is one side of a double-entry. Exactly one of Debit/Credit
// is nonzero.
type JournalLine struct {
	AccountID   int
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Journal is a balanced set of debit/credit lines. TotalDebit must equal
// TotalCredit to the cent for every posted journal, always.
type Journal struct {
	ID          int
	Number      string
	Date        time.Time
	Currency    string
	Lines       []JournalLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Status      JournalStatus
	Reference   string // source document, e.g. invoice number
}

// Balanced reports whether debits equal credits exactly.
func (j Journal) Balanced() bool {
	return j.TotalDebit.Equal(j.TotalCredit)
}

// Reversed returns a copy with every debit/credit pair swapped, used to
// build the cancelling journal for a posted document.
func (j Journal) Reversed(number string, date time.Time, reason string) Journal {
	rev := Journal{
		Number:      number,
		Date:        date,
		Currency:    j.Currency,
		TotalDebit:  j.TotalCredit,
		TotalCredit: j.TotalDebit,
		Status:      JournalDraft,
		Reference:   reason,
	}
	rev.Lines = make([]JournalLine, len(j.Lines))
	for i, l := range j.Lines {
		rev.Lines[i] = JournalLine{
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
		}
	}
	return rev
}
