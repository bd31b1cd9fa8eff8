package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

func TestTrialBalance(t *testing.T) {
	journals := []model.Journal{
		{
			Number: "JRN-2025-0001",
			Lines: []model.JournalLine{
				{AccountID: 4010, Credit: dec("200.00")},
				{AccountID: 2020, Credit: dec("20.00")},
				{AccountID: 1020, Debit: dec("220.00")},
			},
		},
		{
			Number: "JRN-2025-0002",
			Lines: []model.JournalLine{
				{AccountID: 4010, Credit: dec("100.00")},
				{AccountID: 1020, Debit: dec("100.00")},
			},
		},
	}

	rows, balanced := TrialBalance(journals)
	assert.True(t, balanced)
	require.Len(t, rows, 3)

	// Rows come back sorted by account id.
	assert.Equal(t, 1020, rows[0].AccountID)
	assert.True(t, rows[0].Debit.Equal(dec("320.00")))
	assert.True(t, rows[0].Net.Equal(dec("320.00")))

	assert.Equal(t, 2020, rows[1].AccountID)
	assert.True(t, rows[1].Credit.Equal(dec("20.00")))

	assert.Equal(t, 4010, rows[2].AccountID)
	assert.True(t, rows[2].Credit.Equal(dec("300.00")))
	assert.True(t, rows[2].Net.Equal(dec("-300.00")))
}

func TestTrialBalanceDetectsImbalance(t *testing.T) {
	journals := []model.Journal{
		{
			Number: "JRN-2025-0003",
			Lines: []model.JournalLine{
				{AccountID: 4010, Credit: dec("200.00")},
				{AccountID: 1020, Debit: dec("199.00")},
			},
		},
	}

	_, balanced := TrialBalance(journals)
	assert.False(t, balanced)
}

func TestTrialBalanceEmpty(t *testing.T) {
	rows, balanced := TrialBalance(nil)
	assert.Empty(t, rows)
	assert.True(t, balanced, "zero equals zero")
}
