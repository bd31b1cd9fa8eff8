package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/export"
	"github.com/ledgerline-dev/ledgerline/internal/invoice"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func initWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runLedgerline(t, "", "init", dir, "--name", "Acme Ltd")
	require.NoError(t, err)
	return dir
}

func TestPost_Intake(t *testing.T) {
	dir := initWorkspace(t)

	intake := invoice.Header + "\n" +
		"INV-001,42,2025-03-15,USD,1,Consulting,10,20.00,STANDARD,4010\n" +
		"INV-002,7,2025-03-16,USD,1,License,2,99.90,EXEMPT,4010\n"
	intakePath := filepath.Join(dir, "intake", "invoices.csv")
	require.NoError(t, os.WriteFile(intakePath, []byte(intake), 0o644))

	outPath := filepath.Join(dir, "exports", "journals.csv")
	out, err := runLedgerline(t, dir, "post", "--intake", intakePath, "--out", outPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "posted 2 of 2 invoices")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	journals, err := export.ReadJournalLines(f)
	require.NoError(t, err)
	require.Len(t, journals, 2)
	for _, j := range journals {
		assert.True(t, j.Balanced(), "journal %s must balance", j.Number)
	}

	// INV-001: 10 * 20.00 at 20% tax -> credit 200.00 + 40.00, debit 240.00.
	first := journals[0]
	assert.Equal(t, "INV-001", first.Reference)
	assert.True(t, first.TotalDebit.Equal(dec("240.00")), "total debit %s", first.TotalDebit)
}

func TestPost_IntakeOverThresholdRequiresApproval(t *testing.T) {
	dir := initWorkspace(t)

	// 1000 * 20.00 = 20000.00, above the default 10000.00 threshold.
	intake := invoice.Header + "\n" +
		"INV-BIG,42,2025-03-15,USD,1,Consulting,1000,20.00,STANDARD,4010\n"
	intakePath := filepath.Join(dir, "intake", "invoices.csv")
	require.NoError(t, os.WriteFile(intakePath, []byte(intake), 0o644))

	outPath := filepath.Join(dir, "exports", "journals.csv")
	out, err := runLedgerline(t, dir, "post", "--intake", intakePath, "--out", outPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "requires approval")
	assert.Contains(t, out, "posted 0 of 1 invoices")
}

func TestPost_IntakeUnknownTaxCode(t *testing.T) {
	dir := initWorkspace(t)

	intake := invoice.Header + "\n" +
		"INV-001,42,2025-03-15,USD,1,Consulting,10,20.00,NOSUCH,4010\n"
	intakePath := filepath.Join(dir, "intake", "invoices.csv")
	require.NoError(t, os.WriteFile(intakePath, []byte(intake), 0o644))

	out, err := runLedgerline(t, dir, "post", "--intake", intakePath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "posted 0 of 1 invoices")
	assert.Contains(t, out, "taxCode")
}

func TestPost_IntakeUnknownAccount(t *testing.T) {
	dir := initWorkspace(t)

	// 9999 is not in the default chart written by init.
	intake := invoice.Header + "\n" +
		"INV-001,42,2025-03-15,USD,1,Consulting,10,20.00,STANDARD,9999\n"
	intakePath := filepath.Join(dir, "intake", "invoices.csv")
	require.NoError(t, os.WriteFile(intakePath, []byte(intake), 0o644))

	out, err := runLedgerline(t, dir, "post", "--intake", intakePath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "posted 0 of 1 invoices")
	assert.Contains(t, out, "accountId")
}

func TestPost_RequiresArguments(t *testing.T) {
	dir := initWorkspace(t)
	out, err := runLedgerline(t, dir, "post")
	require.Error(t, err)
	assert.Contains(t, out, "--invoice-id")
}
