package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/coa"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "ledgerline-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "ledgerline")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/ledgerline")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runLedgerline(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerline(t, "", "init", dir, "--name", "Acme Ltd")
	require.NoError(t, err)

	for _, d := range []string{"accounts", "intake", "exports", "logs"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerline(t, "", "init", dir, "--name", "Acme Ltd", "--currency", "EUR")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ledgerline.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Acme Ltd")
	assert.Contains(t, contents, "currency: EUR")
	assert.Contains(t, contents, "receivable_account: 1020")
}

func TestInit_Chart(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerline(t, "", "init", dir, "--name", "Acme Ltd")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "accounts", "chart.csv"))
	require.NoError(t, err)
	defer f.Close()

	accounts, err := coa.ReadAccounts(f)
	require.NoError(t, err)
	assert.Len(t, accounts, len(coa.DefaultChart("USD")))
}

func TestInit_Gitignore(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerline(t, "", "init", dir, "--name", "Acme Ltd")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "exports/")
	assert.Contains(t, string(data), "logs/")
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerline(t, "", "init", dir)
	require.Error(t, err, "init without --name should fail")
}
