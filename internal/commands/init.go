package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/coa"
	"github.com/ledgerline-dev/ledgerline/internal/config"
)

func newInitCommand() *cobra.Command {
	var name string
	var currency string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledgerline workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, name, currency)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "company name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&currency, "currency", "USD", "base currency")

	return cmd
}

func runInit(dir, name, currency string) error {
	dirs := []string{
		"accounts",
		"intake",
		"exports",
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name, currency)
	if err := config.Save(filepath.Join(dir, "ledgerline.yaml"), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	chartPath := filepath.Join(dir, "accounts", "chart.csv")
	f, err := os.Create(chartPath)
	if err != nil {
		return fmt.Errorf("creating chart of accounts: %w", err)
	}
	defer f.Close()
	if err := coa.WriteAccounts(f, coa.DefaultChart(currency)); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := "exports/\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	fmt.Printf("Initialized ledgerline workspace at %s\n", dir)
	return nil
}
