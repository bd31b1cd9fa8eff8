// Package commands builds the ledgerline CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerline",
		Short:   "Double-entry posting and financial statements",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newPostCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newScanCommand())

	return rootCmd
}
