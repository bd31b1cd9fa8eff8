package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/compliance"
	"github.com/ledgerline-dev/ledgerline/internal/config"
)

func newScanCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check the configuration for compliance problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Build the same wiring production would get from this config,
			// without dialing anything, so the scan sees what a run would see.
			fx, err := converterFrom(cfg)
			if err != nil {
				return err
			}
			deps := compliance.Deps{
				AuditSink: audit.NewCSVLog("."),
				Converter: fx,
				Cache:     cacheProbeFor(cfg),
			}

			findings := compliance.Scan(cfg, deps)
			fmt.Print(compliance.Render(findings))

			if compliance.HasSeverity(findings, compliance.SeverityHigh) {
				return fmt.Errorf("scan found high-severity problems")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ledgerline.yaml", "config file")

	return cmd
}
