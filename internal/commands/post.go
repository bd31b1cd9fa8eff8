package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/coa"
	"github.com/ledgerline-dev/ledgerline/internal/export"
	"github.com/ledgerline-dev/ledgerline/internal/idempotency"
	"github.com/ledgerline-dev/ledgerline/internal/invoice"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/posting"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

func newPostCommand() *cobra.Command {
	var configPath string
	var invoiceID int
	var idemKey string
	var intakePath string
	var chartPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post invoices to the ledger",
		Long: `Post a single invoice from the repository (--invoice-id with --key),
or run an intake file of draft invoices through calculation and posting
(--intake) and export the resulting journals.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := openRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if intakePath != "" {
				return runPostIntake(ctx, rt, intakePath, chartPath, outPath)
			}
			if invoiceID == 0 || idemKey == "" {
				return fmt.Errorf("either --intake or both --invoice-id and --key are required")
			}
			return runPostOne(ctx, rt, invoiceID, idemKey)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ledgerline.yaml", "config file")
	cmd.Flags().IntVar(&invoiceID, "invoice-id", 0, "invoice to post")
	cmd.Flags().StringVar(&idemKey, "key", "", "idempotency key for --invoice-id")
	cmd.Flags().StringVar(&intakePath, "intake", "", "invoice intake CSV to post")
	cmd.Flags().StringVar(&chartPath, "chart", "accounts/chart.csv", "chart of accounts CSV for intake mode")
	cmd.Flags().StringVar(&outPath, "out", "", "journal export CSV (default stdout)")

	return cmd
}

func newPostingService(rt *runtime) (*posting.Service, error) {
	cfg, err := postingConfig(rt.cfg)
	if err != nil {
		return nil, err
	}
	rates, err := taxRatesFrom(rt.cfg)
	if err != nil {
		return nil, err
	}
	return posting.NewService(rt.repo, rt.store, rates, cfg, rt.sink, nil, rt.log), nil
}

func runPostOne(ctx context.Context, rt *runtime, invoiceID int, idemKey string) error {
	svc, err := newPostingService(rt)
	if err != nil {
		return err
	}

	outcome, err := svc.PostInvoice(ctx, invoiceID, idemKey)
	if err != nil {
		return err
	}
	printOutcome(invoiceID, outcome)
	if outcome.Status == posting.StatusInvalid {
		return fmt.Errorf("invoice %d did not post", invoiceID)
	}
	return nil
}

// runPostIntake loads the chart of accounts and the draft invoices into
// a scratch in-memory repository, posts each one, and exports the
// resulting journals. The configured
// database is deliberately not touched: intake mode is for preparing and
// reviewing journals offline.
func runPostIntake(ctx context.Context, rt *runtime, intakePath, chartPath, outPath string) error {
	f, err := os.Open(intakePath)
	if err != nil {
		return fmt.Errorf("opening intake file: %w", err)
	}
	defer f.Close()

	invoices, err := invoice.ReadInvoices(f)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		return fmt.Errorf("intake file %s has no invoices", intakePath)
	}

	cf, err := os.Open(chartPath)
	if err != nil {
		return fmt.Errorf("opening chart of accounts: %w", err)
	}
	accounts, err := coa.ReadAccounts(cf)
	cf.Close()
	if err != nil {
		return err
	}

	scratch := repository.NewMemory()
	scratch.Accounts = accounts
	for i := range invoices {
		invoices[i].ID = i + 1
		inv := invoices[i]
		scratch.Invoices[inv.ID] = &inv
	}

	rtScratch := *rt
	rtScratch.repo = scratch
	rtScratch.store = idempotency.NewMemory(nil)
	svc, err := newPostingService(&rtScratch)
	if err != nil {
		return err
	}

	posted := 0
	for _, inv := range invoices {
		outcome, err := svc.PostInvoice(ctx, inv.ID, "intake-"+inv.Number)
		if err != nil {
			return fmt.Errorf("posting %s: %w", inv.Number, err)
		}
		printOutcome(inv.ID, outcome)
		if outcome.Status == posting.StatusPosted {
			posted++
		}
	}

	journals := make([]model.Journal, 0, len(scratch.Journals))
	for _, j := range scratch.Journals {
		journals = append(journals, j)
	}
	sort.Slice(journals, func(i, j int) bool { return journals[i].Number < journals[j].Number })

	var out io.Writer = os.Stdout
	if outPath != "" {
		of, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer of.Close()
		out = of
	}
	if err := export.WriteJournals(out, journals); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "posted %d of %d invoices\n", posted, len(invoices))
	return nil
}

func printOutcome(invoiceID int, outcome posting.Outcome) {
	switch outcome.Status {
	case posting.StatusPosted:
		fmt.Fprintf(os.Stderr, "invoice %d: posted as %s\n", invoiceID, outcome.JournalNumber)
	case posting.StatusRequiresApproval:
		fmt.Fprintf(os.Stderr, "invoice %d: requires approval from %v\n", invoiceID, outcome.ApproverRoles)
	case posting.StatusInvalid:
		for _, e := range outcome.Errors {
			fmt.Fprintf(os.Stderr, "invoice %d: %s\n", invoiceID, e.Error())
		}
	}
}
