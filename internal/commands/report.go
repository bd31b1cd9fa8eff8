package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/export"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/report"
)

const flagDateFormat = "2006-01-02"

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate financial statements",
	}

	cmd.AddCommand(newBalanceSheetCommand())
	cmd.AddCommand(newProfitLossCommand())
	cmd.AddCommand(newTrendCommand())

	return cmd
}

func newBalanceSheetCommand() *cobra.Command {
	var configPath string
	var asOf string
	var compare string
	var presentation string
	var costCenter string
	var project string
	var page int
	var pageSize int
	var outPath string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Generate a balance sheet as of a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := openRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			period := model.ReportPeriod{
				CompanyID:  rt.cfg.Company.ID,
				Currency:   rt.cfg.Company.Currency,
				CostCenter: costCenter,
				Project:    project,
			}
			if period.AsOf, err = time.Parse(flagDateFormat, asOf); err != nil {
				return fmt.Errorf("parsing --as-of: %w", err)
			}

			var opts report.Options
			if compare != "" {
				if opts.ComparativeAsOf, err = time.Parse(flagDateFormat, compare); err != nil {
					return fmt.Errorf("parsing --compare: %w", err)
				}
			}
			opts.PresentationCurrency = presentation
			opts.Page = page
			opts.PageSize = pageSize

			engine := newReportEngine(rt)
			bs, err := engine.BalanceSheet(ctx, period, opts)
			if err != nil {
				return err
			}

			return withOutput(outPath, func(w io.Writer) error {
				return export.WriteBalanceSheet(w, bs)
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ledgerline.yaml", "config file")
	cmd.Flags().StringVar(&asOf, "as-of", "", "statement date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("as-of")
	cmd.Flags().StringVar(&compare, "compare", "", "comparative statement date")
	cmd.Flags().StringVar(&presentation, "currency", "", "presentation currency")
	cmd.Flags().StringVar(&costCenter, "cost-center", "", "cost center filter")
	cmd.Flags().StringVar(&project, "project", "", "project filter")
	cmd.Flags().IntVar(&page, "page", 0, "page of statement rows (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (0 disables paging)")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV (default stdout)")

	return cmd
}

func newProfitLossCommand() *cobra.Command {
	var configPath string
	var from string
	var to string
	var compareFrom string
	var compareTo string
	var presentation string
	var costCenter string
	var project string
	var page int
	var pageSize int
	var outPath string

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Generate a profit & loss statement for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := openRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			period := model.ReportPeriod{
				CompanyID:  rt.cfg.Company.ID,
				Currency:   rt.cfg.Company.Currency,
				CostCenter: costCenter,
				Project:    project,
			}
			if period.From, err = time.Parse(flagDateFormat, from); err != nil {
				return fmt.Errorf("parsing --from: %w", err)
			}
			if period.To, err = time.Parse(flagDateFormat, to); err != nil {
				return fmt.Errorf("parsing --to: %w", err)
			}

			var opts report.Options
			if compareFrom != "" || compareTo != "" {
				if opts.ComparativeFrom, err = time.Parse(flagDateFormat, compareFrom); err != nil {
					return fmt.Errorf("parsing --compare-from: %w", err)
				}
				if opts.ComparativeTo, err = time.Parse(flagDateFormat, compareTo); err != nil {
					return fmt.Errorf("parsing --compare-to: %w", err)
				}
			}
			opts.PresentationCurrency = presentation
			opts.Page = page
			opts.PageSize = pageSize

			engine := newReportEngine(rt)
			pl, err := engine.ProfitLoss(ctx, period, opts)
			if err != nil {
				return err
			}

			return withOutput(outPath, func(w io.Writer) error {
				return export.WriteProfitLoss(w, pl)
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ledgerline.yaml", "config file")
	cmd.Flags().StringVar(&from, "from", "", "period start YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&to, "to", "", "period end YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&compareFrom, "compare-from", "", "comparative period start")
	cmd.Flags().StringVar(&compareTo, "compare-to", "", "comparative period end")
	cmd.Flags().StringVar(&presentation, "currency", "", "presentation currency")
	cmd.Flags().StringVar(&costCenter, "cost-center", "", "cost center filter")
	cmd.Flags().StringVar(&project, "project", "", "project filter")
	cmd.Flags().IntVar(&page, "page", 0, "page of statement rows (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (0 disables paging)")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV (default stdout)")

	return cmd
}

func newTrendCommand() *cobra.Command {
	var configPath string
	var year int
	var outPath string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Generate the monthly P&L trend for a fiscal year",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := openRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			engine := newReportEngine(rt)
			points, err := engine.MonthlyTrend(ctx, rt.cfg.Company.ID, year)
			if err != nil {
				return err
			}

			return withOutput(outPath, func(w io.Writer) error {
				return writeTrend(w, points)
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ledgerline.yaml", "config file")
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (required)")
	_ = cmd.MarkFlagRequired("year")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV (default stdout)")

	return cmd
}

func newReportEngine(rt *runtime) *report.Engine {
	return report.NewEngine(rt.repo, rt.cache, rt.fx, rt.sink,
		rt.cfg.Cache.TTL(), rt.cfg.Fiscal.StartMonth(), nil, rt.log)
}

func writeTrend(w io.Writer, points []report.TrendPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"year", "month", "income", "cogs", "expenses", "net_profit"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range points {
		row := []string{
			strconv.Itoa(p.Year),
			strconv.Itoa(int(p.Month)),
			p.Income.StringFixed(2),
			p.COGS.StringFixed(2),
			p.Expenses.StringFixed(2),
			p.NetProfit.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing trend row: %w", err)
		}
	}
	return cw.Error()
}

func withOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return write(f)
}
