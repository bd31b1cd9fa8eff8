package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/cache"
	"github.com/ledgerline-dev/ledgerline/internal/coa"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/money"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

// profitLossOrder fixes the P&L section order.
var profitLossOrder = []model.Bucket{
	model.BucketDirectIncome,
	model.BucketIndirectIncome,
	model.BucketCostOfGoodsSold,
	model.BucketDirectExpenses,
	model.BucketIndirectExpenses,
}

// ProfitLoss computes the statement for period.From..period.To.
func (e *Engine) ProfitLoss(ctx context.Context, period model.ReportPeriod, opts Options) (*ProfitLoss, error) {
	fingerprint := cache.Fingerprint("profit_loss",
		fmt.Sprintf("%d", period.CompanyID),
		period.From.Format("2006-01-02"),
		period.To.Format("2006-01-02"),
		period.Currency,
		period.CostCenter,
		period.Project,
		opts.ComparativeFrom.Format("2006-01-02"),
		opts.ComparativeTo.Format("2006-01-02"),
		opts.PresentationCurrency,
		fmt.Sprintf("%d", opts.Page),
		fmt.Sprintf("%d", opts.PageSize),
	)

	if !opts.skipCache {
		if cached, ok := e.cacheGet(ctx, fingerprint); ok {
			var pl ProfitLoss
			if err := json.Unmarshal(cached, &pl); err == nil {
				e.log.Debug("profit & loss cache hit", "fingerprint", fingerprint)
				return &pl, nil
			}
		}
	}

	filters := repository.Filters{CostCenter: period.CostCenter, Project: period.Project, Page: opts.Page, PageSize: opts.PageSize}
	rows, err := e.repo.FetchProfitLossRows(ctx, period.CompanyID, period.From, period.To, filters)
	if err != nil {
		return nil, wrapFetchErr(err)
	}

	pl := e.assembleProfitLoss(period, rows)

	if !opts.ComparativeFrom.IsZero() && !opts.ComparativeTo.IsZero() {
		priorPeriod := period
		priorPeriod.From = opts.ComparativeFrom
		priorPeriod.To = opts.ComparativeTo
		prior, err := e.ProfitLoss(ctx, priorPeriod, Options{skipCache: true, Page: opts.Page, PageSize: opts.PageSize})
		if err != nil {
			return nil, fmt.Errorf("comparative period: %w", err)
		}
		attachComparative(pl.Sections, prior.Sections)
	}

	if opts.PresentationCurrency != "" && opts.PresentationCurrency != period.Currency {
		if err := e.convertProfitLoss(ctx, pl, period, opts.PresentationCurrency); err != nil {
			return nil, err
		}
	}

	if err := checkProfitLossContract(pl); err != nil {
		return nil, err
	}

	if !opts.skipCache {
		e.cacheSet(ctx, fingerprint, pl)
		e.audit(ctx, "profit_loss", fingerprint, period)
	}
	return pl, nil
}

func (e *Engine) assembleProfitLoss(period model.ReportPeriod, rows []model.LedgerRow) *ProfitLoss {
	coa.SortRowsByHierarchy(rows)

	byBucket := make(map[model.Bucket][]model.ReportLine)
	for _, r := range rows {
		if r.IsGroup {
			continue
		}
		kind, bucket := coa.BucketFor(r.Type, r.Name)
		if kind != model.StatementProfitLoss {
			continue
		}
		byBucket[bucket] = append(byBucket[bucket], model.ReportLine{
			AccountID: r.AccountID,
			Code:      r.Code,
			Name:      r.Name,
			Type:      r.Type,
			Bucket:    bucket,
			Amount:    money.RoundCents(r.Balance),
		})
	}

	pl := &ProfitLoss{Period: period, Currency: period.Currency}
	for _, bucket := range profitLossOrder {
		lines := byBucket[bucket]
		total := decimal.Zero
		for _, l := range lines {
			total = money.Add(total, l.Amount)
		}
		pl.Sections = append(pl.Sections, Section{Bucket: bucket, Lines: lines, Total: total})
	}

	income := money.Add(
		sectionFor(pl.Sections, model.BucketDirectIncome).Total,
		sectionFor(pl.Sections, model.BucketIndirectIncome).Total,
	)
	cogs := sectionFor(pl.Sections, model.BucketCostOfGoodsSold).Total
	expenses := money.Add(
		sectionFor(pl.Sections, model.BucketDirectExpenses).Total,
		sectionFor(pl.Sections, model.BucketIndirectExpenses).Total,
	)

	pl.TotalIncome = income
	pl.TotalExpenses = money.Add(cogs, expenses)
	pl.GrossProfit = money.Sub(income, cogs)
	pl.NetProfit = money.Sub(pl.GrossProfit, expenses)
	pl.GrossMargin = money.SafePercent(pl.GrossProfit, income)
	pl.NetMargin = money.SafePercent(pl.NetProfit, income)

	for si := range pl.Sections {
		for li := range pl.Sections[si].Lines {
			line := &pl.Sections[si].Lines[li]
			line.PercentOfTotal = money.SafePercent(line.Amount, income)
		}
	}
	return pl
}

func (e *Engine) convertProfitLoss(ctx context.Context, pl *ProfitLoss, period model.ReportPeriod, presentation string) error {
	rate, err := e.fx.Rate(ctx, period.Currency, presentation, period.To)
	if err != nil {
		return fmt.Errorf("converting to %s: %w", presentation, err)
	}

	pl.Sections = convertSections(pl.Sections, rate)
	income := money.Add(
		sectionFor(pl.Sections, model.BucketDirectIncome).Total,
		sectionFor(pl.Sections, model.BucketIndirectIncome).Total,
	)
	cogs := sectionFor(pl.Sections, model.BucketCostOfGoodsSold).Total
	expenses := money.Add(
		sectionFor(pl.Sections, model.BucketDirectExpenses).Total,
		sectionFor(pl.Sections, model.BucketIndirectExpenses).Total,
	)
	pl.TotalIncome = income
	pl.TotalExpenses = money.Add(cogs, expenses)
	pl.GrossProfit = money.Sub(income, cogs)
	pl.NetProfit = money.Sub(pl.GrossProfit, expenses)
	// Margins are percentages and therefore currency-invariant: they are
	// deliberately not recomputed from converted figures.
	pl.Currency = presentation
	return nil
}

func checkProfitLossContract(pl *ProfitLoss) error {
	if len(pl.Sections) != len(profitLossOrder) {
		return fmt.Errorf("%w: expected %d sections, got %d", ErrContract, len(profitLossOrder), len(pl.Sections))
	}
	for i, s := range pl.Sections {
		if s.Bucket != profitLossOrder[i] {
			return fmt.Errorf("%w: section %d is %s, want %s", ErrContract, i, s.Bucket, profitLossOrder[i])
		}
	}
	want := money.Sub(pl.TotalIncome, pl.TotalExpenses)
	if !pl.NetProfit.Equal(want) {
		return fmt.Errorf("%w: net profit %s != income - expenses %s", ErrContract, pl.NetProfit.StringFixed(2), want.StringFixed(2))
	}
	return nil
}

// MonthlyTrend aggregates the pre-materialized monthly source across a
// fiscal year. Every calendar month inside the year appears exactly once;
// months with no activity carry explicit zeros.
func (e *Engine) MonthlyTrend(ctx context.Context, companyID, fiscalYear int) ([]TrendPoint, error) {
	activity, err := e.repo.FetchMonthlyActivity(ctx, companyID, fiscalYear)
	if err != nil {
		return nil, wrapFetchErr(err)
	}

	type ym struct {
		y int
		m time.Month
	}
	byMonth := make(map[ym]repository.MonthlyActivity, len(activity))
	for _, a := range activity {
		byMonth[ym{a.Year, a.Month}] = a
	}

	start := time.Date(fiscalYear, e.fiscal, 1, 0, 0, 0, 0, time.UTC)
	points := make([]TrendPoint, 0, 12)
	for i := 0; i < 12; i++ {
		month := start.AddDate(0, i, 0)
		a := byMonth[ym{month.Year(), month.Month()}]
		income := money.RoundCents(a.Income)
		cogs := money.RoundCents(a.COGS)
		expenses := money.RoundCents(a.Expenses)
		points = append(points, TrendPoint{
			Year:      month.Year(),
			Month:     month.Month(),
			Income:    income,
			COGS:      cogs,
			Expenses:  expenses,
			NetProfit: money.Sub(income, money.Add(cogs, expenses)),
		})
	}
	return points, nil
}

// BudgetVsActual runs the standard P&L against actuals, then joins the
// budget source per account. An unavailable budget degrades to an
// explicit empty budget rather than failing the report.
func (e *Engine) BudgetVsActual(ctx context.Context, period model.ReportPeriod) (*BudgetReport, error) {
	actual, err := e.ProfitLoss(ctx, period, Options{skipCache: true})
	if err != nil {
		return nil, err
	}

	filters := repository.Filters{CostCenter: period.CostCenter, Project: period.Project}
	budgetRows, err := e.repo.FetchBudgetRows(ctx, period.CompanyID, period.From, period.To, filters)
	hasBudget := err == nil
	if err != nil {
		e.log.Warn("budget source unavailable, emitting empty budget", "company", period.CompanyID, "error", err)
		budgetRows = nil
	}

	budgetByAccount := make(map[int]decimal.Decimal, len(budgetRows))
	for _, r := range budgetRows {
		budgetByAccount[r.AccountID] = money.RoundCents(r.Balance)
	}

	rep := &BudgetReport{Period: period, HasBudget: hasBudget}
	for _, s := range actual.Sections {
		for _, l := range s.Lines {
			budget := budgetByAccount[l.AccountID]
			variance := money.Sub(l.Amount, budget)
			rep.Lines = append(rep.Lines, BudgetLine{
				AccountID:       l.AccountID,
				Code:            l.Code,
				Name:            l.Name,
				Actual:          l.Amount,
				Budget:          budget,
				Variance:        variance,
				VariancePercent: money.SafePercent(variance, budget),
			})
		}
	}
	return rep, nil
}
