package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/cache"
	"github.com/ledgerline-dev/ledgerline/internal/coa"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/money"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

// balanceSheetOrder fixes the section order for assembly and export.
var balanceSheetOrder = []model.Bucket{
	model.BucketCurrentAssets,
	model.BucketNonCurrentAssets,
	model.BucketFixedAssets,
	model.BucketCurrentLiabilities,
	model.BucketNonCurrentLiabilities,
	model.BucketShareCapital,
	model.BucketRetainedEarnings,
	model.BucketOtherEquity,
}

// BalanceSheet computes the statement as of period.AsOf.
func (e *Engine) BalanceSheet(ctx context.Context, period model.ReportPeriod, opts Options) (*BalanceSheet, error) {
	fingerprint := cache.Fingerprint("balance_sheet",
		fmt.Sprintf("%d", period.CompanyID),
		period.AsOf.Format("2006-01-02"),
		period.Currency,
		period.CostCenter,
		period.Project,
		opts.ComparativeAsOf.Format("2006-01-02"),
		opts.PresentationCurrency,
		fmt.Sprintf("%d", opts.Page),
		fmt.Sprintf("%d", opts.PageSize),
	)

	if !opts.skipCache {
		if cached, ok := e.cacheGet(ctx, fingerprint); ok {
			var bs BalanceSheet
			if err := json.Unmarshal(cached, &bs); err == nil {
				e.log.Debug("balance sheet cache hit", "fingerprint", fingerprint)
				return &bs, nil
			}
			// A corrupt entry is a miss; recompute.
		}
	}

	filters := repository.Filters{CostCenter: period.CostCenter, Project: period.Project, Page: opts.Page, PageSize: opts.PageSize}
	rows, err := e.repo.FetchBalanceSheetRows(ctx, period.CompanyID, period.AsOf, filters)
	if err != nil {
		return nil, wrapFetchErr(err)
	}

	bs, err := e.assembleBalanceSheet(period, rows)
	if err != nil {
		return nil, err
	}

	if !opts.ComparativeAsOf.IsZero() {
		priorPeriod := period
		priorPeriod.AsOf = opts.ComparativeAsOf
		// Comparative mode is disabled on the sub-call so recursion is
		// bounded at one level. Paging carries over so variance joins the
		// same row window.
		prior, err := e.BalanceSheet(ctx, priorPeriod, Options{skipCache: true, Page: opts.Page, PageSize: opts.PageSize})
		if err != nil {
			return nil, fmt.Errorf("comparative period: %w", err)
		}
		attachComparative(bs.Sections, prior.Sections)
	}

	if opts.PresentationCurrency != "" && opts.PresentationCurrency != period.Currency {
		if err := e.convertBalanceSheet(ctx, bs, period, opts.PresentationCurrency); err != nil {
			return nil, err
		}
	}

	if err := checkBalanceSheetContract(bs); err != nil {
		return nil, err
	}

	if !opts.skipCache {
		e.cacheSet(ctx, fingerprint, bs)
		e.audit(ctx, "balance_sheet", fingerprint, period)
	}
	return bs, nil
}

func (e *Engine) assembleBalanceSheet(period model.ReportPeriod, rows []model.LedgerRow) (*BalanceSheet, error) {
	coa.SortRowsByHierarchy(rows)

	byBucket := make(map[model.Bucket][]model.ReportLine)
	for _, r := range rows {
		if r.IsGroup {
			continue // group accounts hold no direct postings
		}
		kind, bucket := coa.BucketFor(r.Type, r.Name)
		if kind != model.StatementBalanceSheet {
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

	bs := &BalanceSheet{Period: period, Currency: period.Currency}
	for _, bucket := range balanceSheetOrder {
		lines := byBucket[bucket]
		total := decimal.Zero
		for _, l := range lines {
			total = money.Add(total, l.Amount)
		}
		bs.Sections = append(bs.Sections, Section{Bucket: bucket, Lines: lines, Total: total})
	}

	assets := money.Sum(
		sectionFor(bs.Sections, model.BucketCurrentAssets).Total,
		sectionFor(bs.Sections, model.BucketNonCurrentAssets).Total,
		sectionFor(bs.Sections, model.BucketFixedAssets).Total,
	)
	liabilities := money.Sum(
		sectionFor(bs.Sections, model.BucketCurrentLiabilities).Total,
		sectionFor(bs.Sections, model.BucketNonCurrentLiabilities).Total,
	)
	equity := money.Sum(
		sectionFor(bs.Sections, model.BucketShareCapital).Total,
		sectionFor(bs.Sections, model.BucketRetainedEarnings).Total,
		sectionFor(bs.Sections, model.BucketOtherEquity).Total,
	)

	bs.TotalAssets = assets
	bs.TotalLiabilities = liabilities
	bs.TotalEquity = equity
	bs.TotalLiabilitiesAndEquity = money.Add(liabilities, equity)
	bs.IsBalanced = assets.Sub(bs.TotalLiabilitiesAndEquity).Abs().LessThan(decimal.NewFromFloat(0.01))

	// Percent of total: asset rows against total assets, the rest against
	// liabilities + equity.
	for si := range bs.Sections {
		base := bs.TotalLiabilitiesAndEquity
		switch bs.Sections[si].Bucket {
		case model.BucketCurrentAssets, model.BucketNonCurrentAssets, model.BucketFixedAssets:
			base = assets
		}
		for li := range bs.Sections[si].Lines {
			line := &bs.Sections[si].Lines[li]
			line.PercentOfTotal = money.SafePercent(line.Amount, base)
		}
	}

	bs.Ratios = computeRatios(bs)
	bs.Health = scoreHealth(bs.Ratios)
	return bs, nil
}

func computeRatios(bs *BalanceSheet) Ratios {
	currentAssets := sectionFor(bs.Sections, model.BucketCurrentAssets).Total
	currentLiabilities := sectionFor(bs.Sections, model.BucketCurrentLiabilities).Total

	inventory := decimal.Zero
	cash := decimal.Zero
	for _, l := range sectionFor(bs.Sections, model.BucketCurrentAssets).Lines {
		if coa.IsInventory(l.Name) {
			inventory = money.Add(inventory, l.Amount)
		}
		if coa.IsCashLike(l.Name) {
			cash = money.Add(cash, l.Amount)
		}
	}

	return Ratios{
		Current:        money.Ratio(currentAssets, currentLiabilities),
		Quick:          money.Ratio(money.Sub(currentAssets, inventory), currentLiabilities),
		DebtToEquity:   money.Ratio(bs.TotalLiabilities, bs.TotalEquity),
		DebtToAssets:   money.Ratio(bs.TotalLiabilities, bs.TotalAssets),
		CashRatio:      money.Ratio(cash, currentLiabilities),
		WorkingCapital: money.Sub(currentAssets, currentLiabilities),
	}
}

// scoreHealth grades ratios against fixed thresholds.
func scoreHealth(r Ratios) Health {
	var h Health

	switch {
	case r.Current == nil:
		h.Liquidity = ScoreUnknown
	case r.Current.GreaterThanOrEqual(decimal.NewFromInt(2)):
		h.Liquidity = ScoreStrong
	case r.Current.GreaterThanOrEqual(decimal.NewFromInt(1)):
		h.Liquidity = ScoreAdequate
	default:
		h.Liquidity = ScoreWeak
	}

	switch {
	case r.DebtToEquity == nil:
		h.Leverage = ScoreUnknown
	case r.DebtToEquity.LessThanOrEqual(decimal.NewFromFloat(0.5)):
		h.Leverage = ScoreStrong
	case r.DebtToEquity.LessThanOrEqual(decimal.NewFromFloat(1.5)):
		h.Leverage = ScoreAdequate
	default:
		h.Leverage = ScoreWeak
	}

	switch {
	case h.Liquidity == ScoreUnknown || h.Leverage == ScoreUnknown:
		h.Overall = ScoreUnknown
	case h.Liquidity == ScoreWeak || h.Leverage == ScoreWeak:
		h.Overall = ScoreWeak
	case h.Liquidity == ScoreStrong && h.Leverage == ScoreStrong:
		h.Overall = ScoreStrong
	default:
		h.Overall = ScoreAdequate
	}
	return h
}

func (e *Engine) convertBalanceSheet(ctx context.Context, bs *BalanceSheet, period model.ReportPeriod, presentation string) error {
	rate, err := e.fx.Rate(ctx, period.Currency, presentation, period.AsOf)
	if err != nil {
		return fmt.Errorf("converting to %s: %w", presentation, err)
	}

	bs.Sections = convertSections(bs.Sections, rate)
	// Grand totals re-derive from the converted sections so they match
	// the rows exactly after per-line rounding.
	bs.TotalAssets = money.Sum(
		sectionFor(bs.Sections, model.BucketCurrentAssets).Total,
		sectionFor(bs.Sections, model.BucketNonCurrentAssets).Total,
		sectionFor(bs.Sections, model.BucketFixedAssets).Total,
	)
	bs.TotalLiabilities = money.Sum(
		sectionFor(bs.Sections, model.BucketCurrentLiabilities).Total,
		sectionFor(bs.Sections, model.BucketNonCurrentLiabilities).Total,
	)
	bs.TotalEquity = money.Sum(
		sectionFor(bs.Sections, model.BucketShareCapital).Total,
		sectionFor(bs.Sections, model.BucketRetainedEarnings).Total,
		sectionFor(bs.Sections, model.BucketOtherEquity).Total,
	)
	bs.TotalLiabilitiesAndEquity = money.Add(bs.TotalLiabilities, bs.TotalEquity)
	// Per-line rounding can tip the balance identity, so the flag is
	// recomputed from the converted totals rather than carried over.
	bs.IsBalanced = bs.TotalAssets.Sub(bs.TotalLiabilitiesAndEquity).Abs().LessThan(decimal.NewFromFloat(0.01))
	// Working capital is an absolute figure and converts; the pure ratios
	// are currency-invariant and stay as computed.
	bs.Ratios.WorkingCapital = bs.Ratios.WorkingCapital.Mul(rate).Round(2)
	bs.Currency = presentation
	return nil
}

// checkBalanceSheetContract verifies the assembled statement against its
// own invariants before it leaves the engine.
func checkBalanceSheetContract(bs *BalanceSheet) error {
	if len(bs.Sections) != len(balanceSheetOrder) {
		return fmt.Errorf("%w: expected %d sections, got %d", ErrContract, len(balanceSheetOrder), len(bs.Sections))
	}
	for i, s := range bs.Sections {
		if s.Bucket != balanceSheetOrder[i] {
			return fmt.Errorf("%w: section %d is %s, want %s", ErrContract, i, s.Bucket, balanceSheetOrder[i])
		}
		sum := decimal.Zero
		for _, l := range s.Lines {
			sum = money.Add(sum, l.Amount)
		}
		if !sum.Equal(s.Total) {
			return fmt.Errorf("%w: section %s total %s != line sum %s", ErrContract, s.Bucket, s.Total.StringFixed(2), sum.StringFixed(2))
		}
	}
	balanced := bs.TotalAssets.Sub(bs.TotalLiabilitiesAndEquity).Abs().LessThan(decimal.NewFromFloat(0.01))
	if bs.IsBalanced != balanced {
		return fmt.Errorf("%w: isBalanced %t disagrees with totals %s vs %s",
			ErrContract, bs.IsBalanced, bs.TotalAssets.StringFixed(2), bs.TotalLiabilitiesAndEquity.StringFixed(2))
	}
	return nil
}

func (e *Engine) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	val, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		// Cache trouble is never a correctness problem; fall through.
		e.log.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return val, ok
}

func (e *Engine) cacheSet(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		e.log.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := e.cache.Set(ctx, key, payload, e.cacheTTL); err != nil {
		e.log.Warn("cache set failed", "key", key, "error", err)
	}
}
