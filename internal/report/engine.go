// Package report computes balance sheets and profit & loss statements
// from ledger balances: hierarchy ordering, statement bucketing, Money
// totals, ratios, comparative variance, and presentation-currency
// conversion. The engine is stateless per request; the cache and
// repository collaborators hold all shared state.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/cache"
	"github.com/ledgerline-dev/ledgerline/internal/currency"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

// ErrTimeout means the caller's deadline expired mid-assembly. A timed
// out report is never returned partially.
var ErrTimeout = errors.New("report computation timed out")

// ErrContract means an assembled statement failed its own output checks,
// which is a programmer error and must not reach callers silently.
var ErrContract = errors.New("report output contract violated")

// Options tune one statement computation.
type Options struct {
	// ComparativeAsOf requests a prior-period balance sheet and per-row
	// variance. Zero disables comparison.
	ComparativeAsOf time.Time
	// ComparativeFrom/To request a prior-period P&L.
	ComparativeFrom time.Time
	ComparativeTo   time.Time
	// PresentationCurrency converts every amount for display. Empty means
	// the period's base currency. Percentages are currency-invariant and
	// are never re-scaled.
	PresentationCurrency string
	// Page and PageSize window the ledger rows feeding the statement.
	// PageSize zero means no paging; Page is 1-based.
	Page     int
	PageSize int

	skipCache bool // set internally for comparative sub-calls
}

// Engine computes financial statements.
type Engine struct {
	repo     repository.Repository
	cache    cache.Cache
	fx       currency.Converter
	sink     audit.Sink
	cacheTTL time.Duration
	fiscal   time.Month // first month of the fiscal year
	now      func() time.Time
	log      *slog.Logger
}

// NewEngine creates an Engine with its collaborators injected.
func NewEngine(repo repository.Repository, c cache.Cache, fx currency.Converter, sink audit.Sink, cacheTTL time.Duration, fiscalStart time.Month, now func() time.Time, log *slog.Logger) *Engine {
	if c == nil {
		c = cache.Noop{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if fiscalStart == 0 {
		fiscalStart = time.January
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{repo: repo, cache: c, fx: fx, sink: sink, cacheTTL: cacheTTL, fiscal: fiscalStart, now: now, log: log}
}

// wrapFetchErr maps deadline expiry to ErrTimeout and passes repository
// errors through otherwise.
func wrapFetchErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// convertSections scales every line by the exchange rate and recomputes
// section totals from the converted lines, so per-line rounding can never
// desynchronize a section from its rows. Percentages stay untouched.
func convertSections(sections []Section, rate decimal.Decimal) []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		cs := Section{Bucket: s.Bucket}
		cs.Lines = make([]model.ReportLine, len(s.Lines))
		total := decimal.Zero
		for j, l := range s.Lines {
			cl := l
			cl.Amount = l.Amount.Mul(rate).Round(2)
			if l.PreviousPeriodAmount != nil {
				prev := l.PreviousPeriodAmount.Mul(rate).Round(2)
				cl.PreviousPeriodAmount = &prev
			}
			if l.Variance != nil {
				v := l.Variance.Mul(rate).Round(2)
				cl.Variance = &v
			}
			cs.Lines[j] = cl
			total = total.Add(cl.Amount)
		}
		cs.Total = total
		out[i] = cs
	}
	return out
}

// attachComparative joins prior-period amounts onto current lines by
// account id and computes variance and variance percent.
func attachComparative(sections []Section, prior []Section) {
	prevByAccount := make(map[int]decimal.Decimal)
	for _, s := range prior {
		for _, l := range s.Lines {
			prevByAccount[l.AccountID] = l.Amount
		}
	}
	for si := range sections {
		for li := range sections[si].Lines {
			line := &sections[si].Lines[li]
			prev, ok := prevByAccount[line.AccountID]
			if !ok {
				prev = decimal.Zero
			}
			v := line.Amount.Sub(prev)
			line.PreviousPeriodAmount = &prev
			line.Variance = &v
			if !prev.IsZero() {
				vp := v.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
				line.VariancePercent = &vp
			}
		}
	}
}

func (e *Engine) audit(ctx context.Context, kind, fingerprint string, period model.ReportPeriod) {
	audit.Fire(ctx, e.sink, e.log, audit.Event{
		Timestamp: e.now(),
		Actor:     "report",
		Action:    "report_generation",
		Details:   fmt.Sprintf("%s company %d", kind, period.CompanyID),
		Reference: fingerprint,
	})
}
