// Package compliance checks a deployment's configuration and wiring
// against a fixed rule list. Findings are advisory; the scan never
// mutates anything.
package compliance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/cache"
	"github.com/ledgerline-dev/ledgerline/internal/config"
	"github.com/ledgerline-dev/ledgerline/internal/currency"
)

// Severity ranks findings for display and exit-code decisions.
type Severity string

const (
	SeverityHigh Severity = "high"
	SeverityWarn Severity = "warn"
	SeverityInfo Severity = "info"
)

// Finding is one rule violation.
type Finding struct {
	Rule     string
	Severity Severity
	Message  string
}

// Deps is the wiring under inspection. Nil fields are themselves
// findings; they mean the concern is absent, not skipped.
type Deps struct {
	AuditSink audit.Sink
	Converter currency.Converter
	Cache     cache.Cache
}

// approvalCeiling is the threshold above which the approval gate is
// considered decorative.
var approvalCeiling = decimal.NewFromInt(1_000_000)

// Scan evaluates the rule list in order and returns every violation.
func Scan(cfg *config.Config, deps Deps) []Finding {
	var findings []Finding
	add := func(rule string, severity Severity, format string, args ...any) {
		findings = append(findings, Finding{
			Rule:     rule,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if cfg.Company.Currency == "" {
		add("base-currency", SeverityHigh, "company base currency is unset")
	}
	if cfg.Company.ID == 0 {
		add("company-id", SeverityHigh, "company id is unset")
	}

	threshold, enabled, err := cfg.Posting.ThresholdAmount()
	switch {
	case err != nil:
		add("approval-threshold", SeverityHigh, "approval threshold is not a valid amount: %v", err)
	case !enabled:
		add("approval-threshold", SeverityWarn, "approval routing is disabled; every invoice posts without review")
	case threshold.GreaterThan(approvalCeiling):
		add("approval-threshold", SeverityWarn, "approval threshold %s is above %s and will never trigger", threshold.StringFixed(2), approvalCeiling.StringFixed(2))
	case len(cfg.Posting.ApproverRoles) == 0:
		add("approver-roles", SeverityHigh, "approval threshold is set but no approver roles are configured")
	}

	if cfg.Posting.ReceivableAccount == 0 {
		add("receivable-account", SeverityHigh, "receivable account is unset; posting cannot build the debit side")
	}
	if cfg.Posting.TaxAccount == 0 {
		add("tax-account", SeverityHigh, "tax account is unset; taxed invoices cannot post")
	}

	if cfg.Fiscal.YearStartMonth < 1 || cfg.Fiscal.YearStartMonth > 12 {
		add("fiscal-year", SeverityWarn, "fiscal year start month %d is out of range; defaulting to January", cfg.Fiscal.YearStartMonth)
	}

	if cfg.Database.URL == "" {
		add("database", SeverityHigh, "database url is unset; the in-memory repository loses everything on exit")
	}
	if cfg.Cache.RedisAddr == "" {
		add("cache", SeverityInfo, "redis address is unset; report caching is disabled")
	}

	if deps.AuditSink == nil {
		add("audit-sink", SeverityHigh, "no audit sink is wired; postings and reports leave no trail")
	}
	if _, ok := deps.Converter.(currency.Identity); ok {
		add("currency-converter", SeverityHigh, "identity exchange-rate converter is wired; every conversion silently returns 1")
	}
	if deps.Converter == nil {
		add("currency-converter", SeverityWarn, "no exchange-rate converter is wired; presentation-currency reports will fail")
	}
	if _, ok := deps.Cache.(cache.Noop); ok && cfg.Cache.RedisAddr != "" {
		add("cache", SeverityWarn, "redis address is configured but the no-op cache is wired")
	}

	return findings
}

// Render formats findings as a line-per-finding text report.
func Render(findings []Finding) string {
	if len(findings) == 0 {
		return "no findings\n"
	}
	var b strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(string(f.Severity)), f.Rule, f.Message)
	}
	return b.String()
}

// HasSeverity reports whether any finding is at the given severity.
func HasSeverity(findings []Finding, severity Severity) bool {
	for _, f := range findings {
		if f.Severity == severity {
			return true
		}
	}
	return false
}
