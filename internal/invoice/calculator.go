// Package invoice recomputes invoice line amounts and document totals.
// Caller-supplied figures are claims to verify, never ground truth:
// posting must not proceed on a line it cannot independently verify.
package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/money"
)

// ValidationError describes a single caller-fixable input problem. These
// are returned as a list, never as a Go error past the boundary.
type ValidationError struct {
	Line    int // 0 = document-level
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("line %d %s: %s", e.Line, e.Field, e.Message)
}

// TaxRateResolver resolves a tax code to a flat percentage rate.
type TaxRateResolver interface {
	Rate(taxCode string) (decimal.Decimal, error)
}

// Calculate recomputes every line's amount and tax, then the document
// totals, writing the derived values back onto inv. Any claimed figure
// that disagrees with the recomputation is reported; a non-empty return
// means the invoice must not be posted.
func Calculate(inv *model.Invoice, rates TaxRateResolver) []ValidationError {
	var errs []ValidationError

	if len(inv.Lines) == 0 {
		errs = append(errs, ValidationError{Field: "lines", Message: "invoice has no lines"})
		return errs
	}

	subtotal := decimal.Zero
	taxTotal := decimal.Zero

	for i := range inv.Lines {
		line := &inv.Lines[i]
		n := line.LineNumber
		if n == 0 {
			n = i + 1
			line.LineNumber = n
		}

		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, ValidationError{Line: n, Field: "quantity", Message: "must be greater than zero"})
			continue
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ValidationError{Line: n, Field: "unitPrice", Message: "must not be negative"})
			continue
		}

		rate := line.TaxRate
		if line.TaxCode != "" {
			resolved, err := rates.Rate(line.TaxCode)
			if err != nil {
				errs = append(errs, ValidationError{Line: n, Field: "taxCode", Message: fmt.Sprintf("unknown tax code %q", line.TaxCode)})
				continue
			}
			rate = resolved
			line.TaxRate = resolved
		}

		lineAmount := money.RoundCents(line.Quantity.Mul(line.UnitPrice))
		taxAmount := money.RoundCents(lineAmount.Mul(rate).Div(decimal.NewFromInt(100)))

		if !line.LineAmount.IsZero() && !line.LineAmount.Equal(lineAmount) {
			errs = append(errs, ValidationError{
				Line:    n,
				Field:   "lineAmount",
				Message: fmt.Sprintf("claimed %s, computed %s", line.LineAmount.StringFixed(2), lineAmount.StringFixed(2)),
			})
		}
		if !line.TaxAmount.IsZero() && !line.TaxAmount.Equal(taxAmount) {
			errs = append(errs, ValidationError{
				Line:    n,
				Field:   "taxAmount",
				Message: fmt.Sprintf("claimed %s, computed %s", line.TaxAmount.StringFixed(2), taxAmount.StringFixed(2)),
			})
		}

		line.LineAmount = lineAmount
		line.TaxAmount = taxAmount
		subtotal = money.Add(subtotal, lineAmount)
		taxTotal = money.Add(taxTotal, taxAmount)
	}

	grandTotal := money.Add(subtotal, taxTotal)

	if !inv.GrandTotal.IsZero() && !inv.GrandTotal.Equal(grandTotal) && len(errs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "grandTotal",
			Message: fmt.Sprintf("claimed %s, computed %s", inv.GrandTotal.StringFixed(2), grandTotal.StringFixed(2)),
		})
	}

	inv.Subtotal = subtotal
	inv.TaxTotal = taxTotal
	inv.GrandTotal = grandTotal

	return errs
}

// StaticRates is a TaxRateResolver over a fixed code->percent table.
type StaticRates map[string]decimal.Decimal

// Rate implements TaxRateResolver.
func (s StaticRates) Rate(taxCode string) (decimal.Decimal, error) {
	rate, ok := s[taxCode]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for tax code %q", taxCode)
	}
	return rate, nil
}
