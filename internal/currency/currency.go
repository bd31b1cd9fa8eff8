// Package currency abstracts exchange-rate lookup for presentation-
// currency conversion. A missing rate is fatal in the engine; only test
// wiring may substitute an identity converter.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrConversion wraps every rate-lookup failure so callers can match the
// whole class.
var ErrConversion = errors.New("currency conversion failed")

// Converter resolves an exchange rate between two currencies at a date.
type Converter interface {
	Rate(ctx context.Context, from, to string, date time.Time) (decimal.Decimal, error)
}

// Static resolves rates from a fixed "FROM/TO" -> rate table.
type Static map[string]decimal.Decimal

// Rate implements Converter. Identical currencies short-circuit to 1.
func (s Static) Rate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := s[from+"/"+to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate for %s/%s", ErrConversion, from, to)
	}
	return rate, nil
}

// Identity always returns rate 1. Test wiring only: production
// configurations must never fall back to it, a missing rate has to fail
// the report instead of silently defaulting.
type Identity struct{}

// Rate implements Converter.
func (Identity) Rate(context.Context, string, string, time.Time) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}
