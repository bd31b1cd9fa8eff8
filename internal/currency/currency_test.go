package currency

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRate(t *testing.T) {
	fx := Static{"USD/EUR": decimal.NewFromFloat(0.92)}
	ctx := context.Background()
	now := time.Now()

	rate, err := fx.Rate(ctx, "USD", "EUR", now)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.92)))

	// Identical currencies never need a table entry.
	rate, err = fx.Rate(ctx, "JPY", "JPY", now)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	// Rates are directional; the inverse is not derived.
	_, err = fx.Rate(ctx, "EUR", "USD", now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversion)
}

func TestIdentityRate(t *testing.T) {
	rate, err := Identity{}.Rate(context.Background(), "USD", "EUR", time.Now())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}
