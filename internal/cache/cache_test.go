package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("balance_sheet", "1", "2025-06-30", "USD", "", "")
	b := Fingerprint("balance_sheet", "1", "2025-06-30", "USD", "", "")
	assert.Equal(t, a, b)
}

func TestFingerprintDistinguishesEveryField(t *testing.T) {
	base := Fingerprint("balance_sheet", "1", "2025-06-30", "USD", "", "")
	assert.NotEqual(t, base, Fingerprint("profit_loss", "1", "2025-06-30", "USD", "", ""))
	assert.NotEqual(t, base, Fingerprint("balance_sheet", "2", "2025-06-30", "USD", "", ""))
	assert.NotEqual(t, base, Fingerprint("balance_sheet", "1", "2025-07-31", "USD", "", ""))
	assert.NotEqual(t, base, Fingerprint("balance_sheet", "1", "2025-06-30", "EUR", "", ""))
	assert.NotEqual(t, base, Fingerprint("balance_sheet", "1", "2025-06-30", "USD", "cc1", ""))
	assert.NotEqual(t, base, Fingerprint("balance_sheet", "1", "2025-06-30", "USD", "", "proj1"))
}

func TestMemoryCacheTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewMemory(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 5*time.Minute))

	got, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(6 * time.Minute)
	_, hit, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit, "entry must expire after its ttl")
}

func TestNoopAlwaysMisses(t *testing.T) {
	var c Noop
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, hit)
}
