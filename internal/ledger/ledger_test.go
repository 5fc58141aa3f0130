package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giglane/internal/money"
)

func TestRemainingIsStable(t *testing.T) {
	l := Ledger{Total: 100000, Allocated: 65000}
	first := l.Remaining()
	assert.Equal(t, first, l.Remaining())
	assert.Equal(t, money.Cents(35000), first)
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		allocated money.Cents
		want      Tier
	}{
		{65000, TierHealthy},   // remaining 350.00 = 35%
		{70000, TierHealthy},   // remaining 300.00 = exactly 30%
		{75000, TierWarning},   // remaining 250.00 = 25%
		{99999, TierWarning},   // remaining 0.01
		{100000, TierExhausted},
		{120000, TierExhausted}, // overshot
	}
	for _, tc := range cases {
		l := Ledger{Total: 100000, Allocated: tc.allocated}
		assert.Equal(t, tc.want, l.Tier(), "allocated=%d", tc.allocated)
	}
}

func TestTierZeroTotal(t *testing.T) {
	assert.Equal(t, TierExhausted, Ledger{}.Tier())
}

func TestWouldExceed(t *testing.T) {
	l := Ledger{Total: 50000, Allocated: 45000}
	assert.True(t, l.WouldExceed(10000))
	assert.False(t, l.WouldExceed(5000))
	assert.False(t, l.WouldExceed(4000))
}

func TestCheckCarriesOverage(t *testing.T) {
	l := Ledger{Total: 50000, Allocated: 45000}
	err := l.Check(10000)
	require.Error(t, err)
	var ex *ExceededError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, money.Cents(5000), ex.Remaining)
	assert.Equal(t, money.Cents(10000), ex.Proposed)
	assert.Equal(t, money.Cents(5000), ex.OverBy)

	// rejection does not mutate the snapshot
	assert.Equal(t, money.Cents(45000), l.Allocated)
	require.NoError(t, l.Check(4000))
}

func TestCustomWarnPct(t *testing.T) {
	l := Ledger{Total: 1000, Allocated: 850, WarnPct: 10}
	assert.Equal(t, TierHealthy, l.Tier())
	l.WarnPct = 20
	assert.Equal(t, TierWarning, l.Tier())
}
