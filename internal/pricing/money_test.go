package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/pricing"
)

func TestApplyBpsTruncates(t *testing.T) {
	require.Equal(t, int64(0), pricing.ApplyBps(0, 1000))
	require.Equal(t, int64(0), pricing.ApplyBps(999, 0))
	require.Equal(t, int64(99), pricing.ApplyBps(999, 1000))
	require.Equal(t, int64(333), pricing.ApplyBps(10000, 333))
	// 1 cent at 15% floors to zero
	require.Equal(t, int64(0), pricing.ApplyBps(1, 1500))
}

func TestClampDiscount(t *testing.T) {
	require.Equal(t, int64(0), pricing.ClampDiscount(-5, 100))
	require.Equal(t, int64(100), pricing.ClampDiscount(150, 100))
	require.Equal(t, int64(80), pricing.ClampDiscount(80, 100))
}

func TestUnitPointsCap(t *testing.T) {
	// not eligible
	require.Equal(t, int64(0), pricing.UnitPointsCap(5000, 100, false))
	// capped by price: 50.00 is 50 whole units
	require.Equal(t, int64(50), pricing.UnitPointsCap(5000, 100, true))
	// capped by configured points price
	require.Equal(t, int64(20), pricing.UnitPointsCap(5000, 20, true))
	// sub-unit price floors to zero regardless of config
	require.Equal(t, int64(0), pricing.UnitPointsCap(99, 10, true))
	require.Equal(t, int64(0), pricing.UnitPointsCap(5000, 0, true))
}

func TestRemainingFloorsAtZero(t *testing.T) {
	require.Equal(t, int64(400), pricing.Remaining(1000, 100, 5))
	require.Equal(t, int64(0), pricing.Remaining(1000, 0, 10))
	require.Equal(t, int64(0), pricing.Remaining(1000, 500, 10))
}
