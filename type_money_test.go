package papertrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyRound(t *testing.T) {
	testCases := []struct {
		name string
		in   float64
		want string
	}{
		{name: "no fraction", in: 150, want: "150.00"},
		{name: "already at scale", in: 12.34, want: "12.34"},
		{name: "rounds down", in: 12.344, want: "12.34"},
		{name: "rounds up", in: 12.346, want: "12.35"},
		{name: "half rounds up", in: 12.345, want: "12.35"},
		{name: "negative half rounds away from zero", in: -12.345, want: "-12.35"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := M(tc.in, "USD").Round()
			assert.Equal(t, tc.want, got.StringFixed())
		})
	}
}

func TestMoneyMulRoundsOnce(t *testing.T) {
	// 3 shares at 33.335 cost exactly 100.005; a single final rounding
	// gives 100.01. Rounding the price first would give 3*33.34 = 100.02.
	price := M(33.335, "USD")
	got := price.Mul(Q(3)).Round()
	assert.Equal(t, "100.01", got.StringFixed())
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 is famously inexact in binary floating point.
	got := M(0.1, "USD").Add(M(0.2, "USD"))
	assert.True(t, got.Equal(M(0.3, "USD")))

	sum := M(0, "USD")
	for range 10 {
		sum = sum.Add(M(0.1, "USD"))
	}
	assert.True(t, sum.Equal(M(1, "USD")))
}

func TestMoneyComparisons(t *testing.T) {
	a, b := M(10, "USD"), M(20, "USD")
	assert.True(t, a.LessThan(b))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, a.LessThanOrEqual(M(10, "USD")))
	assert.True(t, a.GreaterThanOrEqual(M(10, "USD")))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Neg().IsNegative())
	assert.True(t, M(0, "USD").IsZero())
}

func TestMoneyWeakCurrency(t *testing.T) {
	// The zero Money is currency-weak so folds can start from a neutral zero.
	var zero Money
	got := zero.Add(M(5, "USD"))
	require.Equal(t, "USD", got.Currency())

	assert.Panics(t, func() { M(1, "USD").Add(M(1, "EUR")) })
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("8500.00", "USD")
	require.NoError(t, err)
	assert.True(t, m.Equal(M(8500, "USD")))

	_, err = ParseMoney("not-a-number", "USD")
	require.Error(t, err)
}

func TestQuantityIsWhole(t *testing.T) {
	assert.True(t, Q(10).IsWhole())
	assert.True(t, Q(10.0).IsWhole())
	assert.False(t, Q(10.5).IsWhole())
}
