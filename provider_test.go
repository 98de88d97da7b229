package papertrade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProviderLookup(t *testing.T) {
	p := ReferenceProvider()

	price, err := p.Price("AAPL", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "150.00", price.StringFixed())

	// Lookups are case- and whitespace-insensitive.
	price, err = p.Price("  aapl ", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "150.00", price.StringFixed())

	_, err = p.Price("ZZZZ", time.Time{})
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestStaticProviderNormalizesTable(t *testing.T) {
	p := NewStaticProvider(map[string]Money{"msft ": M(410.50, "USD")})
	price, err := p.Price("MSFT", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "410.50", price.StringFixed())
}

func TestPriceFuncAdapter(t *testing.T) {
	var askedAt time.Time
	p := PriceFunc(func(symbol string, at time.Time) (Money, error) {
		askedAt = at
		if symbol == "AAPL" {
			return M(151.25, "USD"), nil
		}
		return Money{}, ErrPriceUnavailable
	})

	when := tick(42)
	price, err := p.Price("AAPL", when)
	require.NoError(t, err)
	assert.Equal(t, "151.25", price.StringFixed())
	assert.True(t, askedAt.Equal(when), "the requested time is forwarded")

	_, err = p.Price("TSLA", when)
	require.ErrorIs(t, err, ErrPriceUnavailable)
}
