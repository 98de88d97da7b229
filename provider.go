package papertrade

import (
	"fmt"
	"time"
)

// PriceProvider resolves the market price of a symbol, optionally at a given
// time (a zero time means "latest"). It is a capability passed to the parts
// that need valuation, never a package-level singleton, so the core stays
// free of global state and trivially testable with a deterministic stub.
//
// Providers may be slow (network calls); the account facade always resolves
// prices outside its critical section.
type PriceProvider interface {
	// Price returns the price of one share of symbol. Unknown symbols fail
	// with an error wrapping ErrPriceUnavailable.
	Price(symbol string, at time.Time) (Money, error)
}

// PriceFunc adapts a plain function to the PriceProvider interface.
type PriceFunc func(symbol string, at time.Time) (Money, error)

func (f PriceFunc) Price(symbol string, at time.Time) (Money, error) { return f(symbol, at) }

// StaticProvider serves fixed prices from a symbol table, ignoring the
// requested time. Symbols are matched case-insensitively.
type StaticProvider struct {
	prices map[string]Money
}

// NewStaticProvider creates a provider serving the given fixed prices.
func NewStaticProvider(prices map[string]Money) *StaticProvider {
	table := make(map[string]Money, len(prices))
	for sym, price := range prices {
		table[normalizeSymbol(sym)] = price
	}
	return &StaticProvider{prices: table}
}

// ReferenceProvider returns the fixed-price provider used across the documentation
// and tests: AAPL=150.00, TSLA=700.00, GOOGL=2800.00 (USD).
func ReferenceProvider() *StaticProvider {
	return NewStaticProvider(map[string]Money{
		"AAPL":  M(150, "USD"),
		"TSLA":  M(700, "USD"),
		"GOOGL": M(2800, "USD"),
	})
}

// Price implements PriceProvider.
func (p *StaticProvider) Price(symbol string, _ time.Time) (Money, error) {
	price, ok := p.prices[normalizeSymbol(symbol)]
	if !ok {
		return Money{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, normalizeSymbol(symbol))
	}
	return price, nil
}
