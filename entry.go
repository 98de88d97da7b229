package papertrade

import (
	"fmt"
	"strings"
	"time"
)

// Kind is a typed string identifying the variant of a ledger entry.
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindBuy      Kind = "buy"
	KindSell     Kind = "sell"
)

// Entry is the common interface of all ledger entry variants. Entries are
// immutable facts: once appended to a ledger they are never mutated or
// deleted, and corrections are made by appending offsetting entries.
//
// Variants carry only the fields that are valid for them: a Deposit cannot
// hold a symbol, a Buy cannot lack one.
type Entry interface {
	ID() string     // opaque unique identifier, assigned at creation
	When() time.Time
	Kind() Kind
	CashDelta() Money    // signed cash effect of this entry
	BalanceAfter() Money // cash balance right after this entry, cached for auditing
	Note() string

	// sealBalance returns a copy with the audited balance set. Called by
	// the ledger at append time, exactly once per entry.
	sealBalance(after Money) Entry
}

// baseEntry carries the fields common to every entry variant.
type baseEntry struct {
	id    string
	ts    time.Time
	note  string
	delta Money // positive for deposit and sell, negative for withdraw and buy
	after Money // set when the entry is appended
}

func (e baseEntry) ID() string          { return e.id }
func (e baseEntry) When() time.Time     { return e.ts }
func (e baseEntry) Note() string        { return e.note }
func (e baseEntry) CashDelta() Money    { return e.delta }
func (e baseEntry) BalanceAfter() Money { return e.after }

func newBaseEntry(ts time.Time, delta Money, note string) baseEntry {
	return baseEntry{id: newEntryID(), ts: ts.UTC(), note: note, delta: delta}
}

// tradeEntry is a component for security-based entries (buy, sell).
type tradeEntry struct {
	baseEntry
	symbol    string
	quantity  Quantity
	unitPrice Money // the price actually applied, explicit or provider-resolved
}

func (e tradeEntry) Symbol() string      { return e.symbol }
func (e tradeEntry) Quantity() Quantity  { return e.quantity }
func (e tradeEntry) UnitPrice() Money    { return e.unitPrice }
func (e tradeEntry) Cost() Money         { return e.unitPrice.Mul(e.quantity).Round() }

// normalizeSymbol canonicalizes a ticker symbol; symbols are matched
// case-insensitively throughout the package.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// validateTradeShape checks the kind-specific fields a trade entry requires.
// Business rules (sufficient cash or shares) are not checked here; they need
// replayed state and belong to the Account facade.
func validateTradeShape(symbol string, quantity Quantity, unitPrice Money) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("%w: symbol is required for a trade entry", ErrInvalidAmount)
	}
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidAmount, quantity)
	}
	if !unitPrice.IsPositive() {
		return fmt.Errorf("%w: unit price must be positive, got %s", ErrInvalidAmount, unitPrice.StringFixed())
	}
	return nil
}

// Deposit records cash entering the account.
type Deposit struct {
	baseEntry
	amount Money
}

func (e Deposit) Kind() Kind    { return KindDeposit }
func (e Deposit) Amount() Money { return e.amount }

func (e Deposit) sealBalance(after Money) Entry { e.after = after; return e }

// NewDeposit constructs a deposit entry. Construction is pure: it only
// validates the entry's shape (a strictly positive amount) and assigns a
// fresh id.
func NewDeposit(ts time.Time, amount Money, note string) (Deposit, error) {
	if !amount.IsPositive() {
		return Deposit{}, fmt.Errorf("%w: deposit amount must be positive, got %s", ErrInvalidAmount, amount.StringFixed())
	}
	amt := amount.Round()
	return Deposit{baseEntry: newBaseEntry(ts, amt, note), amount: amt}, nil
}

// Withdraw records cash leaving the account.
type Withdraw struct {
	baseEntry
	amount Money
}

func (e Withdraw) Kind() Kind    { return KindWithdraw }
func (e Withdraw) Amount() Money { return e.amount }

func (e Withdraw) sealBalance(after Money) Entry { e.after = after; return e }

// NewWithdraw constructs a withdrawal entry. Shape validation only: whether
// the account holds enough cash is checked against replayed state by the
// Account facade.
func NewWithdraw(ts time.Time, amount Money, note string) (Withdraw, error) {
	if !amount.IsPositive() {
		return Withdraw{}, fmt.Errorf("%w: withdraw amount must be positive, got %s", ErrInvalidAmount, amount.StringFixed())
	}
	amt := amount.Round()
	return Withdraw{baseEntry: newBaseEntry(ts, amt.Neg(), note), amount: amt}, nil
}

// Buy records the purchase of a quantity of a symbol at a unit price.
// Its cash delta is the negated total cost, rounded once to the money scale.
type Buy struct {
	tradeEntry
}

func (e Buy) Kind() Kind { return KindBuy }

func (e Buy) sealBalance(after Money) Entry { e.after = after; return e }

// NewBuy constructs a buy entry for quantity shares of symbol at unitPrice.
// The symbol is normalized to upper case.
func NewBuy(ts time.Time, symbol string, quantity Quantity, unitPrice Money, note string) (Buy, error) {
	if err := validateTradeShape(symbol, quantity, unitPrice); err != nil {
		return Buy{}, err
	}
	price := unitPrice.Round()
	cost := price.Mul(quantity).Round()
	return Buy{tradeEntry{
		baseEntry: newBaseEntry(ts, cost.Neg(), note),
		symbol:    normalizeSymbol(symbol),
		quantity:  quantity,
		unitPrice: price,
	}}, nil
}

// Sell records the sale of a quantity of a symbol at a unit price.
// Its cash delta is the total proceeds, rounded once to the money scale.
type Sell struct {
	tradeEntry
}

func (e Sell) Kind() Kind { return KindSell }

func (e Sell) sealBalance(after Money) Entry { e.after = after; return e }

// NewSell constructs a sell entry. Shape validation only; sufficient shares
// are checked by the Account facade against replayed state.
func NewSell(ts time.Time, symbol string, quantity Quantity, unitPrice Money, note string) (Sell, error) {
	if err := validateTradeShape(symbol, quantity, unitPrice); err != nil {
		return Sell{}, err
	}
	price := unitPrice.Round()
	proceeds := price.Mul(quantity).Round()
	return Sell{tradeEntry{
		baseEntry: newBaseEntry(ts, proceeds, note),
		symbol:    normalizeSymbol(symbol),
		quantity:  quantity,
		unitPrice: price,
	}}, nil
}
