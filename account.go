package papertrade

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Basis selects the reference capital against which profit/loss is measured.
type Basis int

const (
	// Initial measures against the amount of the first deposit ever
	// recorded, regardless of later deposits or withdrawals.
	Initial Basis = iota
	// NetInvested measures against total deposits minus total withdrawals
	// up to the query time.
	NetInvested
)

func (b Basis) String() string {
	switch b {
	case Initial:
		return "initial"
	case NetInvested:
		return "net-invested"
	default:
		return "unknown"
	}
}

// PnL is the profit/loss breakdown of an account at a point in time.
type PnL struct {
	Realized   Money // locked in by completed sells
	Unrealized Money // paper profit on held shares at market price
	Total      Money
}

// Account is the single logical owner of one ledger. Every mutation goes
// through its serialized critical section: the lock covers the
// validate-then-append sequence and any read that needs a consistent
// snapshot, and nothing else. Price resolution, a potentially slow external
// call, always happens outside the lock.
type Account struct {
	owner    string
	currency string

	mu     sync.Mutex
	ledger *Ledger

	provider   PriceProvider
	logger     *zap.Logger
	now        func() time.Time
	fractional bool
}

// Option configures an Account at construction.
type Option func(*Account)

// WithProvider sets the price provider used to resolve trade prices and
// valuations when no explicit price is given.
func WithProvider(p PriceProvider) Option { return func(a *Account) { a.provider = p } }

// WithLogger sets the logger for recorded mutations. The default is a nop
// logger.
func WithLogger(l *zap.Logger) Option { return func(a *Account) { a.logger = l } }

// WithCurrency sets the account currency. The default is USD.
func WithCurrency(currency string) Option { return func(a *Account) { a.currency = currency } }

// FractionalShares allows or forbids fractional trade quantities. Whole
// shares only is the default policy.
func FractionalShares(allowed bool) Option { return func(a *Account) { a.fractional = allowed } }

// WithClock overrides the time source used for entries recorded without an
// explicit timestamp. Meant for tests.
func WithClock(now func() time.Time) Option { return func(a *Account) { a.now = now } }

// NewAccount creates an empty account for the given owner.
func NewAccount(owner string, opts ...Option) *Account {
	a := &Account{
		owner:    owner,
		currency: "USD",
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ledger = NewLedger(a.currency)
	return a
}

// NewFundedAccount creates an account and records an opening deposit.
func NewFundedAccount(owner string, initial Money, opts ...Option) (*Account, error) {
	a := NewAccount(owner, opts...)
	if _, err := a.Deposit(initial, WithNote("initial deposit")); err != nil {
		return nil, err
	}
	return a, nil
}

// Owner returns the account owner's identifier.
func (a *Account) Owner() string { return a.owner }

// Currency returns the account's cash currency.
func (a *Account) Currency() string { return a.currency }

// txOptions are the optional per-operation arguments of a mutation.
type txOptions struct {
	ts        time.Time
	defaulted bool // ts came from the account clock, not an explicit At
	note      string
	price     Money
	hasPrice  bool
}

// TxOption customizes a single deposit, withdrawal, buy or sell.
type TxOption func(*txOptions)

// At sets the logical timestamp of the entry. Without it the account clock is
// used. The timestamp must not precede the last recorded entry.
func At(ts time.Time) TxOption { return func(o *txOptions) { o.ts = ts } }

// WithNote attaches a free-text note to the entry.
func WithNote(note string) TxOption { return func(o *txOptions) { o.note = note } }

// AtPrice overrides the provider and applies an explicit unit price to a buy
// or sell.
func AtPrice(price Money) TxOption {
	return func(o *txOptions) { o.price, o.hasPrice = price, true }
}

func (a *Account) applyTxOptions(opts []TxOption) txOptions {
	o := txOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ts.IsZero() {
		o.ts = a.now()
		o.defaulted = true
	}
	o.ts = o.ts.UTC()
	return o
}

// effectiveTime finalizes a mutation's timestamp. A clock-defaulted timestamp
// is clamped to the last recorded entry's, so concurrent mutations racing the
// clock never trip the append-order check; an explicit At timestamp is left
// alone and subject to it. Must be called with the lock held.
func (a *Account) effectiveTime(o txOptions) time.Time {
	if !o.defaulted {
		return o.ts
	}
	if last, ok := a.ledger.LastEntryTime(); ok && o.ts.Before(last) {
		return last
	}
	return o.ts
}

// checkAmount stamps a currency-less amount with the account currency and
// rejects amounts denominated in any other currency.
func (a *Account) checkAmount(amount Money) (Money, error) {
	amount = amount.in(a.currency)
	if amount.Currency() != a.currency {
		return Money{}, fmt.Errorf("%w: %s amount on a %s account", ErrCurrencyMismatch, amount.Currency(), a.currency)
	}
	return amount, nil
}

// checkQuantity enforces the quantity policy: strictly positive, and whole
// unless the account allows fractional shares.
func (a *Account) checkQuantity(quantity Quantity) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidAmount, quantity)
	}
	if !a.fractional && !quantity.IsWhole() {
		return fmt.Errorf("%w: fractional quantity %s on a whole-share account", ErrInvalidAmount, quantity)
	}
	return nil
}

// resolvePrice determines the unit price for a trade: the explicit AtPrice
// argument when present, the provider otherwise. It is always called before
// entering the critical section so the lock is never held across a provider
// call.
func (a *Account) resolvePrice(symbol string, o txOptions) (Money, error) {
	if o.hasPrice {
		return a.checkAmount(o.price)
	}
	if a.provider == nil {
		return Money{}, fmt.Errorf("%w: %s: no price provider configured", ErrPriceUnavailable, normalizeSymbol(symbol))
	}
	price, err := a.provider.Price(symbol, o.ts)
	if err != nil {
		return Money{}, err
	}
	return a.checkAmount(price)
}

// Deposit records cash entering the account and returns the created entry.
// It fails with ErrInvalidAmount unless the amount is strictly positive.
func (a *Account) Deposit(amount Money, opts ...TxOption) (Deposit, error) {
	o := a.applyTxOptions(opts)
	amt, err := a.checkAmount(amount)
	if err != nil {
		return Deposit{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := NewDeposit(a.effectiveTime(o), amt, o.note)
	if err != nil {
		return Deposit{}, err
	}
	sealed, err := a.ledger.Append(e)
	if err != nil {
		return Deposit{}, err
	}
	dep := sealed.(Deposit)
	a.logger.Info("deposit",
		zap.String("id", dep.ID()),
		zap.Time("ts", dep.When()),
		zap.String("amount", dep.Amount().StringFixed()),
		zap.String("cash_after", dep.BalanceAfter().StringFixed()))
	return dep, nil
}

// Withdraw records cash leaving the account and returns the created entry.
// It fails with ErrInsufficientFunds when the replayed cash balance as of the
// operation's effective timestamp cannot cover the amount: no overdraft,
// ever.
func (a *Account) Withdraw(amount Money, opts ...TxOption) (Withdraw, error) {
	o := a.applyTxOptions(opts)
	amt, err := a.checkAmount(amount)
	if err != nil {
		return Withdraw{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := NewWithdraw(a.effectiveTime(o), amt, o.note)
	if err != nil {
		return Withdraw{}, err
	}
	cash := a.ledger.ReplayAsOf(e.When()).Cash
	if cash.LessThan(e.Amount()) {
		return Withdraw{}, fmt.Errorf("%w: cannot withdraw %s, cash balance is %s",
			ErrInsufficientFunds, e.Amount().StringFixed(), cash.StringFixed())
	}
	sealed, err := a.ledger.Append(e)
	if err != nil {
		return Withdraw{}, err
	}
	wd := sealed.(Withdraw)
	a.logger.Info("withdraw",
		zap.String("id", wd.ID()),
		zap.Time("ts", wd.When()),
		zap.String("amount", wd.Amount().StringFixed()),
		zap.String("cash_after", wd.BalanceAfter().StringFixed()))
	return wd, nil
}

// Buy purchases quantity shares of symbol and returns the created entry. The
// unit price comes from AtPrice or the provider (ErrPriceUnavailable
// propagates). It fails with ErrInsufficientFunds when the replayed cash
// balance cannot cover the cost.
func (a *Account) Buy(symbol string, quantity Quantity, opts ...TxOption) (Buy, error) {
	o := a.applyTxOptions(opts)
	if err := a.checkQuantity(quantity); err != nil {
		return Buy{}, err
	}
	price, err := a.resolvePrice(symbol, o)
	if err != nil {
		return Buy{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := NewBuy(a.effectiveTime(o), symbol, quantity, price, o.note)
	if err != nil {
		return Buy{}, err
	}
	cash := a.ledger.ReplayAsOf(e.When()).Cash
	if cost := e.Cost(); cash.LessThan(cost) {
		return Buy{}, fmt.Errorf("%w: cannot buy %s %s for %s, cash balance is %s",
			ErrInsufficientFunds, quantity, e.Symbol(), cost.StringFixed(), cash.StringFixed())
	}
	sealed, err := a.ledger.Append(e)
	if err != nil {
		return Buy{}, err
	}
	buy := sealed.(Buy)
	a.logger.Info("buy",
		zap.String("id", buy.ID()),
		zap.Time("ts", buy.When()),
		zap.String("symbol", buy.Symbol()),
		zap.String("quantity", buy.Quantity().String()),
		zap.String("unit_price", buy.UnitPrice().StringFixed()),
		zap.String("cash_after", buy.BalanceAfter().StringFixed()))
	return buy, nil
}

// Sell disposes of quantity shares of symbol and returns the created entry.
// It fails with ErrInsufficientShares when the replayed position as of the
// operation's effective timestamp holds fewer shares than requested.
func (a *Account) Sell(symbol string, quantity Quantity, opts ...TxOption) (Sell, error) {
	o := a.applyTxOptions(opts)
	if err := a.checkQuantity(quantity); err != nil {
		return Sell{}, err
	}
	price, err := a.resolvePrice(symbol, o)
	if err != nil {
		return Sell{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := NewSell(a.effectiveTime(o), symbol, quantity, price, o.note)
	if err != nil {
		return Sell{}, err
	}
	held := a.ledger.ReplayAsOf(e.When()).Position(e.Symbol()).Quantity
	if held.LessThan(quantity) {
		return Sell{}, fmt.Errorf("%w: cannot sell %s %s, position is only %s",
			ErrInsufficientShares, quantity, e.Symbol(), held)
	}
	sealed, err := a.ledger.Append(e)
	if err != nil {
		return Sell{}, err
	}
	sell := sealed.(Sell)
	a.logger.Info("sell",
		zap.String("id", sell.ID()),
		zap.Time("ts", sell.When()),
		zap.String("symbol", sell.Symbol()),
		zap.String("quantity", sell.Quantity().String()),
		zap.String("unit_price", sell.UnitPrice().StringFixed()),
		zap.String("cash_after", sell.BalanceAfter().StringFixed()))
	return sell, nil
}

// --- queries ---

// stateAsOf takes a consistent snapshot of the replayed state. The lock is
// released before the snapshot is returned, so callers can value it against
// a slow provider without blocking writers.
func (a *Account) stateAsOf(at time.Time) AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.ReplayAsOf(at)
}

// State returns the full replayed account state at the given time. A zero
// time means "now" (every recorded entry).
func (a *Account) State(at time.Time) AccountState { return a.stateAsOf(at) }

// CashBalance returns the cash balance at the given time. A zero time means
// "now".
func (a *Account) CashBalance(at time.Time) Money { return a.stateAsOf(at).Cash }

// Holdings returns the positions with a strictly positive quantity at the
// given time. A zero time means "now".
func (a *Account) Holdings(at time.Time) map[string]Position {
	return a.stateAsOf(at).Holdings()
}

// Position returns the state of a single symbol at the given time, zero
// valued if never traded. A zero time means "now".
func (a *Account) Position(symbol string, at time.Time) Position {
	return a.stateAsOf(at).Position(symbol)
}

// pickProvider returns the explicit provider when given, the account's
// otherwise.
func (a *Account) pickProvider(p PriceProvider) PriceProvider {
	if p != nil {
		return p
	}
	return a.provider
}

// valueHoldings prices every held position of a snapshot. Missing prices are
// an error, never an implicit zero.
func (a *Account) valueHoldings(state AccountState, at time.Time, provider PriceProvider) (Money, error) {
	p := a.pickProvider(provider)
	total := M(0, a.currency)
	for sym, pos := range state.Holdings() {
		if p == nil {
			return Money{}, fmt.Errorf("%w: %s: no price provider configured", ErrPriceUnavailable, sym)
		}
		price, err := p.Price(sym, at)
		if err != nil {
			return Money{}, err
		}
		total = total.Add(price.Mul(pos.Quantity).Round())
	}
	return total, nil
}

// PortfolioValue returns cash plus the market value of every held position
// at the given time. A nil provider falls back to the account's provider; a
// zero time means "now". It fails with ErrPriceUnavailable if any held
// symbol's price cannot be resolved.
func (a *Account) PortfolioValue(at time.Time, provider PriceProvider) (Money, error) {
	state := a.stateAsOf(at)
	value, err := a.valueHoldings(state, at, provider)
	if err != nil {
		return Money{}, err
	}
	return state.Cash.Add(value), nil
}

// ProfitLoss returns portfolio value minus the reference capital selected by
// basis. Basis Initial fails with ErrNoInitialDeposit when no deposit was
// ever recorded.
func (a *Account) ProfitLoss(basis Basis, at time.Time, provider PriceProvider) (Money, error) {
	a.mu.Lock()
	state := a.ledger.ReplayAsOf(at)
	deposits, withdrawals := a.ledger.totalsAsOf(at)
	a.mu.Unlock()

	value, err := a.valueHoldings(state, at, provider)
	if err != nil {
		return Money{}, err
	}
	value = state.Cash.Add(value)

	var base Money
	switch basis {
	case Initial:
		if !state.Funded {
			return Money{}, fmt.Errorf("%w: basis %s requires a recorded deposit", ErrNoInitialDeposit, basis)
		}
		base = state.InitialDeposit
	case NetInvested:
		base = deposits.Sub(withdrawals)
	default:
		return Money{}, fmt.Errorf("unknown profit/loss basis %d", basis)
	}
	return value.Sub(base), nil
}

// PnLBreakdown splits profit/loss into realized (from completed sells) and
// unrealized (held positions marked at market price).
func (a *Account) PnLBreakdown(at time.Time, provider PriceProvider) (PnL, error) {
	state := a.stateAsOf(at)
	p := a.pickProvider(provider)

	unrealized := M(0, a.currency)
	for sym, pos := range state.Holdings() {
		if p == nil {
			return PnL{}, fmt.Errorf("%w: %s: no price provider configured", ErrPriceUnavailable, sym)
		}
		price, err := p.Price(sym, at)
		if err != nil {
			return PnL{}, err
		}
		unrealized = unrealized.Add(price.Sub(pos.AvgCost).Mul(pos.Quantity).Round())
	}
	return PnL{
		Realized:   state.RealizedPnLTotal,
		Unrealized: unrealized,
		Total:      state.RealizedPnLTotal.Add(unrealized),
	}, nil
}

// TotalDeposits returns the sum of all deposits up to the given time.
func (a *Account) TotalDeposits(at time.Time) Money {
	a.mu.Lock()
	defer a.mu.Unlock()
	deposits, _ := a.ledger.totalsAsOf(at)
	return deposits
}

// TotalWithdrawals returns the sum of all withdrawals up to the given time,
// as a positive amount.
func (a *Account) TotalWithdrawals(at time.Time) Money {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, withdrawals := a.ledger.totalsAsOf(at)
	return withdrawals
}

// Entries returns the recorded entries matching every filter, in ledger
// order. The returned slice is a consistent snapshot; entries themselves are
// immutable.
func (a *Account) Entries(filters ...func(Entry) bool) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var res []Entry
	for _, e := range a.ledger.Entries(filters...) {
		res = append(res, e)
	}
	return res
}

// Export returns the ledger as plain exchange records, a consistent snapshot
// suitable for a persistence collaborator.
func (a *Account) Export() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ExportState(a.ledger)
}
