package papertrade

import (
	"time"
)

// AccountState is the full derived state of an account at a point in time.
// It is a value owned by the caller: replay hands out a fresh one every time,
// so it can never drift from the ledger it was computed from.
type AccountState struct {
	AsOf             time.Time
	Cash             Money
	Positions        map[string]Position // by symbol, flat positions retained for their realized P&L
	InitialDeposit   Money               // amount of the first deposit ever appended
	Funded           bool                // whether any deposit has been recorded
	RealizedPnLTotal Money
}

// Position returns the state of a single symbol, or a zero position if the
// symbol was never traded.
func (s AccountState) Position(symbol string) Position {
	sym := normalizeSymbol(symbol)
	if p, ok := s.Positions[sym]; ok {
		return p
	}
	cur := s.Cash.Currency()
	return Position{Symbol: sym, AvgCost: M(0, cur), RealizedPnL: M(0, cur)}
}

// Holdings returns the positions with a strictly positive quantity.
func (s AccountState) Holdings() map[string]Position {
	held := make(map[string]Position, len(s.Positions))
	for sym, p := range s.Positions {
		if p.Quantity.IsPositive() {
			held[sym] = p
		}
	}
	return held
}

// Replay reconstructs the current account state by folding every entry.
func (l *Ledger) Replay() AccountState {
	return l.ReplayAsOf(time.Time{})
}

// ReplayAsOf reconstructs the account state at the given timestamp by folding
// every entry with a timestamp at or before it, in ledger order (ties on the
// timestamp are resolved by insertion order, never re-sorted by any other
// key). A zero timestamp means no bound.
//
// Replay starts from a zero state and is a pure function of the entry prefix:
// identical prefixes always yield identical states. It never consults a price
// provider; trades are folded at the unit price recorded on the entry.
func (l *Ledger) ReplayAsOf(at time.Time) AccountState {
	state := AccountState{
		AsOf:             at,
		Cash:             M(0, l.currency),
		Positions:        make(map[string]Position),
		InitialDeposit:   M(0, l.currency),
		RealizedPnLTotal: M(0, l.currency),
	}

	for _, e := range l.entries {
		if !at.IsZero() && e.When().After(at) {
			// The ledger is ordered, it is safe to stop here.
			break
		}
		switch v := e.(type) {
		case Deposit:
			state.Cash = state.Cash.Add(v.Amount())
			if !state.Funded {
				state.InitialDeposit = v.Amount()
				state.Funded = true
			}
		case Withdraw:
			state.Cash = state.Cash.Sub(v.Amount())
		case Buy:
			state.Cash = state.Cash.Add(v.CashDelta())
			pos := state.Position(v.Symbol())
			state.Positions[v.Symbol()] = pos.applyBuy(v.Quantity(), v.UnitPrice())
		case Sell:
			state.Cash = state.Cash.Add(v.CashDelta())
			pos := state.Position(v.Symbol())
			state.Positions[v.Symbol()] = pos.applySell(v.Quantity(), v.UnitPrice())
		}
	}

	total := M(0, l.currency)
	for _, p := range state.Positions {
		total = total.Add(p.RealizedPnL)
	}
	state.RealizedPnLTotal = total
	return state
}

// totalsAsOf sums deposits and withdrawals (as positive amounts) up to the
// given timestamp. A zero timestamp means no bound.
func (l *Ledger) totalsAsOf(at time.Time) (deposits, withdrawals Money) {
	deposits, withdrawals = M(0, l.currency), M(0, l.currency)
	for _, e := range l.entries {
		if !at.IsZero() && e.When().After(at) {
			break
		}
		switch e.Kind() {
		case KindDeposit:
			deposits = deposits.Add(e.CashDelta())
		case KindWithdraw:
			withdrawals = withdrawals.Sub(e.CashDelta())
		}
	}
	return deposits, withdrawals
}
