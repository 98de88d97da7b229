package papertrade

import (
	"fmt"
	"iter"
	"time"
)

// Ledger exclusively owns the ordered entry sequence of one account.
//
// Entries are kept in non-decreasing timestamp order with insertion order
// breaking ties. The insertion discipline is strictly append-only: a
// backdated entry is rejected with ErrOutOfOrderEntry, and the sequence is
// never re-sorted. All derived state is recomputed by replay (see replay.go);
// the ledger caches nothing that could drift from the entry sequence.
type Ledger struct {
	currency string
	entries  []Entry
}

// NewLedger creates an empty ledger whose cash is denominated in currency.
func NewLedger(currency string) *Ledger {
	if currency == "" {
		currency = "USD"
	}
	return &Ledger{currency: currency, entries: make([]Entry, 0)}
}

// Currency returns the ledger's cash currency.
func (l *Ledger) Currency() string { return l.currency }

// Len returns the number of recorded entries.
func (l *Ledger) Len() int { return len(l.entries) }

// LastEntryTime returns the timestamp of the newest entry, and false if the
// ledger is empty.
func (l *Ledger) LastEntryTime() (time.Time, bool) {
	if len(l.entries) == 0 {
		return time.Time{}, false
	}
	return l.entries[len(l.entries)-1].When(), true
}

// lastBalance is the audited cash balance after the newest entry.
func (l *Ledger) lastBalance() Money {
	if len(l.entries) == 0 {
		return M(0, l.currency)
	}
	return l.entries[len(l.entries)-1].BalanceAfter()
}

// Append records an entry at the end of the ledger. The entry's timestamp
// must not precede the last recorded entry's, otherwise the append fails with
// ErrOutOfOrderEntry and the ledger is left untouched.
//
// Append seals the entry's audited balance as the previous balance plus the
// entry's cash delta, and returns the sealed entry. The append is atomic:
// either the sealed entry is fully recorded, or nothing is.
func (l *Ledger) Append(e Entry) (Entry, error) {
	if last, ok := l.LastEntryTime(); ok && e.When().Before(last) {
		return nil, fmt.Errorf("%w: entry at %s predates last entry at %s",
			ErrOutOfOrderEntry, e.When().Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}
	sealed := e.sealBalance(l.lastBalance().Add(e.CashDelta()).in(l.currency))
	l.entries = append(l.entries, sealed)
	return sealed, nil
}

// Entries returns an iterator over entries in ledger order, yielding the
// insertion index and the entry. With no filters every entry is yielded;
// otherwise an entry is yielded when it matches all filters.
func (l *Ledger) Entries(filters ...func(Entry) bool) iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range l.entries {
			accept := true
			for _, filter := range filters {
				if !filter(e) {
					accept = false
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, e) {
				return
			}
		}
	}
}

// ByKind returns a predicate that keeps entries of any of the given kinds.
func ByKind(kinds ...Kind) func(Entry) bool {
	return func(e Entry) bool {
		for _, k := range kinds {
			if e.Kind() == k {
				return true
			}
		}
		return false
	}
}

// BySymbol returns a predicate that keeps trade entries for the given symbol.
// Cash entries never match.
func BySymbol(symbol string) func(Entry) bool {
	return func(e Entry) bool {
		switch v := e.(type) {
		case Buy:
			return v.Symbol() == normalizeSymbol(symbol)
		case Sell:
			return v.Symbol() == normalizeSymbol(symbol)
		default:
			return false
		}
	}
}

// Between returns a predicate that keeps entries with start <= timestamp <=
// end. A zero bound is unbounded on that side.
func Between(start, end time.Time) func(Entry) bool {
	return func(e Entry) bool {
		if !start.IsZero() && e.When().Before(start) {
			return false
		}
		if !end.IsZero() && e.When().After(end) {
			return false
		}
		return true
	}
}
