package papertrade

import "errors"

// Failure taxonomy of the ledger core. All failures are local and synchronous:
// nothing is retried internally, and no failure ever leaves the ledger
// partially updated. Callers match with errors.Is.
var (
	// ErrInvalidAmount reports a non-positive amount or quantity, or a
	// fractional quantity on an account restricted to whole shares.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds reports that a withdrawal or purchase would
	// breach the non-negative cash invariant.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares reports a sell exceeding the quantity held as
	// of the operation's effective timestamp.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrPriceUnavailable reports that the price provider cannot resolve a
	// symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrOutOfOrderEntry reports an append whose timestamp precedes the
	// last recorded entry. The ledger is append-only and never re-sorted.
	ErrOutOfOrderEntry = errors.New("out of order entry")

	// ErrNoInitialDeposit reports a profit/loss query against the Initial
	// basis before any deposit has ever been recorded.
	ErrNoInitialDeposit = errors.New("no initial deposit")

	// ErrCurrencyMismatch reports an amount whose currency differs from
	// the account's currency. Accounts are single-currency.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)
