package papertrade

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Record is the plain exchange form of one ledger entry, the boundary
// contract exposed to a persistence collaborator. Timestamps are ISO-8601
// strings, monetary values and quantities are decimal strings: no binary
// types cross the boundary.
type Record struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	Kind             Kind   `json:"kind"`
	Symbol           string `json:"symbol,omitempty"`
	Quantity         string `json:"quantity,omitempty"`
	UnitPrice        string `json:"unitPrice,omitempty"`
	CashDelta        string `json:"cashDelta"`
	CashBalanceAfter string `json:"cashBalanceAfter"`
	Currency         string `json:"currency"`
	Note             string `json:"note,omitempty"`
}

// MarshalJSON writes the record fields in a stable, canonical order.
func (r Record) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", r.ID)
	w.Append("timestamp", r.Timestamp)
	w.Append("kind", r.Kind)
	w.Optional("symbol", r.Symbol)
	w.Optional("quantity", r.Quantity)
	w.Optional("unitPrice", r.UnitPrice)
	w.Append("cashDelta", r.CashDelta)
	w.Append("cashBalanceAfter", r.CashBalanceAfter)
	w.Append("currency", r.Currency)
	w.Optional("note", r.Note)
	return w.MarshalJSON()
}

// toRecord converts an entry into its exchange form.
func toRecord(e Entry, currency string) Record {
	r := Record{
		ID:               e.ID(),
		Timestamp:        e.When().UTC().Format(time.RFC3339Nano),
		Kind:             e.Kind(),
		CashDelta:        e.CashDelta().StringFixed(),
		CashBalanceAfter: e.BalanceAfter().StringFixed(),
		Currency:         currency,
		Note:             e.Note(),
	}
	switch v := e.(type) {
	case Buy:
		r.Symbol, r.Quantity, r.UnitPrice = v.Symbol(), v.Quantity().String(), v.UnitPrice().StringFixed()
	case Sell:
		r.Symbol, r.Quantity, r.UnitPrice = v.Symbol(), v.Quantity().String(), v.UnitPrice().StringFixed()
	}
	return r
}

// fromRecord rebuilds the entry a record describes, preserving its original
// id. The cash delta is recomputed from the entry's own fields and checked
// against the record, so a corrupted record cannot smuggle in a drifted
// delta.
func fromRecord(r Record, currency string) (Entry, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("record has no id")
	}
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("record %s: invalid timestamp %q: %w", r.ID, r.Timestamp, err)
	}
	delta, err := ParseMoney(r.CashDelta, currency)
	if err != nil {
		return nil, fmt.Errorf("record %s: invalid cash delta %q: %w", r.ID, r.CashDelta, err)
	}

	var e Entry
	switch r.Kind {
	case KindDeposit:
		if !delta.IsPositive() {
			return nil, fmt.Errorf("record %s: deposit cash delta must be positive, got %s", r.ID, r.CashDelta)
		}
		e = Deposit{baseEntry: baseEntry{id: r.ID, ts: ts.UTC(), note: r.Note, delta: delta}, amount: delta}
	case KindWithdraw:
		if !delta.IsNegative() {
			return nil, fmt.Errorf("record %s: withdraw cash delta must be negative, got %s", r.ID, r.CashDelta)
		}
		e = Withdraw{baseEntry: baseEntry{id: r.ID, ts: ts.UTC(), note: r.Note, delta: delta}, amount: delta.Neg()}
	case KindBuy, KindSell:
		quantity, err := ParseQuantity(r.Quantity)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid quantity %q: %w", r.ID, r.Quantity, err)
		}
		price, err := ParseMoney(r.UnitPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid unit price %q: %w", r.ID, r.UnitPrice, err)
		}
		// A record is untrusted input: the same shape rules the
		// constructors enforce apply here, so replay never sees a trade
		// with a zero quantity or a missing symbol.
		if err := validateTradeShape(r.Symbol, quantity, price); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		trade := tradeEntry{
			baseEntry: baseEntry{id: r.ID, ts: ts.UTC(), note: r.Note, delta: delta},
			symbol:    normalizeSymbol(r.Symbol),
			quantity:  quantity,
			unitPrice: price,
		}
		cost := price.Mul(quantity).Round()
		if r.Kind == KindBuy {
			trade.delta = cost.Neg()
			e = Buy{trade}
		} else {
			trade.delta = cost
			e = Sell{trade}
		}
		if !e.CashDelta().Equal(delta) {
			return nil, fmt.Errorf("record %s: cash delta %s does not match %s x %s",
				r.ID, r.CashDelta, r.Quantity, r.UnitPrice)
		}
	default:
		return nil, fmt.Errorf("record %s: unknown entry kind %q", r.ID, r.Kind)
	}
	return e, nil
}

// ExportState converts the ledger into its ordered sequence of exchange
// records.
func ExportState(l *Ledger) []Record {
	records := make([]Record, 0, l.Len())
	for _, e := range l.Entries() {
		records = append(records, toRecord(e, l.currency))
	}
	return records
}

// ImportState reconstructs a ledger from exchange records. The records must
// be in their exported order; importing replays the same append discipline,
// so an out-of-order sequence fails with ErrOutOfOrderEntry and a record
// whose audited balance breaks the conservation chain is rejected. The
// reconstructed ledger reproduces identical replay results for every prefix.
func ImportState(records []Record) (*Ledger, error) {
	currency := "USD"
	if len(records) > 0 && records[0].Currency != "" {
		currency = records[0].Currency
	}
	l := NewLedger(currency)
	for i, r := range records {
		e, err := fromRecord(r, currency)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		sealed, err := l.Append(e)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		want, err := ParseMoney(r.CashBalanceAfter, currency)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): invalid balance %q: %w", i, r.ID, r.CashBalanceAfter, err)
		}
		if !sealed.BalanceAfter().Equal(want) {
			return nil, fmt.Errorf("record %d (%s): balance %s breaks the conservation chain, replay gives %s",
				i, r.ID, r.CashBalanceAfter, sealed.BalanceAfter().StringFixed())
		}
	}
	return l, nil
}

// EncodeLedger persists the ledger to an io.Writer in JSONL format, one
// record per line, in ledger order.
func EncodeLedger(w io.Writer, l *Ledger) error {
	for _, r := range ExportState(l) {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", r.ID, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}
	return nil
}

// DecodeLedger reads JSONL records from an io.Reader and reconstructs the
// ledger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("could not decode record line %q: %w", string(line), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return ImportState(records)
}

// NewAccountFromRecords reconstructs an account from exported records. The
// account currency follows the records.
func NewAccountFromRecords(owner string, records []Record, opts ...Option) (*Account, error) {
	a := NewAccount(owner, opts...)
	if len(records) == 0 {
		return a, nil
	}
	l, err := ImportState(records)
	if err != nil {
		return nil, err
	}
	a.currency = l.Currency()
	a.ledger = l
	return a, nil
}
