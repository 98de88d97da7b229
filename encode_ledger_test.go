package papertrade

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	l := sampleLedger(t)
	records := ExportState(l)
	require.Len(t, records, 5)

	restored, err := ImportState(records)
	require.NoError(t, err)
	require.Equal(t, l.Len(), restored.Len())

	// Import reproduces an identical replay for every prefix.
	for i := range l.Len() {
		at := tick(i + 1)
		want := l.ReplayAsOf(at)
		got := restored.ReplayAsOf(at)
		assert.True(t, want.Cash.Equal(got.Cash), "prefix %d cash", i)
		assert.Equal(t, len(want.Positions), len(got.Positions), "prefix %d", i)
		for sym, p := range want.Positions {
			q := got.Positions[sym]
			assert.True(t, p.Quantity.Equal(q.Quantity), "prefix %d %s qty", i, sym)
			assert.True(t, p.AvgCost.Equal(q.AvgCost), "prefix %d %s avg cost", i, sym)
			assert.True(t, p.RealizedPnL.Equal(q.RealizedPnL), "prefix %d %s realized", i, sym)
		}
	}

	// Entry identities survive the round trip.
	for i, e := range l.Entries() {
		assert.Equal(t, e.ID(), records[i].ID)
	}
}

func TestExportRecordShape(t *testing.T) {
	l := NewLedger("USD")
	_, err := l.Append(mustDeposit(t, tick(1), 10000))
	require.NoError(t, err)
	_, err = l.Append(mustBuy(t, tick(2), "AAPL", 10, 150))
	require.NoError(t, err)

	records := ExportState(l)

	dep := records[0]
	assert.Equal(t, KindDeposit, dep.Kind)
	assert.Equal(t, "10000.00", dep.CashDelta)
	assert.Equal(t, "10000.00", dep.CashBalanceAfter)
	assert.Equal(t, "USD", dep.Currency)
	assert.Empty(t, dep.Symbol)

	buy := records[1]
	assert.Equal(t, KindBuy, buy.Kind)
	assert.Equal(t, "AAPL", buy.Symbol)
	assert.Equal(t, "10", buy.Quantity)
	assert.Equal(t, "150.00", buy.UnitPrice)
	assert.Equal(t, "-1500.00", buy.CashDelta)
	assert.Equal(t, "8500.00", buy.CashBalanceAfter)

	// Timestamps travel as RFC 3339 in UTC.
	when, err := time.Parse(time.RFC3339Nano, buy.Timestamp)
	require.NoError(t, err)
	assert.True(t, when.Equal(tick(2)))
}

func TestEncodeDecodeLedgerJSONL(t *testing.T) {
	l := sampleLedger(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, l))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, l.Len(), "one JSON object per line")
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, `{"id":`), "canonical field order: %s", line)
	}

	restored, err := DecodeLedger(&buf)
	require.NoError(t, err)
	assert.Equal(t, l.Len(), restored.Len())
	assert.True(t, l.Replay().Cash.Equal(restored.Replay().Cash))
}

func TestImportRejectsTamperedRecords(t *testing.T) {
	l := sampleLedger(t)

	tamper := func(t *testing.T, mutate func(records []Record)) error {
		t.Helper()
		records := ExportState(l)
		mutate(records)
		_, err := ImportState(records)
		return err
	}

	t.Run("broken balance chain", func(t *testing.T) {
		err := tamper(t, func(r []Record) { r[2].CashBalanceAfter = "9999.99" })
		require.Error(t, err)
	})
	t.Run("delta inconsistent with trade", func(t *testing.T) {
		err := tamper(t, func(r []Record) { r[1].CashDelta = "-1.00" })
		require.Error(t, err)
	})
	t.Run("negative deposit delta", func(t *testing.T) {
		err := tamper(t, func(r []Record) { r[0].CashDelta = "-10000.00" })
		require.Error(t, err)
	})
	t.Run("out of order timestamps", func(t *testing.T) {
		err := tamper(t, func(r []Record) {
			r[2].Timestamp = tick(0).Format(time.RFC3339Nano)
		})
		require.ErrorIs(t, err, ErrOutOfOrderEntry)
	})
	t.Run("unknown kind", func(t *testing.T) {
		err := tamper(t, func(r []Record) { r[0].Kind = "transfer" })
		require.Error(t, err)
	})
}

func TestImportRejectsMalformedTrades(t *testing.T) {
	// Records are untrusted input: a trade that no constructor would have
	// produced must not reach replay, even when its delta and balance chain
	// are internally consistent.
	deposit := func(t *testing.T) []Record {
		t.Helper()
		l := NewLedger("USD")
		_, err := l.Append(mustDeposit(t, tick(1), 10000))
		require.NoError(t, err)
		return ExportState(l)
	}
	buyRecord := Record{
		ID:               newEntryID(),
		Timestamp:        tick(2).Format(time.RFC3339Nano),
		Kind:             KindBuy,
		Symbol:           "AAPL",
		Quantity:         "1",
		UnitPrice:        "10.00",
		CashDelta:        "-10.00",
		CashBalanceAfter: "9990.00",
		Currency:         "USD",
	}

	t.Run("zero quantity", func(t *testing.T) {
		r := buyRecord
		r.Quantity, r.CashDelta, r.CashBalanceAfter = "0", "0.00", "10000.00"
		_, err := ImportState(append(deposit(t), r))
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
	t.Run("negative quantity", func(t *testing.T) {
		r := buyRecord
		r.Quantity, r.CashDelta, r.CashBalanceAfter = "-2", "20.00", "10020.00"
		_, err := ImportState(append(deposit(t), r))
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
	t.Run("empty symbol", func(t *testing.T) {
		r := buyRecord
		r.Symbol = ""
		_, err := ImportState(append(deposit(t), r))
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
	t.Run("non-positive unit price", func(t *testing.T) {
		r := buyRecord
		r.UnitPrice, r.CashDelta, r.CashBalanceAfter = "0.00", "0.00", "10000.00"
		_, err := ImportState(append(deposit(t), r))
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	// The well-formed record itself imports cleanly and replays.
	t.Run("well-formed control", func(t *testing.T) {
		l, err := ImportState(append(deposit(t), buyRecord))
		require.NoError(t, err)
		state := l.Replay()
		assert.Equal(t, "9990.00", state.Cash.StringFixed())
		assert.Equal(t, "1", state.Position("AAPL").Quantity.String())
	})
}

func TestNewAccountFromRecords(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.Deposit(M(10000, "USD"), At(tick(1)))
	require.NoError(t, err)
	_, err = a.Buy("AAPL", Q(10), At(tick(2)))
	require.NoError(t, err)

	b, err := NewAccountFromRecords("alice", a.Export(), WithProvider(ReferenceProvider()), WithClock(testClock()))
	require.NoError(t, err)
	assert.Equal(t, "8500.00", b.CashBalance(time.Time{}).StringFixed())
	assert.Equal(t, "10", b.Position("AAPL", time.Time{}).Quantity.String())

	// The restored account accepts new entries after the imported tail.
	_, err = b.Sell("AAPL", Q(2), At(tick(3)))
	require.NoError(t, err)
	assert.Equal(t, "8800.00", b.CashBalance(time.Time{}).StringFixed())
}

func TestImportEmptyRecords(t *testing.T) {
	l, err := ImportState(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, "USD", l.Currency())
}
