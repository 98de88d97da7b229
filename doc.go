// Package papertrade tracks a simulated trading account as an append-only,
// replayable ledger of entries. It is designed to be auditable and
// deterministic: cash, holdings, portfolio value and profit/loss are always
// derived by replaying the ordered entry sequence, never read from mutable
// running totals.
//
// The core functionalities include:
//   - Ledger Management: Recording deposits, withdrawals, buys and sells as
//     immutable, chronologically ordered entries.
//   - Replay Engine: Reconstructing the account state (cash, positions,
//     realized profit) at any point in time by folding entries from an empty
//     state.
//   - Position Tracking: Maintaining per-symbol quantity, average cost basis
//     and realized profit/loss while folding trade entries.
//   - Account Facade: Validating every mutation against replayed state before
//     appending, under a single serialized critical section per account.
//   - Price Resolution: Consuming a pluggable price provider for valuations;
//     replay itself never consults it.
//   - Data Exchange: Exporting and importing the ledger as plain records
//     (JSONL) that reproduce identical replay results for every prefix.
package papertrade
