// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger implements the Cipher Draw round ledger: round lifecycle,
entry and claim bookkeeping, and payout accounting.

# Lifecycle

	Active --(endTime passed, DrawWinner)--> Drawing --(MarkNumbersForReveal)--> Revealing --(FinalizeRound)--> Settled
	Active --(CancelRound)--> Cancelled

Settled and Cancelled are terminal. Time-based checks are evaluated lazily
against the injected clock when an operation runs.

# Capabilities

The ledger never decrypts entries, draws randomness or moves funds itself.
These are injected through Config:

  - Verifier: accepts or rejects the ciphertext handles and proof of an entry
  - Revealer: decrypts the winner's numbers for FinalizeFromOracle
  - RandomSource: picks the winner index (CryptoRandom, BeaconRandom)
  - Transferer: pays prizes and refunds
  - Journal: persists each committed change in one transaction
  - EventSink: receives committed events

# Atomicity

Each operation builds its complete change, writes it to the journal, performs
the payout if any, commits and only then updates memory and publishes events.
Any failure before the commit leaves no trace; a failed transfer returns
ErrTransferFailed with the claim still open for a retry.
*/
package ledger
