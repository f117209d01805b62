// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Cipher Draw API.

# Handler Types

Each handler is a struct with its dependencies and the config:

  - RoundHandler: Round lifecycle, entries and claims (backed by the ledger)
  - AdminHandler: Admin role and ledger constants
  - PlayerHandler: Player keys and the development oracle
  - HistoryHandler: Event log and payout records (backed by the database)

Handlers are created via constructor functions:

	roundHandler := handlers.NewRoundHandler(l, cfg)

# Round Lifecycle

Rounds progress through: active → drawing → revealing → settled, or
active → cancelled.

	POST /rounds                  → CreateRound (admin)
	POST /rounds/{id}/entries     → SubmitEntry (value must equal the fee)
	PUT  /rounds/{id}/entries     → UpdateEntry
	POST /rounds/{id}/draw        → DrawWinner (anyone, after the end time)
	POST /rounds/{id}/reveal      → MarkForReveal (admin)
	POST /rounds/{id}/finalize    → FinalizeRound (admin)
	POST /rounds/{id}/cancel      → CancelRound (admin)
	POST /rounds/{id}/claim-prize → ClaimPrize (winner)
	POST /rounds/{id}/claim-refund → ClaimRefund (entrants of cancelled rounds)

State-changing requests carry the X-Player-Address and X-Player-Key
headers. The key comes from POST /players/register. Whether the caller is
the admin is decided by the ledger.

# Errors

Ledger failures are returned with the error name in the code field:

	{"error": "Conflict", "message": "already entered", "code": "AlreadyEntered"}

RoundNotFound maps to 404, NotAdmin and NotWinner to 403, validation errors
to 400, TransferFailed to 502 and every other ledger error to 409.
*/
package handlers
