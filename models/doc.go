// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

All amounts are decimal wei strings so that values above 2^53 survive JSON
clients. Addresses are checksummed 0x hex, ciphertext handles and proofs are
0x hex.

# Request Types

  - CreateRoundRequest: name, entry_fee, duration_seconds
  - SubmitEntryRequest: handles, proof, value
  - UpdateEntryRequest: handles, proof
  - FinalizeRoundRequest: numbers (optional)
  - TransferAdminRequest: new_admin
  - RegisterPlayerRequest: address
  - EncryptEntryRequest: address, numbers

# Response Types

  - CreateRoundResponse: round_id
  - RoundListResponse: round_ids, rounds, round_count
  - ParticipantsResponse, EntryStatusResponse
  - DrawWinnerResponse, FinalizeRoundResponse, ClaimResponse
  - AdminResponse, RegisterPlayerResponse, EncryptEntryResponse
  - ConfigResponse: ledger limits
  - ErrorResponse: error, message, code

# Domain Types

  - Round: API form of ledger.Round, built with NewRound
  - Event: a logged ledger event with its ABI fields
  - Payout: a recorded prize or refund transfer
*/
package models
