// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"

	"github.com/danielhkuo/cipher-draw/ledger"
)

// Request types

// Amounts are decimal wei strings.
type CreateRoundRequest struct {
	Name            string `json:"name"`
	EntryFee        string `json:"entry_fee"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// Handles are 0x-prefixed 32-byte hex; Value is the amount paid with the
// entry and must equal the round's entry fee.
type SubmitEntryRequest struct {
	Handles [3]string `json:"handles"`
	Proof   string    `json:"proof"`
	Value   string    `json:"value"`
}

type UpdateEntryRequest struct {
	Handles [3]string `json:"handles"`
	Proof   string    `json:"proof"`
}

// Numbers may be omitted, in which case the oracle reveals them.
type FinalizeRoundRequest struct {
	Numbers []int `json:"numbers,omitempty"`
}

type TransferAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

// RegisterPlayerRequest carries a personal_sign signature over the challenge
// for Address issued at IssuedAt (unix seconds)
type RegisterPlayerRequest struct {
	Address   string `json:"address"`
	IssuedAt  int64  `json:"issued_at"`
	Signature string `json:"signature"`
}

type EncryptEntryRequest struct {
	Address string `json:"address"`
	Numbers []int  `json:"numbers"`
}

// Response types

type CreateRoundResponse struct {
	RoundID uint64 `json:"round_id"`
}

type RoundListResponse struct {
	RoundIDs   []uint64 `json:"round_ids"`
	Rounds     []Round  `json:"rounds"`
	RoundCount uint64   `json:"round_count"`
}

type ParticipantsResponse struct {
	RoundID      uint64   `json:"round_id"`
	Participants []string `json:"participants"`
}

type EntryStatusResponse struct {
	RoundID    uint64     `json:"round_id"`
	Player     string     `json:"player"`
	HasEntered bool       `json:"has_entered"`
	HasClaimed bool       `json:"has_claimed"`
	EntryTime  *time.Time `json:"entry_time,omitempty"`
}

type DrawWinnerResponse struct {
	RoundID uint64 `json:"round_id"`
	Winner  string `json:"winner"`
}

type FinalizeRoundResponse struct {
	RoundID        uint64 `json:"round_id"`
	WinningNumbers []int  `json:"winning_numbers"`
}

type ClaimResponse struct {
	RoundID uint64 `json:"round_id"`
	Player  string `json:"player"`
	Amount  string `json:"amount"`
}

type AdminResponse struct {
	Admin string `json:"admin"`
}

type ChallengeResponse struct {
	Address  string `json:"address"`
	Message  string `json:"message"`
	IssuedAt int64  `json:"issued_at"`
}

type RegisterPlayerResponse struct {
	Address   string `json:"address"`
	PlayerKey string `json:"player_key"`
}

type EncryptEntryResponse struct {
	Handles [3]string `json:"handles"`
	Proof   string    `json:"proof"`
}

type ConfigResponse struct {
	MinEntryFee        string `json:"min_entry_fee"`
	MaxEntryFee        string `json:"max_entry_fee"`
	MinDurationSeconds int64  `json:"min_duration_seconds"`
	MaxDurationSeconds int64  `json:"max_duration_seconds"`
	MinNumber          int    `json:"min_number"`
	MaxNumber          int    `json:"max_number"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Domain types

type Round struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	EntryFee         string    `json:"entry_fee"`
	EndTime          time.Time `json:"end_time"`
	PrizePool        string    `json:"prize_pool"`
	Status           string    `json:"status"`
	StatusCode       uint8     `json:"status_code"`
	ParticipantCount uint64    `json:"participant_count"`
	Winner           *string   `json:"winner,omitempty"`
	WinningNumbers   []int     `json:"winning_numbers,omitempty"`
	NumbersRevealed  bool      `json:"numbers_revealed"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewRound converts a ledger round to its API form. The winner and the
// winning numbers are omitted until they exist.
func NewRound(r ledger.Round) Round {
	out := Round{
		ID:               r.ID,
		Name:             r.Name,
		EntryFee:         r.EntryFee.String(),
		EndTime:          r.EndTime,
		PrizePool:        r.PrizePool.String(),
		Status:           r.Status.String(),
		StatusCode:       uint8(r.Status),
		ParticipantCount: r.ParticipantCount,
		NumbersRevealed:  r.NumbersRevealed,
		CreatedAt:        r.CreatedAt,
	}
	if r.Status >= ledger.StatusDrawing && r.Status != ledger.StatusCancelled {
		w := r.Winner.Hex()
		out.Winner = &w
	}
	if r.NumbersRevealed {
		out.WinningNumbers = Numbers(r.WinningNumbers)
	}
	return out
}

func Numbers(n [3]uint8) []int {
	return []int{int(n[0]), int(n[1]), int(n[2])}
}

type Event struct {
	Seq     int64           `json:"seq"`
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	RoundID *uint64         `json:"round_id,omitempty"`
	At      time.Time       `json:"at"`
	Fields  json.RawMessage `json:"fields"`
}

type Payout struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"created_at"`
}

// Error response

// Code is the ledger error name ("RoundNotFound", ...) when there is one.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
