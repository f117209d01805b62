// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the lifecycle state of a round. The numeric values match the
// contract ABI.
type Status uint8

const (
	StatusActive Status = iota
	StatusDrawing
	StatusRevealing
	StatusSettled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDrawing:
		return "drawing"
	case StatusRevealing:
		return "revealing"
	case StatusSettled:
		return "settled"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusCancelled
}

const (
	MinDuration = time.Hour
	MaxDuration = 7 * 24 * time.Hour

	MinNumber uint8 = 1
	MaxNumber uint8 = 9
)

var (
	minEntryFee = big.NewInt(1_000_000_000_000_000)     // 0.001 ether
	maxEntryFee = big.NewInt(1_000_000_000_000_000_000) // 1 ether
)

// Limits are the bounds enforced on round creation and reveal.
type Limits struct {
	MinEntryFee *big.Int
	MaxEntryFee *big.Int
	MinDuration time.Duration
	MaxDuration time.Duration
	MinNumber   uint8
	MaxNumber   uint8
}

func DefaultLimits() Limits {
	return Limits{
		MinEntryFee: new(big.Int).Set(minEntryFee),
		MaxEntryFee: new(big.Int).Set(maxEntryFee),
		MinDuration: MinDuration,
		MaxDuration: MaxDuration,
		MinNumber:   MinNumber,
		MaxNumber:   MaxNumber,
	}
}

// Handles are the three opaque ciphertext references of an entry.
type Handles [3]common.Hash

// Round is one instance of the prize draw. Values returned by the ledger are
// copies; mutating them has no effect on ledger state.
type Round struct {
	ID               uint64
	Name             string
	EntryFee         *big.Int
	EndTime          time.Time
	PrizePool        *big.Int
	Status           Status
	ParticipantCount uint64
	Winner           common.Address
	WinningNumbers   [3]uint8
	NumbersRevealed  bool
	CreatedAt        time.Time
}

func (r Round) clone() Round {
	c := r
	c.EntryFee = cloneInt(r.EntryFee)
	c.PrizePool = cloneInt(r.PrizePool)
	return c
}

// Entry is a participant's submission for one round.
type Entry struct {
	Player  common.Address
	Index   uint64 // position in the round's participant list
	Handles Handles
	Proof   []byte

	HasEntered bool
	HasClaimed bool
	EntryTime  time.Time
	UpdatedAt  time.Time
}

func (e Entry) clone() Entry {
	c := e
	c.Proof = append([]byte(nil), e.Proof...)
	return c
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
