// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type EventKind string

const (
	EventRoundCreated           EventKind = "RoundCreated"
	EventEntrySubmitted         EventKind = "EntrySubmitted"
	EventEntryUpdated           EventKind = "EntryUpdated"
	EventWinnerDrawn            EventKind = "WinnerDrawn"
	EventNumbersMarkedForReveal EventKind = "NumbersMarkedForReveal"
	EventRoundSettled           EventKind = "RoundSettled"
	EventPrizeClaimed           EventKind = "PrizeClaimed"
	EventRoundCancelled         EventKind = "RoundCancelled"
	EventRefundClaimed          EventKind = "RefundClaimed"
	EventAdminTransferred       EventKind = "AdminTransferred"
)

// Event is emitted once per committed state change. Only the fields that
// belong to Kind are set; Fields returns exactly those.
type Event struct {
	ID      uuid.UUID
	Kind    EventKind
	At      time.Time
	RoundID uint64

	Player   common.Address // player, or winner for WinnerDrawn/RoundSettled/PrizeClaimed
	Name     string
	EntryFee *big.Int
	EndTime  time.Time
	Amount   *big.Int // prize or refunded amount
	OldAdmin common.Address
	NewAdmin common.Address
}

// Fields returns the event arguments as they appear in the contract ABI.
// Addresses are checksummed hex, amounts decimal wei strings.
func (e Event) Fields() map[string]any {
	switch e.Kind {
	case EventRoundCreated:
		return map[string]any{
			"roundId":  e.RoundID,
			"name":     e.Name,
			"entryFee": e.EntryFee.String(),
			"endTime":  e.EndTime.Unix(),
		}
	case EventEntrySubmitted, EventEntryUpdated:
		return map[string]any{"roundId": e.RoundID, "player": e.Player.Hex()}
	case EventWinnerDrawn:
		return map[string]any{"roundId": e.RoundID, "winner": e.Player.Hex()}
	case EventNumbersMarkedForReveal, EventRoundCancelled:
		return map[string]any{"roundId": e.RoundID}
	case EventRoundSettled:
		return map[string]any{"roundId": e.RoundID, "winner": e.Player.Hex(), "prize": e.Amount.String()}
	case EventPrizeClaimed:
		return map[string]any{"roundId": e.RoundID, "winner": e.Player.Hex(), "amount": e.Amount.String()}
	case EventRefundClaimed:
		return map[string]any{"roundId": e.RoundID, "player": e.Player.Hex(), "amount": e.Amount.String()}
	case EventAdminTransferred:
		return map[string]any{"oldAdmin": e.OldAdmin.Hex(), "newAdmin": e.NewAdmin.Hex()}
	}
	return map[string]any{}
}

// EventSink receives committed events in commit order. Publish is called
// with the ledger lock held and must not block.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}
