// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import "errors"

// Every failed operation returns one of these, possibly wrapped with context.
// Callers compare with errors.Is.
var (
	ErrRoundNotFound   = errors.New("round not found")
	ErrRoundNotActive  = errors.New("round not active")
	ErrRoundEnded      = errors.New("round ended")
	ErrRoundNotEnded   = errors.New("round not ended")
	ErrInvalidFee      = errors.New("invalid fee")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrAlreadyEntered  = errors.New("already entered")
	ErrNotEntered      = errors.New("not entered")
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrAlreadyRevealed = errors.New("already revealed")
	ErrNotRevealed     = errors.New("not revealed")
	ErrNotWinner       = errors.New("not winner")
	ErrNotRefundable   = errors.New("not refundable")
	ErrNoParticipants  = errors.New("no participants")
	ErrNotAdmin        = errors.New("not admin")
	ErrZeroAddress     = errors.New("zero address")
	ErrTransferFailed  = errors.New("transfer failed")
)

var codes = []struct {
	err  error
	name string
}{
	{ErrRoundNotFound, "RoundNotFound"},
	{ErrRoundNotActive, "RoundNotActive"},
	{ErrRoundEnded, "RoundEnded"},
	{ErrRoundNotEnded, "RoundNotEnded"},
	{ErrInvalidFee, "InvalidFee"},
	{ErrInvalidDuration, "InvalidDuration"},
	{ErrInvalidNumber, "InvalidNumber"},
	{ErrAlreadyEntered, "AlreadyEntered"},
	{ErrNotEntered, "NotEntered"},
	{ErrAlreadyClaimed, "AlreadyClaimed"},
	{ErrAlreadyRevealed, "AlreadyRevealed"},
	{ErrNotRevealed, "NotRevealed"},
	{ErrNotWinner, "NotWinner"},
	{ErrNotRefundable, "NotRefundable"},
	{ErrNoParticipants, "NoParticipants"},
	{ErrNotAdmin, "NotAdmin"},
	{ErrZeroAddress, "ZeroAddress"},
	{ErrTransferFailed, "TransferFailed"},
}

// Code returns the contract error name for err ("RoundNotFound", ...) or ""
// when err is not a ledger error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return ""
}
