// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/ethereum/go-ethereum/common"
)

// statusFor maps a ledger error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotAdmin),
		errors.Is(err, ledger.ErrNotWinner):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidFee),
		errors.Is(err, ledger.ErrInvalidDuration),
		errors.Is(err, ledger.ErrInvalidNumber),
		errors.Is(err, ledger.ErrZeroAddress):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrRoundNotActive),
		errors.Is(err, ledger.ErrRoundEnded),
		errors.Is(err, ledger.ErrRoundNotEnded),
		errors.Is(err, ledger.ErrAlreadyEntered),
		errors.Is(err, ledger.ErrNotEntered),
		errors.Is(err, ledger.ErrAlreadyClaimed),
		errors.Is(err, ledger.ErrAlreadyRevealed),
		errors.Is(err, ledger.ErrNotRevealed),
		errors.Is(err, ledger.ErrNotRefundable),
		errors.Is(err, ledger.ErrNoParticipants):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeLedgerError reports a failed ledger operation. Errors that are not
// ledger errors are logged and hidden from the caller.
func writeLedgerError(w http.ResponseWriter, op string, err error) {
	code := ledger.Code(err)
	if code == "" {
		slog.Error("ledger operation failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Ledger error")
		return
	}
	status := statusFor(err)
	if status == http.StatusBadGateway {
		slog.Error("payout failed", "op", op, "error", err)
	}
	middleware.CodedErrorResponse(w, status, err.Error(), code)
}

// requirePlayer authenticates the caller, writing a 401 on failure.
func requirePlayer(w http.ResponseWriter, r *http.Request, salt string) (common.Address, bool) {
	addr, err := auth.Authenticate(r, salt)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, err.Error())
		return addr, false
	}
	return addr, true
}
