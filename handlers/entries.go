// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
)

// SubmitEntry handles POST /rounds/{id}/entries
func (h *RoundHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.SubmitEntryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	value, err := parseWei("value", req.Value)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	handles, err := parseHandles(req.Handles)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.SubmitEntry(r.Context(), caller, id, handles, proof, value); err != nil {
		writeLedgerError(w, "submit entry", err)
		return
	}

	slog.Info("entry submitted", "round_id", id, "player", caller.Hex(), "value_wei", humanize.BigComma(value))

	middleware.JSONResponse(w, http.StatusCreated, models.MessageResponse{Message: "Entry submitted"})
}

// UpdateEntry handles PUT /rounds/{id}/entries
func (h *RoundHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateEntryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	handles, err := parseHandles(req.Handles)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.UpdateEntry(r.Context(), caller, id, handles, proof); err != nil {
		writeLedgerError(w, "update entry", err)
		return
	}

	slog.Info("entry updated", "round_id", id, "player", caller.Hex())

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Entry updated"})
}

// ClaimPrize handles POST /rounds/{id}/claim-prize
func (h *RoundHandler) ClaimPrize(w http.ResponseWriter, r *http.Request) {
	h.claim(w, r, "claim prize", h.ledger.ClaimPrize)
}

// ClaimRefund handles POST /rounds/{id}/claim-refund
func (h *RoundHandler) ClaimRefund(w http.ResponseWriter, r *http.Request) {
	h.claim(w, r, "claim refund", h.ledger.ClaimRefund)
}

type claimFunc func(ctx context.Context, caller common.Address, roundID uint64) (*big.Int, error)

func (h *RoundHandler) claim(w http.ResponseWriter, r *http.Request, op string, fn claimFunc) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := fn(r.Context(), caller, id)
	if err != nil {
		writeLedgerError(w, op, err)
		return
	}

	slog.Info("payout claimed",
		"op", op,
		"round_id", id,
		"player", caller.Hex(),
		"amount_wei", humanize.BigComma(amount),
	)

	middleware.JSONResponse(w, http.StatusOK, models.ClaimResponse{
		RoundID: id,
		Player:  caller.Hex(),
		Amount:  amount.String(),
	})
}
