// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/cliparse"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/dustin/go-humanize"
)

type RoundHandler struct {
	ledger *ledger.Ledger
	cfg    cliparse.Config
}

func NewRoundHandler(l *ledger.Ledger, cfg cliparse.Config) *RoundHandler {
	return &RoundHandler{ledger: l, cfg: cfg}
}

// CreateRound handles POST /rounds
func (h *RoundHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}

	var req models.CreateRoundRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	fee, err := parseWei("entry_fee", req.EntryFee)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	// Keep the conversion from overflowing into the valid range
	if req.DurationSeconds < 0 || req.DurationSeconds > math.MaxInt64/int64(time.Second) {
		writeLedgerError(w, "create round", ledger.ErrInvalidDuration)
		return
	}
	duration := time.Duration(req.DurationSeconds) * time.Second

	id, err := h.ledger.CreateRound(r.Context(), caller, req.Name, fee, duration)
	if err != nil {
		writeLedgerError(w, "create round", err)
		return
	}

	slog.Info("round created",
		"round_id", id,
		"name", req.Name,
		"entry_fee_wei", humanize.BigComma(fee),
		"duration", duration.String(),
	)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateRoundResponse{RoundID: id})
}

// ListRounds handles GET /rounds
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	rounds := h.ledger.Rounds()

	resp := models.RoundListResponse{
		RoundIDs:   make([]uint64, 0, len(rounds)),
		Rounds:     make([]models.Round, 0, len(rounds)),
		RoundCount: uint64(len(rounds)),
	}
	for _, rd := range rounds {
		resp.RoundIDs = append(resp.RoundIDs, rd.ID)
		resp.Rounds = append(resp.Rounds, models.NewRound(rd))
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetRound handles GET /rounds/{id}
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rd, err := h.ledger.GetRound(id)
	if err != nil {
		writeLedgerError(w, "get round", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.NewRound(rd))
}

// GetParticipants handles GET /rounds/{id}/participants
func (h *RoundHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	players, err := h.ledger.GetRoundParticipants(id)
	if err != nil {
		writeLedgerError(w, "get participants", err)
		return
	}

	resp := models.ParticipantsResponse{RoundID: id, Participants: make([]string, len(players))}
	for i, p := range players {
		resp.Participants[i] = p.Hex()
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetEntryStatus handles GET /rounds/{id}/entries/{address}
func (h *RoundHandler) GetEntryStatus(w http.ResponseWriter, r *http.Request) {
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	player, err := auth.ParseAddress(r.PathValue("address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.ledger.RoundExists(id) {
		writeLedgerError(w, "get entry", ledger.ErrRoundNotFound)
		return
	}

	resp := models.EntryStatusResponse{
		RoundID:    id,
		Player:     player.Hex(),
		HasEntered: h.ledger.HasEntered(id, player),
		HasClaimed: h.ledger.HasClaimed(id, player),
	}
	if resp.HasEntered {
		at, err := h.ledger.GetEntryTime(id, player)
		if err != nil {
			writeLedgerError(w, "get entry", err)
			return
		}
		resp.EntryTime = &at
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// DrawWinner handles POST /rounds/{id}/draw
// Anyone may trigger the draw once the round has ended.
func (h *RoundHandler) DrawWinner(w http.ResponseWriter, r *http.Request) {
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	winner, err := h.ledger.DrawWinner(r.Context(), id)
	if err != nil {
		writeLedgerError(w, "draw winner", err)
		return
	}

	slog.Info("winner drawn", "round_id", id, "winner", winner.Hex())

	middleware.JSONResponse(w, http.StatusOK, models.DrawWinnerResponse{RoundID: id, Winner: winner.Hex()})
}

// MarkForReveal handles POST /rounds/{id}/reveal
func (h *RoundHandler) MarkForReveal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.MarkNumbersForReveal(r.Context(), caller, id); err != nil {
		writeLedgerError(w, "mark for reveal", err)
		return
	}

	slog.Info("numbers marked for reveal", "round_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Numbers marked for reveal"})
}

// FinalizeRound handles POST /rounds/{id}/finalize
// Without numbers in the body the winner's entry is decrypted by the oracle.
func (h *RoundHandler) FinalizeRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.FinalizeRoundRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var numbers [3]uint8
	if len(req.Numbers) == 0 {
		numbers, err = h.ledger.FinalizeFromOracle(r.Context(), caller, id)
	} else {
		numbers, err = parseNumbers(req.Numbers)
		if err != nil {
			// Only the admin gets to learn the numbers were malformed
			if caller != h.ledger.Admin() {
				err = ledger.ErrNotAdmin
			}
			writeLedgerError(w, "finalize round", err)
			return
		}
		err = h.ledger.FinalizeRound(r.Context(), caller, id, numbers)
	}
	if err != nil {
		writeLedgerError(w, "finalize round", err)
		return
	}

	slog.Info("round settled", "round_id", id, "numbers", numbers)

	middleware.JSONResponse(w, http.StatusOK, models.FinalizeRoundResponse{
		RoundID:        id,
		WinningNumbers: models.Numbers(numbers),
	})
}

// CancelRound handles POST /rounds/{id}/cancel
func (h *RoundHandler) CancelRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}
	id, err := roundID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.CancelRound(r.Context(), caller, id); err != nil {
		writeLedgerError(w, "cancel round", err)
		return
	}

	slog.Info("round cancelled", "round_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Round cancelled"})
}
