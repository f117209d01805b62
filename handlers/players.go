// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/cliparse"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/danielhkuo/cipher-draw/oracle"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type PlayerHandler struct {
	oracle *oracle.Dev
	clock  clock.Clock
	cfg    cliparse.Config
}

func NewPlayerHandler(o *oracle.Dev, clk clock.Clock, cfg cliparse.Config) *PlayerHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &PlayerHandler{oracle: o, clock: clk, cfg: cfg}
}

// Challenge handles GET /players/challenge?address=
func (h *PlayerHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	addr, err := auth.ParseAddress(r.URL.Query().Get("address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "address must be a non-zero 0x hex address")
		return
	}

	now := h.clock.Now()
	middleware.JSONResponse(w, http.StatusOK, models.ChallengeResponse{
		Address:  addr.Hex(),
		Message:  auth.ChallengeMessage(addr, now),
		IssuedAt: now.Unix(),
	})
}

// Register handles POST /players/register
// The caller proves control of the address by signing its challenge. The
// player key is derived from the address, so registering twice returns the
// same key.
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterPlayerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	addr, err := auth.ParseAddress(req.Address)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "address must be a non-zero 0x hex address")
		return
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "signature must be 0x hex")
		return
	}

	err = auth.VerifyChallenge(addr, time.Unix(req.IssuedAt, 0), h.clock.Now(), sig)
	if err != nil {
		if !errors.Is(err, auth.ErrStaleChallenge) {
			slog.Warn("player registration rejected",
				"player", addr.Hex(),
				"ip_hash", auth.HashIP(middleware.GetClientIP(r), h.cfg.PlayerKeySalt),
			)
		}
		middleware.ErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	slog.Info("player registered",
		"player", addr.Hex(),
		"ip_hash", auth.HashIP(middleware.GetClientIP(r), h.cfg.PlayerKeySalt),
	)

	middleware.JSONResponse(w, http.StatusOK, models.RegisterPlayerResponse{
		Address:   addr.Hex(),
		PlayerKey: auth.GeneratePlayerKey(addr, h.cfg.PlayerKeySalt),
	})
}

// EncryptEntry handles POST /oracle/encrypt
// It plays the part of the client-side FHE library for the development oracle.
func (h *PlayerHandler) EncryptEntry(w http.ResponseWriter, r *http.Request) {
	var req models.EncryptEntryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	addr, err := auth.ParseAddress(req.Address)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "address must be a non-zero 0x hex address")
		return
	}
	numbers, err := parseNumbers(req.Numbers)
	if err != nil {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, err.Error(), ledger.Code(err))
		return
	}

	handles, proof, err := h.oracle.EncryptEntry(addr, numbers)
	if err != nil {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, err.Error(), ledger.Code(ledger.ErrInvalidNumber))
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EncryptEntryResponse{
		Handles: hexHandles(handles),
		Proof:   hexutil.Encode(proof),
	})
}
