// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/cipher-draw/cliparse"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/ethereum/go-ethereum/common"
)

type AdminHandler struct {
	ledger *ledger.Ledger
	cfg    cliparse.Config
}

func NewAdminHandler(l *ledger.Ledger, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{ledger: l, cfg: cfg}
}

// GetAdmin handles GET /admin
func (h *AdminHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.AdminResponse{Admin: h.ledger.Admin().Hex()})
}

// TransferAdmin handles POST /admin/transfer
func (h *AdminHandler) TransferAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := requirePlayer(w, r, h.cfg.PlayerKeySalt)
	if !ok {
		return
	}

	var req models.TransferAdminRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	// The zero address parses here and is rejected by the ledger
	if !common.IsHexAddress(req.NewAdmin) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "new_admin must be a 0x hex address")
		return
	}
	newAdmin := common.HexToAddress(req.NewAdmin)

	if err := h.ledger.TransferAdmin(r.Context(), caller, newAdmin); err != nil {
		writeLedgerError(w, "transfer admin", err)
		return
	}

	slog.Info("admin transferred", "old_admin", caller.Hex(), "new_admin", newAdmin.Hex())

	middleware.JSONResponse(w, http.StatusOK, models.AdminResponse{Admin: newAdmin.Hex()})
}

// GetConfig handles GET /config
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	lim := ledger.DefaultLimits()
	middleware.JSONResponse(w, http.StatusOK, models.ConfigResponse{
		MinEntryFee:        lim.MinEntryFee.String(),
		MaxEntryFee:        lim.MaxEntryFee.String(),
		MinDurationSeconds: int64(lim.MinDuration.Seconds()),
		MaxDurationSeconds: int64(lim.MaxDuration.Seconds()),
		MinNumber:          int(lim.MinNumber),
		MaxNumber:          int(lim.MaxNumber),
	})
}
