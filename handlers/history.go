// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/db"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/ethereum/go-ethereum/common"
)

// HistoryHandler serves the persisted event log and payout outbox.
type HistoryHandler struct {
	store   *db.Store
	payouts *db.PayoutBook
}

func NewHistoryHandler(store *db.Store, payouts *db.PayoutBook) *HistoryHandler {
	return &HistoryHandler{store: store, payouts: payouts}
}

// ListEvents handles GET /events?round_id=&after=&limit=
func (h *HistoryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f db.EventFilter
	if s := q.Get("round_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, errInvalidRoundID.Error())
			return
		}
		f.RoundID = &id
	}
	if s := q.Get("after"); s != "" {
		after, err := strconv.ParseInt(s, 10, 64)
		if err != nil || after < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		f.After = after
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = limit
	}

	stored, err := h.store.Events(r.Context(), f)
	if err != nil {
		slog.Error("failed to query events", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.Event, len(stored))
	for i, ev := range stored {
		out[i] = models.Event{
			Seq:     ev.Seq,
			ID:      ev.ID.String(),
			Kind:    string(ev.Kind),
			RoundID: ev.RoundID,
			At:      ev.At,
			Fields:  ev.Payload,
		}
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// ListPayouts handles GET /payouts?recipient=
func (h *HistoryHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	var recipient common.Address
	if s := r.URL.Query().Get("recipient"); s != "" {
		addr, err := auth.ParseAddress(s)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "recipient must be a non-zero 0x hex address")
			return
		}
		recipient = addr
	}

	payouts, err := h.payouts.Payouts(r.Context(), recipient)
	if err != nil {
		slog.Error("failed to query payouts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.Payout, len(payouts))
	for i, p := range payouts {
		out[i] = models.Payout{
			ID:        p.ID.String(),
			Recipient: p.Recipient.Hex(),
			Amount:    p.Amount.String(),
			Memo:      p.Memo,
			CreatedAt: p.CreatedAt,
		}
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}
