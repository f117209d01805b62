// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/danielhkuo/cipher-draw/cliparse"
	"github.com/danielhkuo/cipher-draw/db"
	"github.com/danielhkuo/cipher-draw/events"
	"github.com/danielhkuo/cipher-draw/handlers"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/metrics"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/oracle"
)

// Deps are the services behind the routes
type Deps struct {
	Ledger  *ledger.Ledger
	Store   *db.Store
	Payouts *db.PayoutBook
	Oracle  *oracle.Dev
	Hub     *events.Hub
	Metrics *metrics.Collector
	Clock   clock.Clock
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	roundHandler := handlers.NewRoundHandler(deps.Ledger, cfg)
	adminHandler := handlers.NewAdminHandler(deps.Ledger, cfg)
	playerHandler := handlers.NewPlayerHandler(deps.Oracle, deps.Clock, cfg)
	historyHandler := handlers.NewHistoryHandler(deps.Store, deps.Payouts)

	// Every API route is logged and instrumented under its pattern
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(deps.Metrics.Instrument(pattern, h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	// Ledger constants and admin
	handle("GET /config", adminHandler.GetConfig)
	handle("GET /admin", adminHandler.GetAdmin)
	handle("POST /admin/transfer", adminHandler.TransferAdmin)

	// Players and the development oracle
	handle("GET /players/challenge", playerHandler.Challenge)
	handle("POST /players/register", playerHandler.Register)
	handle("POST /oracle/encrypt", playerHandler.EncryptEntry)

	// Rounds (public views)
	handle("GET /rounds", roundHandler.ListRounds)
	handle("GET /rounds/{id}", roundHandler.GetRound)
	handle("GET /rounds/{id}/participants", roundHandler.GetParticipants)
	handle("GET /rounds/{id}/entries/{address}", roundHandler.GetEntryStatus)

	// Round lifecycle
	handle("POST /rounds", roundHandler.CreateRound)
	handle("POST /rounds/{id}/entries", roundHandler.SubmitEntry)
	handle("PUT /rounds/{id}/entries", roundHandler.UpdateEntry)
	handle("POST /rounds/{id}/draw", roundHandler.DrawWinner)
	handle("POST /rounds/{id}/reveal", roundHandler.MarkForReveal)
	handle("POST /rounds/{id}/finalize", roundHandler.FinalizeRound)
	handle("POST /rounds/{id}/cancel", roundHandler.CancelRound)
	handle("POST /rounds/{id}/claim-prize", roundHandler.ClaimPrize)
	handle("POST /rounds/{id}/claim-refund", roundHandler.ClaimRefund)

	// History
	handle("GET /events", historyHandler.ListEvents)
	handle("GET /payouts", historyHandler.ListPayouts)

	// Live events; long-lived, so logged but not instrumented
	mux.HandleFunc("GET /events/ws", middleware.WithLogging(deps.Hub.ServeHTTP))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cipher-draw API v1"))
	})

	return mux
}
