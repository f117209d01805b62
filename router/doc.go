// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Cipher Draw API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{...}, cfg)

# Endpoints

Health and monitoring:

	GET /health
	GET /metrics

Ledger constants and admin:

	GET  /config         - Fee, duration and number bounds
	GET  /admin          - Current admin address
	POST /admin/transfer - Hand over the admin role (admin)

Players:

	GET  /players/challenge - Message to sign for an address
	POST /players/register  - Issue a player key for a signed challenge
	POST /oracle/encrypt    - Encrypt three numbers with the development oracle

Rounds:

	GET  /rounds                          - All rounds
	GET  /rounds/{id}                     - One round
	GET  /rounds/{id}/participants        - Entrants in entry order
	GET  /rounds/{id}/entries/{address}   - Entry status of a player
	POST /rounds                          - Create round (admin)
	POST /rounds/{id}/entries             - Submit entry
	PUT  /rounds/{id}/entries             - Update entry
	POST /rounds/{id}/draw                - Draw winner
	POST /rounds/{id}/reveal              - Mark numbers for reveal (admin)
	POST /rounds/{id}/finalize            - Settle with the winning numbers (admin)
	POST /rounds/{id}/cancel              - Cancel (admin)
	POST /rounds/{id}/claim-prize         - Winner payout
	POST /rounds/{id}/claim-refund        - Refund from a cancelled round

History:

	GET /events    - Logged ledger events
	GET /payouts   - Recorded payouts
	GET /events/ws - Live ledger events over WebSocket

API routes are wrapped with request logging and with request metrics labelled
by route pattern. The WebSocket route is logged only.
*/
package router
