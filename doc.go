// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Cipher Draw API server.

Cipher Draw is a prize-draw ledger. Players pay a fixed fee to enter a round
with three encrypted numbers; after the round ends a winner is drawn at
random, the winner's numbers are revealed, and the winner claims the whole
prize pool. Cancelled rounds refund every entrant.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	ADMIN_ADDRESS=0x... PLAYER_KEY_SALT=... ORACLE_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -admin 0x...

A .env file in the working directory is read as well.

# Configuration

Required settings:

  - ADMIN_ADDRESS (-admin): Initial ledger admin; required only while the
    database has none
  - PLAYER_KEY_SALT (-player-salt): Secret for player key HMAC
  - ORACLE_KEY (-oracle-key): Key of the development FHE oracle

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - DATABASE_URL (-d): Connection string (default: file:cipher-draw.db)
  - RANDOM_SEED (-random-seed): Seed for reproducible draws
  - ALLOWED_ORIGIN (-origin): Origin accepted for the event WebSocket

# Architecture

  - ledger: Round state machine, the single source of truth
  - db: SQL journal, event log and payout outbox behind the ledger
  - oracle: Development stand-in for the FHE verifier and decryption
  - events: WebSocket fan-out of ledger events
  - metrics: Prometheus metrics
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - auth: Player keys and address parsing
  - cliparse: Configuration parsing

The seed-rounds command in cmd/seed-rounds creates rounds from a TOML file
through the API.

See package documentation for each component.
*/
package main
