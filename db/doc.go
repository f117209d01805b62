// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db persists the round ledger in SQLite or PostgreSQL.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same statements run on both drivers; amounts are stored as decimal wei
strings and times as unix seconds.

# Tables

  - ledger_meta: the current admin (single row)
  - round: one row per round, id starting at 0
  - entry: one row per (round, player), idx is the participant position
  - event: append-only log of ledger events with a JSON payload
  - payout: outbox of prize and refund transfers

# Journal

Store implements ledger.Journal. Each ledger operation opens one
transaction, upserts the rows it changed, appends its events and commits:

	store := db.NewStore(conn, clock.New())
	snap, err := store.Load(ctx)
	l, err := ledger.New(ledger.Config{Journal: store, Transfer: db.NewPayoutBook(store), ...})
	err = l.Restore(snap)

PayoutBook records transfers inside the open journal transaction, so a
claim's payout row and its claimed flag are written atomically.
*/
package db
