// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// The schema is shared by SQLite and PostgreSQL: amounts are decimal wei
// strings and times are unix seconds.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// DropSchema removes every table created by CreateSchema.
func DropSchema(db *sql.DB) error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS payout;
		DROP TABLE IF EXISTS event;
		DROP TABLE IF EXISTS entry;
		DROP TABLE IF EXISTS round;
		DROP TABLE IF EXISTS ledger_meta;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

const schema = `
-- Ledger-wide state (single row)
CREATE TABLE IF NOT EXISTS ledger_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    admin TEXT NOT NULL
);

-- Rounds
CREATE TABLE IF NOT EXISTS round (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    entry_fee TEXT NOT NULL,
    end_time BIGINT NOT NULL,
    prize_pool TEXT NOT NULL,
    status SMALLINT NOT NULL CHECK (status BETWEEN 0 AND 4),
    participant_count BIGINT NOT NULL DEFAULT 0,
    winner TEXT NOT NULL DEFAULT '',
    number1 SMALLINT NOT NULL DEFAULT 0,
    number2 SMALLINT NOT NULL DEFAULT 0,
    number3 SMALLINT NOT NULL DEFAULT 0,
    numbers_revealed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_round_status ON round(status);

-- Entries
CREATE TABLE IF NOT EXISTS entry (
    round_id BIGINT NOT NULL REFERENCES round(id) ON DELETE CASCADE,
    player TEXT NOT NULL,
    idx BIGINT NOT NULL,
    handle1 TEXT NOT NULL,
    handle2 TEXT NOT NULL,
    handle3 TEXT NOT NULL,
    proof TEXT NOT NULL,
    has_claimed BOOLEAN NOT NULL DEFAULT FALSE,
    entry_time BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    PRIMARY KEY (round_id, player),
    UNIQUE (round_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_entry_round_id ON entry(round_id);

-- Event log
CREATE TABLE IF NOT EXISTS event (
    seq BIGINT PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    round_id BIGINT,
    at BIGINT NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_event_round_id ON event(round_id);

-- Payout outbox
CREATE TABLE IF NOT EXISTS payout (
    id TEXT PRIMARY KEY,
    recipient TEXT NOT NULL,
    amount TEXT NOT NULL,
    memo TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payout_recipient ON payout(recipient);
`
