// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// Store persists the ledger. It implements ledger.Journal; every ledger
// operation becomes one SQL transaction.
type Store struct {
	db    *sql.DB
	clock clock.Clock

	mu     sync.Mutex
	active *sql.Tx // journal transaction in progress, if any
}

var _ ledger.Journal = (*Store)(nil)

func NewStore(conn *sql.DB, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{db: conn, clock: clk}
}

func (s *Store) Begin(ctx context.Context) (ledger.JournalTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.mu.Lock()
	s.active = tx
	s.mu.Unlock()
	return &journalTx{store: s, tx: tx}, nil
}

// current returns the open journal transaction, or nil.
func (s *Store) current() *sql.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Store) release(tx *sql.Tx) {
	s.mu.Lock()
	if s.active == tx {
		s.active = nil
	}
	s.mu.Unlock()
}

type journalTx struct {
	store *Store
	tx    *sql.Tx
}

func (j *journalTx) PutAdmin(ctx context.Context, admin common.Address) error {
	_, err := j.tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, admin) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET admin = excluded.admin
	`, admin.Hex())
	if err != nil {
		return fmt.Errorf("failed to store admin: %w", err)
	}
	return nil
}

func (j *journalTx) PutRound(ctx context.Context, r ledger.Round) error {
	_, err := j.tx.ExecContext(ctx, `
		INSERT INTO round (
			id, name, entry_fee, end_time, prize_pool, status, participant_count,
			winner, number1, number2, number3, numbers_revealed, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			prize_pool = excluded.prize_pool,
			status = excluded.status,
			participant_count = excluded.participant_count,
			winner = excluded.winner,
			number1 = excluded.number1,
			number2 = excluded.number2,
			number3 = excluded.number3,
			numbers_revealed = excluded.numbers_revealed
	`,
		int64(r.ID), r.Name, r.EntryFee.String(), r.EndTime.Unix(), r.PrizePool.String(),
		int(r.Status), int64(r.ParticipantCount), addressText(r.Winner),
		int(r.WinningNumbers[0]), int(r.WinningNumbers[1]), int(r.WinningNumbers[2]),
		r.NumbersRevealed, r.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store round %d: %w", r.ID, err)
	}
	return nil
}

func (j *journalTx) PutEntry(ctx context.Context, roundID uint64, e ledger.Entry) error {
	_, err := j.tx.ExecContext(ctx, `
		INSERT INTO entry (
			round_id, player, idx, handle1, handle2, handle3, proof,
			has_claimed, entry_time, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (round_id, player) DO UPDATE SET
			handle1 = excluded.handle1,
			handle2 = excluded.handle2,
			handle3 = excluded.handle3,
			proof = excluded.proof,
			has_claimed = excluded.has_claimed,
			updated_at = excluded.updated_at
	`,
		int64(roundID), e.Player.Hex(), int64(e.Index),
		e.Handles[0].Hex(), e.Handles[1].Hex(), e.Handles[2].Hex(), hexutil.Encode(e.Proof),
		e.HasClaimed, e.EntryTime.Unix(), e.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

func (j *journalTx) AppendEvent(ctx context.Context, ev ledger.Event) error {
	payload, err := json.Marshal(ev.Fields())
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	var seq int64
	if err := j.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM event`).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read event sequence: %w", err)
	}

	var roundID sql.NullInt64
	if ev.Kind != ledger.EventAdminTransferred {
		roundID = sql.NullInt64{Int64: int64(ev.RoundID), Valid: true}
	}

	_, err = j.tx.ExecContext(ctx, `
		INSERT INTO event (seq, id, kind, round_id, at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, seq+1, ev.ID.String(), string(ev.Kind), roundID, ev.At.Unix(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}
	return nil
}

func (j *journalTx) Commit() error {
	defer j.store.release(j.tx)
	return j.tx.Commit()
}

func (j *journalTx) Rollback() error {
	defer j.store.release(j.tx)
	err := j.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// ErrNoAdmin is returned by EnsureAdmin when neither the database nor the
// configuration names an admin.
var ErrNoAdmin = errors.New("no admin configured for an empty database")

// EnsureAdmin returns the persisted admin. When none is stored yet, fallback
// is stored and returned; a zero fallback is ErrNoAdmin.
func (s *Store) EnsureAdmin(ctx context.Context, fallback common.Address) (common.Address, error) {
	if fallback != (common.Address{}) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO ledger_meta (id, admin) VALUES (1, $1)
			ON CONFLICT (id) DO NOTHING
		`, fallback.Hex())
		if err != nil {
			return common.Address{}, fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	var admin string
	err := s.db.QueryRowContext(ctx, `SELECT admin FROM ledger_meta WHERE id = 1`).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Address{}, ErrNoAdmin
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to load admin: %w", err)
	}
	return common.HexToAddress(admin), nil
}

// Load reads the persisted ledger state. An empty database yields an empty
// snapshot with a zero admin.
func (s *Store) Load(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot

	var admin string
	err := s.db.QueryRowContext(ctx, `SELECT admin FROM ledger_meta WHERE id = 1`).Scan(&admin)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return snap, fmt.Errorf("failed to load admin: %w", err)
	default:
		snap.Admin = common.HexToAddress(admin)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, entry_fee, end_time, prize_pool, status, participant_count,
		       winner, number1, number2, number3, numbers_revealed, created_at
		FROM round
		ORDER BY id
	`)
	if err != nil {
		return snap, fmt.Errorf("failed to load rounds: %w", err)
	}
	defer rows.Close()

	position := make(map[uint64]int)
	for rows.Next() {
		var (
			r                  ledger.Round
			id, count          int64
			fee, pool, winner  string
			status             int
			n1, n2, n3         int
			endTime, createdAt int64
		)
		if err := rows.Scan(&id, &r.Name, &fee, &endTime, &pool, &status, &count,
			&winner, &n1, &n2, &n3, &r.NumbersRevealed, &createdAt); err != nil {
			return snap, fmt.Errorf("failed to scan round: %w", err)
		}
		r.ID = uint64(id)
		r.ParticipantCount = uint64(count)
		r.Status = ledger.Status(status)
		r.WinningNumbers = [3]uint8{uint8(n1), uint8(n2), uint8(n3)}
		r.EndTime = time.Unix(endTime, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		if winner != "" {
			r.Winner = common.HexToAddress(winner)
		}
		if r.EntryFee, err = parseWei(fee); err != nil {
			return snap, fmt.Errorf("round %d entry fee: %w", r.ID, err)
		}
		if r.PrizePool, err = parseWei(pool); err != nil {
			return snap, fmt.Errorf("round %d prize pool: %w", r.ID, err)
		}

		position[r.ID] = len(snap.Rounds)
		snap.Rounds = append(snap.Rounds, ledger.RoundRecord{Round: r, Entries: []ledger.Entry{}})
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("error iterating rounds: %w", err)
	}

	erows, err := s.db.QueryContext(ctx, `
		SELECT round_id, player, idx, handle1, handle2, handle3, proof,
		       has_claimed, entry_time, updated_at
		FROM entry
		ORDER BY round_id, idx
	`)
	if err != nil {
		return snap, fmt.Errorf("failed to load entries: %w", err)
	}
	defer erows.Close()

	for erows.Next() {
		var (
			e                    ledger.Entry
			roundID, idx         int64
			player, proof        string
			h1, h2, h3           string
			entryTime, updatedAt int64
		)
		if err := erows.Scan(&roundID, &player, &idx, &h1, &h2, &h3, &proof,
			&e.HasClaimed, &entryTime, &updatedAt); err != nil {
			return snap, fmt.Errorf("failed to scan entry: %w", err)
		}
		pos, ok := position[uint64(roundID)]
		if !ok {
			return snap, fmt.Errorf("entry for unknown round %d", roundID)
		}
		e.Player = common.HexToAddress(player)
		e.Index = uint64(idx)
		e.Handles = ledger.Handles{common.HexToHash(h1), common.HexToHash(h2), common.HexToHash(h3)}
		if e.Proof, err = hexutil.Decode(proof); err != nil {
			return snap, fmt.Errorf("round %d entry %s proof: %w", roundID, player, err)
		}
		e.HasEntered = true
		e.EntryTime = time.Unix(entryTime, 0).UTC()
		e.UpdatedAt = time.Unix(updatedAt, 0).UTC()

		snap.Rounds[pos].Entries = append(snap.Rounds[pos].Entries, e)
	}
	if err := erows.Err(); err != nil {
		return snap, fmt.Errorf("error iterating entries: %w", err)
	}

	return snap, nil
}

// StoredEvent is a ledger event as recorded in the event log.
type StoredEvent struct {
	Seq     int64
	ID      uuid.UUID
	Kind    ledger.EventKind
	RoundID *uint64
	At      time.Time
	Payload json.RawMessage
}

// EventFilter narrows an event log query. Zero values match everything.
type EventFilter struct {
	RoundID *uint64
	After   int64 // only events with a greater sequence number
	Limit   int
}

// Events returns logged events in commit order.
func (s *Store) Events(ctx context.Context, f EventFilter) ([]StoredEvent, error) {
	var (
		where []string
		args  []any
	)
	args = append(args, f.After)
	where = append(where, fmt.Sprintf("seq > $%d", len(args)))
	if f.RoundID != nil {
		args = append(args, int64(*f.RoundID))
		where = append(where, fmt.Sprintf("round_id = $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT seq, id, kind, round_id, at, payload
		FROM event
		WHERE %s
		ORDER BY seq
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []StoredEvent{}
	for rows.Next() {
		var (
			ev      StoredEvent
			id      string
			kind    string
			roundID sql.NullInt64
			at      int64
			payload string
		)
		if err := rows.Scan(&ev.Seq, &id, &kind, &roundID, &at, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("event %d id: %w", ev.Seq, err)
		}
		ev.Kind = ledger.EventKind(kind)
		if roundID.Valid {
			v := uint64(roundID.Int64)
			ev.RoundID = &v
		}
		ev.At = time.Unix(at, 0).UTC()
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func addressText(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func parseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return v, nil
}
