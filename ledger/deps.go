// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Verifier checks the validity proof of an encrypted entry. Any error is a
// rejection.
type Verifier interface {
	Verify(ctx context.Context, player common.Address, handles Handles, proof []byte) error
}

// Revealer decrypts the winning entry of a round.
type Revealer interface {
	Reveal(ctx context.Context, roundID uint64, player common.Address, handles Handles) ([3]uint8, error)
}

// RandomSource picks an index in [0, n) for the given round.
type RandomSource interface {
	Intn(ctx context.Context, roundID uint64, n int) (int, error)
}

// Transferer moves funds out of the ledger.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int, memo string) error
}

// TransactionalTransferer is a Transferer whose transfers join the open
// journal transaction when Transactional reports true. A journal commit
// failure then means nothing was paid.
type TransactionalTransferer interface {
	Transferer
	Transactional() bool
}

// joinsJournal reports whether transfers by t commit or roll back with the
// journal.
func joinsJournal(t Transferer) bool {
	tt, ok := t.(TransactionalTransferer)
	return ok && tt.Transactional()
}

// Journal persists committed changes. A JournalTx is used for exactly one
// ledger operation; the in-memory state is only updated after Commit
// succeeds.
type Journal interface {
	Begin(ctx context.Context) (JournalTx, error)
}

type JournalTx interface {
	PutAdmin(ctx context.Context, admin common.Address) error
	PutRound(ctx context.Context, r Round) error
	PutEntry(ctx context.Context, roundID uint64, e Entry) error
	AppendEvent(ctx context.Context, ev Event) error
	Commit() error
	Rollback() error
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context) (JournalTx, error) { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) PutAdmin(context.Context, common.Address) error { return nil }
func (nopTx) PutRound(context.Context, Round) error { return nil }
func (nopTx) PutEntry(context.Context, uint64, Entry) error { return nil }
func (nopTx) AppendEvent(context.Context, Event) error { return nil }
func (nopTx) Commit() error { return nil }
func (nopTx) Rollback() error { return nil }
