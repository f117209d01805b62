// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var ErrInvalidAmount = errors.New("payout amount must be positive")

// PayoutBook is the ledger's Transferer. Payouts are written to the payout
// outbox; when a journal transaction is open the row joins it, so a payout
// and the claim that caused it commit or roll back together.
type PayoutBook struct {
	store *Store
}

var _ ledger.TransactionalTransferer = (*PayoutBook)(nil)

func NewPayoutBook(store *Store) *PayoutBook {
	return &PayoutBook{store: store}
}

// Transactional reports true: ledger payouts always run inside a journal
// transaction opened by the Store.
func (p *PayoutBook) Transactional() bool { return true }

func (p *PayoutBook) Transfer(ctx context.Context, to common.Address, amount *big.Int, memo string) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ledger.ErrZeroAddress
	}

	const query = `
		INSERT INTO payout (id, recipient, amount, memo, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	args := []any{uuid.NewString(), to.Hex(), amount.String(), memo, p.store.clock.Now().Unix()}

	var err error
	if tx := p.store.current(); tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = p.store.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("failed to record payout: %w", err)
	}
	return nil
}

type Payout struct {
	ID        uuid.UUID
	Recipient common.Address
	Amount    *big.Int
	Memo      string
	CreatedAt time.Time
}

// Payouts lists recorded payouts, oldest first. A zero recipient lists all.
func (p *PayoutBook) Payouts(ctx context.Context, recipient common.Address) ([]Payout, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if recipient == (common.Address{}) {
		rows, err = p.store.db.QueryContext(ctx, `
			SELECT id, recipient, amount, memo, created_at FROM payout ORDER BY created_at, id
		`)
	} else {
		rows, err = p.store.db.QueryContext(ctx, `
			SELECT id, recipient, amount, memo, created_at FROM payout
			WHERE recipient = $1
			ORDER BY created_at, id
		`, recipient.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer rows.Close()

	payouts := []Payout{}
	for rows.Next() {
		var (
			po             Payout
			id, to, amount string
			createdAt      int64
		)
		if err := rows.Scan(&id, &to, &amount, &po.Memo, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		if po.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("payout id: %w", err)
		}
		if po.Amount, err = parseWei(amount); err != nil {
			return nil, fmt.Errorf("payout %s: %w", id, err)
		}
		po.Recipient = common.HexToAddress(to)
		po.CreatedAt = time.Unix(createdAt, 0).UTC()
		payouts = append(payouts, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payouts: %w", err)
	}
	return payouts, nil
}

// Total sums every payout recorded for recipient.
func (p *PayoutBook) Total(ctx context.Context, recipient common.Address) (*big.Int, error) {
	payouts, err := p.Payouts(ctx, recipient)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, po := range payouts {
		total.Add(total, po.Amount)
	}
	return total, nil
}
