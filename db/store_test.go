// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, CreateSchema(conn))
	return conn
}

type harness struct {
	conn    *sql.DB
	clk     *clock.Mock
	store   *Store
	payouts *PayoutBook
	oracle  *oracle.Dev
	ledger  *ledger.Ledger
}

func newHarness(t *testing.T, conn *sql.DB) *harness {
	t.Helper()

	h := &harness{conn: conn, clk: clock.NewMock()}
	h.clk.Set(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	h.store = NewStore(conn, h.clk)
	h.payouts = NewPayoutBook(h.store)

	var err error
	h.oracle, err = oracle.NewDev("store-test-key")
	require.NoError(t, err)

	h.ledger, err = ledger.New(ledger.Config{
		Admin:    admin,
		Clock:    h.clk,
		Random:   ledger.NewBeaconRandom([]byte("seed")),
		Verifier: h.oracle,
		Revealer: h.oracle,
		Transfer: h.payouts,
		Journal:  h.store,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) enter(t *testing.T, roundID uint64, who common.Address, nums [3]uint8) {
	t.Helper()
	handles, proof, err := h.oracle.EncryptEntry(who, nums)
	require.NoError(t, err)
	r, err := h.ledger.GetRound(roundID)
	require.NoError(t, err)
	require.NoError(t, h.ledger.SubmitEntry(context.Background(), who, roundID, handles, proof, r.EntryFee))
}

func milliEther(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000))
}

func requireSameSnapshot(t *testing.T, want, got ledger.Snapshot) {
	t.Helper()
	require.Equal(t, want.Admin, got.Admin)
	require.Len(t, got.Rounds, len(want.Rounds))
	for i := range want.Rounds {
		w, g := want.Rounds[i].Round, got.Rounds[i].Round
		require.Equal(t, w.ID, g.ID)
		require.Equal(t, w.Name, g.Name)
		require.Zero(t, w.EntryFee.Cmp(g.EntryFee), "round %d entry fee", w.ID)
		require.Zero(t, w.PrizePool.Cmp(g.PrizePool), "round %d prize pool", w.ID)
		require.True(t, w.EndTime.Equal(g.EndTime))
		require.True(t, w.CreatedAt.Equal(g.CreatedAt))
		require.Equal(t, w.Status, g.Status)
		require.Equal(t, w.ParticipantCount, g.ParticipantCount)
		require.Equal(t, w.Winner, g.Winner)
		require.Equal(t, w.WinningNumbers, g.WinningNumbers)
		require.Equal(t, w.NumbersRevealed, g.NumbersRevealed)

		we, ge := want.Rounds[i].Entries, got.Rounds[i].Entries
		require.Len(t, ge, len(we))
		for j := range we {
			require.Equal(t, we[j].Player, ge[j].Player)
			require.Equal(t, we[j].Index, ge[j].Index)
			require.Equal(t, we[j].Handles, ge[j].Handles)
			require.Equal(t, we[j].Proof, ge[j].Proof)
			require.Equal(t, we[j].HasEntered, ge[j].HasEntered)
			require.Equal(t, we[j].HasClaimed, ge[j].HasClaimed)
			require.True(t, we[j].EntryTime.Equal(ge[j].EntryTime))
			require.True(t, we[j].UpdatedAt.Equal(ge[j].UpdatedAt))
		}
	}
}

func TestCreateSchemaIdempotent(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, CreateSchema(conn))
	require.NoError(t, DropSchema(conn))
	require.NoError(t, CreateSchema(conn))
}

func TestLoadEmpty(t *testing.T) {
	conn := openTestDB(t)
	snap, err := NewStore(conn, nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, common.Address{}, snap.Admin)
	require.Empty(t, snap.Rounds)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	h := newHarness(t, conn)
	l := h.ledger

	settled, err := l.CreateRound(ctx, admin, "Daily Lucky Draw", milliEther(5), 24*time.Hour)
	require.NoError(t, err)
	h.enter(t, settled, alice, [3]uint8{3, 7, 9})
	h.enter(t, settled, bob, [3]uint8{1, 2, 3})

	cancelled, err := l.CreateRound(ctx, admin, "Weekly Jackpot", milliEther(1), 7*24*time.Hour)
	require.NoError(t, err)
	h.enter(t, cancelled, alice, [3]uint8{9, 9, 9})

	open, err := l.CreateRound(ctx, admin, "Quick Draw", milliEther(2), time.Hour)
	require.NoError(t, err)

	h.clk.Add(25 * time.Hour)
	winner, err := l.DrawWinner(ctx, settled)
	require.NoError(t, err)
	require.NoError(t, l.MarkNumbersForReveal(ctx, admin, settled))
	nums, err := l.FinalizeFromOracle(ctx, admin, settled)
	require.NoError(t, err)
	if winner == alice {
		require.Equal(t, [3]uint8{3, 7, 9}, nums)
	} else {
		require.Equal(t, [3]uint8{1, 2, 3}, nums)
	}
	_, err = l.ClaimPrize(ctx, winner, settled)
	require.NoError(t, err)

	require.NoError(t, l.CancelRound(ctx, admin, cancelled))
	_, err = l.ClaimRefund(ctx, alice, cancelled)
	require.NoError(t, err)

	require.NoError(t, l.TransferAdmin(ctx, admin, bob))

	loaded, err := h.store.Load(ctx)
	require.NoError(t, err)
	requireSameSnapshot(t, l.Snapshot(), loaded)

	// A fresh ledger restored from the database behaves like the original.
	fresh := newHarness(t, conn)
	require.NoError(t, fresh.ledger.Restore(loaded))
	require.Equal(t, bob, fresh.ledger.Admin())
	require.True(t, fresh.ledger.HasClaimed(settled, winner))
	require.True(t, fresh.ledger.HasClaimed(cancelled, alice))
	_, err = fresh.ledger.ClaimRefund(ctx, alice, cancelled)
	require.ErrorIs(t, err, ledger.ErrAlreadyClaimed)

	r, err := fresh.ledger.GetRound(open)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusActive, r.Status)

	next, err := fresh.ledger.CreateRound(ctx, bob, "After Restart", milliEther(1), time.Hour)
	require.NoError(t, err)
	require.Equal(t, uint64(3), next)

	prize, err := h.payouts.Total(ctx, winner)
	require.NoError(t, err)
	require.Zero(t, prize.Cmp(milliEther(10)))

	all, err := h.payouts.Payouts(ctx, common.Address{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	h := newHarness(t, conn)

	first, err := h.ledger.CreateRound(ctx, admin, "One", milliEther(1), time.Hour)
	require.NoError(t, err)
	second, err := h.ledger.CreateRound(ctx, admin, "Two", milliEther(1), time.Hour)
	require.NoError(t, err)
	h.enter(t, second, alice, [3]uint8{1, 1, 1})
	require.NoError(t, h.ledger.TransferAdmin(ctx, admin, bob))

	all, err := h.store.Events(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, ev := range all {
		require.Equal(t, int64(i+1), ev.Seq)
	}
	require.Equal(t, ledger.EventRoundCreated, all[0].Kind)
	require.Equal(t, first, *all[0].RoundID)
	require.Equal(t, ledger.EventAdminTransferred, all[3].Kind)
	require.Nil(t, all[3].RoundID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(all[2].Payload, &payload))
	require.Equal(t, alice.Hex(), payload["player"])

	forRound, err := h.store.Events(ctx, EventFilter{RoundID: &second})
	require.NoError(t, err)
	require.Len(t, forRound, 2)
	require.Equal(t, ledger.EventEntrySubmitted, forRound[1].Kind)

	after, err := h.store.Events(ctx, EventFilter{After: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, int64(3), after[0].Seq)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	store := NewStore(conn, nil)
	payouts := NewPayoutBook(store)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutAdmin(ctx, admin))
	require.NoError(t, tx.PutRound(ctx, ledger.Round{
		ID:        0,
		Name:      "discarded",
		EntryFee:  milliEther(1),
		PrizePool: new(big.Int),
		EndTime:   time.Unix(1_800_000_000, 0),
		CreatedAt: time.Unix(1_799_996_400, 0),
	}))
	require.NoError(t, payouts.Transfer(ctx, alice, milliEther(1), "refund round 0"))
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, snap.Admin)
	require.Empty(t, snap.Rounds)

	list, err := payouts.Payouts(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPayoutBookValidation(t *testing.T) {
	ctx := context.Background()
	payouts := NewPayoutBook(NewStore(openTestDB(t), nil))

	require.ErrorIs(t, payouts.Transfer(ctx, alice, big.NewInt(0), "zero"), ErrInvalidAmount)
	require.ErrorIs(t, payouts.Transfer(ctx, alice, nil, "nil"), ErrInvalidAmount)
	require.ErrorIs(t, payouts.Transfer(ctx, common.Address{}, milliEther(1), "nobody"), ledger.ErrZeroAddress)

	// Outside a journal transaction the payout is written directly.
	require.NoError(t, payouts.Transfer(ctx, bob, milliEther(3), "manual"))
	list, err := payouts.Payouts(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "manual", list[0].Memo)
	require.Zero(t, list[0].Amount.Cmp(milliEther(3)))
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t), nil)

	_, err := store.EnsureAdmin(ctx, common.Address{})
	require.ErrorIs(t, err, ErrNoAdmin)

	got, err := store.EnsureAdmin(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, admin, got)

	// Later configuration does not override the stored admin
	got, err = store.EnsureAdmin(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, admin, got)
	got, err = store.EnsureAdmin(ctx, common.Address{})
	require.NoError(t, err)
	require.Equal(t, admin, got)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, admin, snap.Admin)
}
