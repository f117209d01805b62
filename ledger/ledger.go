// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Config carries the ledger's initial admin and its external capabilities.
// Verifier and Transfer are required; the rest have defaults.
type Config struct {
	Admin    common.Address
	Clock    clock.Clock
	Random   RandomSource
	Verifier Verifier
	Revealer Revealer
	Transfer Transferer
	Journal  Journal
	Sinks    []EventSink
}

type roundState struct {
	round        Round
	entries      map[common.Address]*Entry
	participants []common.Address
}

// Ledger owns all rounds and entries. A single RWMutex serializes mutations;
// views run concurrently under the read lock.
type Ledger struct {
	mu     sync.RWMutex
	admin  common.Address
	rounds []*roundState

	clock    clock.Clock
	random   RandomSource
	verifier Verifier
	revealer Revealer
	transfer Transferer
	journal  Journal
	sinks    []EventSink
}

func New(cfg Config) (*Ledger, error) {
	if cfg.Admin == (common.Address{}) {
		return nil, fmt.Errorf("ledger: admin: %w", ErrZeroAddress)
	}
	if cfg.Verifier == nil {
		return nil, errors.New("ledger: verifier is required")
	}
	if cfg.Transfer == nil {
		return nil, errors.New("ledger: transferer is required")
	}

	l := &Ledger{
		admin:    cfg.Admin,
		clock:    cfg.Clock,
		random:   cfg.Random,
		verifier: cfg.Verifier,
		revealer: cfg.Revealer,
		transfer: cfg.Transfer,
		journal:  cfg.Journal,
		sinks:    cfg.Sinks,
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	if l.random == nil {
		l.random = CryptoRandom{}
	}
	if l.journal == nil {
		l.journal = nopJournal{}
	}
	return l, nil
}

// AddSink registers an event sink after construction, for sinks that read
// from the ledger themselves.
func (l *Ledger) AddSink(s EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// CreateRound opens a new round and returns its id.
func (l *Ledger) CreateRound(ctx context.Context, caller common.Address, name string, entryFee *big.Int, duration time.Duration) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return 0, ErrNotAdmin
	}
	if entryFee == nil || entryFee.Cmp(minEntryFee) < 0 || entryFee.Cmp(maxEntryFee) > 0 {
		return 0, ErrInvalidFee
	}
	if duration < MinDuration || duration > MaxDuration {
		return 0, ErrInvalidDuration
	}

	now := l.stamp()
	r := Round{
		ID:        uint64(len(l.rounds)),
		Name:      name,
		EntryFee:  cloneInt(entryFee),
		EndTime:   now.Add(duration.Truncate(time.Second)),
		PrizePool: new(big.Int),
		Status:    StatusActive,
		CreatedAt: now,
	}

	ev := l.event(EventRoundCreated, r.ID)
	ev.Name = r.Name
	ev.EntryFee = cloneInt(r.EntryFee)
	ev.EndTime = r.EndTime

	if err := l.commit(ctx, change{roundID: r.ID, round: &r, events: []Event{ev}}); err != nil {
		return 0, err
	}
	return r.ID, nil
}

// SubmitEntry records the caller's first entry. value is the amount paid
// with the call and must equal the entry fee.
func (l *Ledger) SubmitEntry(ctx context.Context, caller common.Address, roundID uint64, handles Handles, proof []byte, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rs, err := l.open(roundID)
	if err != nil {
		return err
	}
	if value == nil || value.Cmp(rs.round.EntryFee) != 0 {
		return ErrInvalidFee
	}
	if _, ok := rs.entries[caller]; ok {
		return ErrAlreadyEntered
	}
	if err := l.verifier.Verify(ctx, caller, handles, proof); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}

	r := rs.round.clone()
	r.ParticipantCount++
	r.PrizePool.Add(r.PrizePool, r.EntryFee)

	now := l.stamp()
	e := Entry{
		Player:     caller,
		Index:      uint64(len(rs.participants)),
		Handles:    handles,
		Proof:      append([]byte(nil), proof...),
		HasEntered: true,
		EntryTime:  now,
		UpdatedAt:  now,
	}

	ev := l.event(EventEntrySubmitted, roundID)
	ev.Player = caller

	return l.commit(ctx, change{roundID: roundID, round: &r, entry: &e, events: []Event{ev}})
}

// UpdateEntry replaces the caller's ciphertext handles and proof. No payment
// is taken and the pool is unchanged.
func (l *Ledger) UpdateEntry(ctx context.Context, caller common.Address, roundID uint64, handles Handles, proof []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rs, err := l.open(roundID)
	if err != nil {
		return err
	}
	prev, ok := rs.entries[caller]
	if !ok {
		return ErrNotEntered
	}
	if err := l.verifier.Verify(ctx, caller, handles, proof); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}

	e := prev.clone()
	e.Handles = handles
	e.Proof = append([]byte(nil), proof...)
	e.UpdatedAt = l.stamp()

	ev := l.event(EventEntryUpdated, roundID)
	ev.Player = caller

	return l.commit(ctx, change{roundID: roundID, entry: &e, events: []Event{ev}})
}

// DrawWinner picks the winner of an ended round. Anyone may trigger it.
func (l *Ledger) DrawWinner(ctx context.Context, roundID uint64) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return common.Address{}, err
	}
	if rs.round.Status != StatusActive {
		return common.Address{}, ErrRoundNotActive
	}
	if l.clock.Now().Before(rs.round.EndTime) {
		return common.Address{}, ErrRoundNotEnded
	}
	n := len(rs.participants)
	if n == 0 {
		return common.Address{}, ErrNoParticipants
	}

	idx, err := l.random.Intn(ctx, roundID, n)
	if err != nil {
		return common.Address{}, fmt.Errorf("ledger: draw round %d: %w", roundID, err)
	}
	if idx < 0 || idx >= n {
		return common.Address{}, fmt.Errorf("ledger: draw round %d: index %d out of range [0, %d)", roundID, idx, n)
	}
	winner := rs.participants[idx]

	r := rs.round.clone()
	r.Status = StatusDrawing
	r.Winner = winner

	ev := l.event(EventWinnerDrawn, roundID)
	ev.Player = winner

	if err := l.commit(ctx, change{roundID: roundID, round: &r, events: []Event{ev}}); err != nil {
		return common.Address{}, err
	}
	return winner, nil
}

// MarkNumbersForReveal moves a drawn round to Revealing.
func (l *Ledger) MarkNumbersForReveal(ctx context.Context, caller common.Address, roundID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAdmin
	}
	rs, err := l.lookup(roundID)
	if err != nil {
		return err
	}
	switch rs.round.Status {
	case StatusDrawing:
	case StatusRevealing, StatusSettled:
		return ErrAlreadyRevealed
	case StatusCancelled:
		return ErrRoundNotActive
	default:
		return fmt.Errorf("%w: winner not drawn", ErrNotRevealed)
	}

	r := rs.round.clone()
	r.Status = StatusRevealing

	return l.commit(ctx, change{roundID: roundID, round: &r, events: []Event{l.event(EventNumbersMarkedForReveal, roundID)}})
}

// FinalizeRound settles a round in Revealing with the revealed winning
// numbers.
func (l *Ledger) FinalizeRound(ctx context.Context, caller common.Address, roundID uint64, numbers [3]uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rs, err := l.revealing(caller, roundID)
	if err != nil {
		return err
	}
	return l.settle(ctx, rs, numbers)
}

// FinalizeFromOracle obtains the winner's plaintext numbers from the
// revealer and settles the round with them.
func (l *Ledger) FinalizeFromOracle(ctx context.Context, caller common.Address, roundID uint64) ([3]uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var numbers [3]uint8
	rs, err := l.revealing(caller, roundID)
	if err != nil {
		return numbers, err
	}
	if l.revealer == nil {
		return numbers, errors.New("ledger: no revealer configured")
	}

	e := rs.entries[rs.round.Winner]
	numbers, err = l.revealer.Reveal(ctx, roundID, e.Player, e.Handles)
	if err != nil {
		return numbers, fmt.Errorf("ledger: reveal round %d: %w", roundID, err)
	}
	return numbers, l.settle(ctx, rs, numbers)
}

// ClaimPrize pays the prize pool of a settled round to its winner.
func (l *Ledger) ClaimPrize(ctx context.Context, caller common.Address, roundID uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return nil, err
	}
	if rs.round.Status != StatusSettled {
		return nil, fmt.Errorf("%w: round is %s", ErrNotRevealed, rs.round.Status)
	}
	if caller != rs.round.Winner {
		return nil, ErrNotWinner
	}
	prev := rs.entries[caller]
	if prev.HasClaimed {
		return nil, ErrAlreadyClaimed
	}

	e := prev.clone()
	e.HasClaimed = true
	amount := cloneInt(rs.round.PrizePool)

	ev := l.event(EventPrizeClaimed, roundID)
	ev.Player = caller
	ev.Amount = cloneInt(amount)

	err = l.commit(ctx, change{
		roundID: roundID,
		entry:   &e,
		events:  []Event{ev},
		payout:  &payout{to: caller, amount: amount, memo: fmt.Sprintf("prize round %d", roundID)},
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// CancelRound cancels an active round. Refunds are claimed individually.
func (l *Ledger) CancelRound(ctx context.Context, caller common.Address, roundID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAdmin
	}
	rs, err := l.lookup(roundID)
	if err != nil {
		return err
	}
	if rs.round.Status != StatusActive {
		return ErrRoundNotActive
	}

	r := rs.round.clone()
	r.Status = StatusCancelled

	return l.commit(ctx, change{roundID: roundID, round: &r, events: []Event{l.event(EventRoundCancelled, roundID)}})
}

// ClaimRefund returns the entry fee of a cancelled round to an entrant.
func (l *Ledger) ClaimRefund(ctx context.Context, caller common.Address, roundID uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return nil, err
	}
	if rs.round.Status != StatusCancelled {
		return nil, ErrNotRefundable
	}
	prev, ok := rs.entries[caller]
	if !ok {
		return nil, ErrNotRefundable
	}
	if prev.HasClaimed {
		return nil, ErrAlreadyClaimed
	}

	e := prev.clone()
	e.HasClaimed = true
	amount := cloneInt(rs.round.EntryFee)

	ev := l.event(EventRefundClaimed, roundID)
	ev.Player = caller
	ev.Amount = cloneInt(amount)

	err = l.commit(ctx, change{
		roundID: roundID,
		entry:   &e,
		events:  []Event{ev},
		payout:  &payout{to: caller, amount: amount, memo: fmt.Sprintf("refund round %d", roundID)},
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// TransferAdmin hands the admin role to newAdmin.
func (l *Ledger) TransferAdmin(ctx context.Context, caller, newAdmin common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAdmin
	}
	if newAdmin == (common.Address{}) {
		return ErrZeroAddress
	}

	ev := l.event(EventAdminTransferred, 0)
	ev.OldAdmin = l.admin
	ev.NewAdmin = newAdmin

	return l.commit(ctx, change{admin: &newAdmin, events: []Event{ev}})
}

func (l *Ledger) lookup(roundID uint64) (*roundState, error) {
	if roundID >= uint64(len(l.rounds)) {
		return nil, ErrRoundNotFound
	}
	return l.rounds[roundID], nil
}

// open returns a round that still accepts entries.
func (l *Ledger) open(roundID uint64) (*roundState, error) {
	rs, err := l.lookup(roundID)
	if err != nil {
		return nil, err
	}
	if rs.round.Status != StatusActive {
		return nil, ErrRoundNotActive
	}
	if !l.clock.Now().Before(rs.round.EndTime) {
		return nil, ErrRoundEnded
	}
	return rs, nil
}

func (l *Ledger) revealing(caller common.Address, roundID uint64) (*roundState, error) {
	if caller != l.admin {
		return nil, ErrNotAdmin
	}
	rs, err := l.lookup(roundID)
	if err != nil {
		return nil, err
	}
	if rs.round.NumbersRevealed {
		return nil, ErrAlreadyRevealed
	}
	if rs.round.Status != StatusRevealing {
		return nil, fmt.Errorf("%w: round is %s", ErrNotRevealed, rs.round.Status)
	}
	return rs, nil
}

func (l *Ledger) settle(ctx context.Context, rs *roundState, numbers [3]uint8) error {
	for _, n := range numbers {
		if n < MinNumber || n > MaxNumber {
			return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidNumber, n, MinNumber, MaxNumber)
		}
	}

	r := rs.round.clone()
	r.WinningNumbers = numbers
	r.NumbersRevealed = true
	r.Status = StatusSettled

	ev := l.event(EventRoundSettled, r.ID)
	ev.Player = r.Winner
	ev.Amount = cloneInt(r.PrizePool)

	return l.commit(ctx, change{roundID: r.ID, round: &r, events: []Event{ev}})
}

// stamp is the current time at the second precision rounds are stored with.
func (l *Ledger) stamp() time.Time {
	return l.clock.Now().UTC().Truncate(time.Second)
}

func (l *Ledger) event(kind EventKind, roundID uint64) Event {
	return Event{ID: uuid.New(), Kind: kind, At: l.stamp(), RoundID: roundID}
}

type payout struct {
	to     common.Address
	amount *big.Int
	memo   string
}

// change is the complete effect of one operation.
type change struct {
	roundID uint64
	round   *Round
	entry   *Entry
	admin   *common.Address
	events  []Event
	payout  *payout
}

// commit journals ch, performs its payout and installs it in memory, in that
// order. The claimed flag is part of the journal transaction, so a failed
// transfer rolls it back together with everything else. A failed commit
// after a payout is a failed transfer when the payout joined the
// transaction. Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, ch change) error {
	tx, err := l.journal.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin journal: %w", err)
	}
	defer tx.Rollback()

	if ch.admin != nil {
		if err := tx.PutAdmin(ctx, *ch.admin); err != nil {
			return fmt.Errorf("ledger: persist admin: %w", err)
		}
	}
	if ch.round != nil {
		if err := tx.PutRound(ctx, *ch.round); err != nil {
			return fmt.Errorf("ledger: persist round %d: %w", ch.roundID, err)
		}
	}
	if ch.entry != nil {
		if err := tx.PutEntry(ctx, ch.roundID, *ch.entry); err != nil {
			return fmt.Errorf("ledger: persist entry: %w", err)
		}
	}
	for _, ev := range ch.events {
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return fmt.Errorf("ledger: persist event %s: %w", ev.Kind, err)
		}
	}

	if p := ch.payout; p != nil {
		if err := l.transfer.Transfer(ctx, p.to, p.amount, p.memo); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if ch.payout == nil {
			return fmt.Errorf("ledger: commit journal: %w", err)
		}
		// The payout was part of the transaction, so it is gone too and the
		// claim stays open.
		if joinsJournal(l.transfer) {
			return fmt.Errorf("%w: commit journal: %v", ErrTransferFailed, err)
		}
		// Funds already left; keep memory in line with them so the claim
		// cannot be paid twice, and leave the journal gap to the operator.
		slog.Error("payout sent but journal commit failed",
			"round_id", ch.roundID,
			"to", ch.payout.to.Hex(),
			"amount", ch.payout.amount.String(),
			"error", err,
		)
	}

	l.install(ch)
	for _, ev := range ch.events {
		for _, s := range l.sinks {
			s.Publish(ctx, ev)
		}
	}
	return nil
}

func (l *Ledger) install(ch change) {
	if ch.admin != nil {
		l.admin = *ch.admin
	}
	if ch.round != nil {
		r := ch.round.clone()
		if r.ID == uint64(len(l.rounds)) {
			l.rounds = append(l.rounds, &roundState{round: r, entries: make(map[common.Address]*Entry)})
		} else {
			l.rounds[r.ID].round = r
		}
	}
	if ch.entry != nil {
		rs := l.rounds[ch.roundID]
		e := ch.entry.clone()
		if _, ok := rs.entries[e.Player]; !ok {
			rs.participants = append(rs.participants, e.Player)
		}
		rs.entries[e.Player] = &e
	}
}

// Admin returns the current admin address.
func (l *Ledger) Admin() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.admin
}

func (l *Ledger) RoundCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.rounds))
}

func (l *Ledger) RoundExists(roundID uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return roundID < uint64(len(l.rounds))
}

// ListRounds returns every round id in creation order.
func (l *Ledger) ListRounds() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]uint64, len(l.rounds))
	for i := range l.rounds {
		ids[i] = uint64(i)
	}
	return ids
}

// Rounds returns a copy of every round in creation order.
func (l *Ledger) Rounds() []Round {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Round, len(l.rounds))
	for i, rs := range l.rounds {
		out[i] = rs.round.clone()
	}
	return out
}

func (l *Ledger) GetRound(roundID uint64) (Round, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return Round{}, err
	}
	return rs.round.clone(), nil
}

// GetRoundParticipants returns entrants in the order they entered.
func (l *Ledger) GetRoundParticipants(roundID uint64) ([]common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return nil, err
	}
	return append([]common.Address{}, rs.participants...), nil
}

// HasEntered is false for unknown rounds.
func (l *Ledger) HasEntered(roundID uint64, player common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return false
	}
	_, ok := rs.entries[player]
	return ok
}

// HasClaimed is false for unknown rounds.
func (l *Ledger) HasClaimed(roundID uint64, player common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return false
	}
	e, ok := rs.entries[player]
	return ok && e.HasClaimed
}

func (l *Ledger) GetEntryTime(roundID uint64, player common.Address) (time.Time, error) {
	e, err := l.GetEntry(roundID, player)
	if err != nil {
		return time.Time{}, err
	}
	return e.EntryTime, nil
}

func (l *Ledger) GetEntry(roundID uint64, player common.Address) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rs, err := l.lookup(roundID)
	if err != nil {
		return Entry{}, err
	}
	e, ok := rs.entries[player]
	if !ok {
		return Entry{}, ErrNotEntered
	}
	return e.clone(), nil
}

// Snapshot is the full persistent state of a ledger.
type Snapshot struct {
	Admin  common.Address
	Rounds []RoundRecord
}

type RoundRecord struct {
	Round   Round
	Entries []Entry // ordered by Index
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{Admin: l.admin, Rounds: make([]RoundRecord, len(l.rounds))}
	for i, rs := range l.rounds {
		rec := RoundRecord{Round: rs.round.clone(), Entries: make([]Entry, 0, len(rs.participants))}
		for _, p := range rs.participants {
			rec.Entries = append(rec.Entries, rs.entries[p].clone())
		}
		s.Rounds[i] = rec
	}
	return s
}

// Restore replaces the ledger state with s after checking its invariants.
// A zero s.Admin keeps the configured admin.
func (l *Ledger) Restore(s Snapshot) error {
	rounds := make([]*roundState, 0, len(s.Rounds))
	for i, rec := range s.Rounds {
		r := rec.Round.clone()
		if r.ID != uint64(i) {
			return fmt.Errorf("ledger: restore: round at position %d has id %d", i, r.ID)
		}

		entries := append([]Entry(nil), rec.Entries...)
		sort.Slice(entries, func(a, b int) bool { return entries[a].Index < entries[b].Index })

		rs := &roundState{round: r, entries: make(map[common.Address]*Entry, len(entries))}
		for j, e := range entries {
			if e.Index != uint64(j) {
				return fmt.Errorf("ledger: restore: round %d: entry index %d at position %d", r.ID, e.Index, j)
			}
			if _, dup := rs.entries[e.Player]; dup {
				return fmt.Errorf("ledger: restore: round %d: duplicate entry for %s", r.ID, e.Player.Hex())
			}
			e := e.clone()
			rs.entries[e.Player] = &e
			rs.participants = append(rs.participants, e.Player)
		}

		if r.ParticipantCount != uint64(len(entries)) {
			return fmt.Errorf("ledger: restore: round %d: participant count %d, %d entries", r.ID, r.ParticipantCount, len(entries))
		}
		want := new(big.Int).Mul(r.EntryFee, new(big.Int).SetUint64(r.ParticipantCount))
		if r.PrizePool.Cmp(want) != 0 {
			return fmt.Errorf("ledger: restore: round %d: prize pool %s, want %s", r.ID, r.PrizePool, want)
		}
		if r.Winner != (common.Address{}) {
			if _, ok := rs.entries[r.Winner]; !ok {
				return fmt.Errorf("ledger: restore: round %d: winner %s never entered", r.ID, r.Winner.Hex())
			}
		}
		rounds = append(rounds, rs)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s.Admin != (common.Address{}) {
		l.admin = s.Admin
	}
	l.rounds = rounds
	return nil
}
