// Package reward tracks monetary obligations from award to settlement: an
// in-memory ledger backed by durable storage, and an asynchronous submitter
// that settles pending transactions against the payment backend.
package reward

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
	"github.com/tacticalworks/missiond/internal/id"
	"github.com/tacticalworks/missiond/internal/mission/event"
	"github.com/tacticalworks/missiond/internal/reward/domain"
	"github.com/tacticalworks/missiond/internal/storage"
)

// LedgerConfig holds the identity and currency rewards are issued under.
type LedgerConfig struct {
	PlayerID string
	Currency string
}

// Ledger is the source of truth for reward transactions until settlement
// confirms them. All total mutations go through its single mutex: the
// tick-driven award path and the async settlement-completion path never
// race on totals.
type Ledger struct {
	mu            sync.Mutex
	playerID      string
	currency      string
	store         storage.TransactionStore
	sink          event.Sink
	clock         func() time.Time
	idGenerator   func() (string, error)
	handoff       func(txID string)
	history       []domain.Transaction
	index         map[string]int
	totalEarned   float64
	pendingTotals float64
}

// NewLedger creates a ledger persisting to store and emitting domain events
// to sink. Both may be nil in tests; a nil store makes awards non-durable.
func NewLedger(store storage.TransactionStore, sink event.Sink, cfg LedgerConfig) *Ledger {
	return &Ledger{
		playerID:    cfg.PlayerID,
		currency:    cfg.Currency,
		store:       store,
		sink:        sink,
		clock:       time.Now,
		idGenerator: id.NewID,
		index:       make(map[string]int),
	}
}

// SetHandoff registers the asynchronous submission hook invoked after a
// transaction is durably persisted. Typically Submitter.Enqueue.
func (l *Ledger) SetHandoff(fn func(txID string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handoff = fn
}

// LoadHistory replaces the in-memory history with the stored transactions
// and recomputes totals. Transactions stuck in processing from a previous
// run revert to pending so a sweep can pick them up again.
func (l *Ledger) LoadHistory(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	txs, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reward history: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = make([]domain.Transaction, 0, len(txs))
	l.index = make(map[string]int, len(txs))
	for _, tx := range txs {
		if tx.Status == domain.StatusProcessing {
			tx.Status = domain.StatusPending
		}
		l.index[tx.ID] = len(l.history)
		l.history = append(l.history, tx)
	}
	l.recomputeLocked()
	return nil
}

// Award creates a pending reward transaction, persists it durably, then
// hands it off for asynchronous settlement. Amounts of zero or less are a
// silent no-op returning an empty transaction ID: callers routinely pass
// computed values that are legitimately zero.
//
// When the durable write fails the in-memory obligation is kept, a
// reward_persist_failed event is emitted, and the storage error is
// returned so the caller can retry the durability step.
func (l *Ledger) Award(ctx context.Context, amount float64, reason string) (string, error) {
	if amount <= 0 {
		return "", nil
	}

	txID, err := l.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}

	tx := domain.Transaction{
		ID:        txID,
		PlayerID:  l.playerID,
		Amount:    amount,
		Currency:  l.currency,
		Reason:    reason,
		CreatedAt: l.clock().UTC(),
		Status:    domain.StatusPending,
	}

	l.mu.Lock()
	l.index[tx.ID] = len(l.history)
	l.history = append(l.history, tx)
	l.pendingTotals += amount
	handoff := l.handoff
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Put(ctx, tx); err != nil {
			l.emit(event.TypeRewardPersistFailed, event.RewardPersistFailedPayload{
				TransactionID: tx.ID,
				Amount:        tx.Amount,
				Error:         err.Error(),
			})
			return tx.ID, apperrors.Wrap(apperrors.CodeStorageFailure, "persist reward transaction", err)
		}
	}

	l.emit(event.TypeRewardAwarded, event.RewardAwardedPayload{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Reason:        tx.Reason,
	})

	if handoff != nil {
		handoff(tx.ID)
	}
	return tx.ID, nil
}

// Reconcile recomputes earned and pending totals from the transaction
// history. Idempotent; used after bulk loads and submitter batches to guard
// against drift.
func (l *Ledger) Reconcile() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recomputeLocked()
}

func (l *Ledger) recomputeLocked() {
	var earned, pending float64
	for _, tx := range l.history {
		switch tx.Status {
		case domain.StatusCompleted:
			earned += tx.Amount
		case domain.StatusPending, domain.StatusProcessing:
			pending += tx.Amount
		}
	}
	l.totalEarned = earned
	l.pendingTotals = pending
}

// TotalEarned returns the sum of settled transaction amounts.
func (l *Ledger) TotalEarned() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalEarned
}

// PendingRewards returns the sum of pending and in-flight amounts.
func (l *Ledger) PendingRewards() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingTotals
}

// History returns a copy of the transaction history, oldest first.
func (l *Ledger) History() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Transaction, len(l.history))
	copy(out, l.history)
	return out
}

// Transaction returns the transaction with the given ID.
func (l *Ledger) Transaction(txID string) (domain.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.index[txID]
	if !ok {
		return domain.Transaction{}, false
	}
	return l.history[pos], true
}

// Settleable returns the transactions eligible for a settlement attempt
// (pending or failed-retryable), oldest first.
func (l *Ledger) Settleable() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range l.history {
		if tx.Status.Settleable() {
			out = append(out, tx)
		}
	}
	return out
}

// BeginSettlement transitions a settleable transaction to processing and
// returns its snapshot. It reports false when the transaction does not
// exist or is not eligible, which also guards completed transactions
// against regression.
func (l *Ledger) BeginSettlement(ctx context.Context, txID string) (domain.Transaction, bool) {
	l.mu.Lock()
	pos, ok := l.index[txID]
	if !ok || !l.history[pos].Status.Settleable() {
		l.mu.Unlock()
		return domain.Transaction{}, false
	}
	if l.history[pos].Status == domain.StatusFailed {
		// Failed amounts left the pending total; re-entering settlement
		// counts them as pending again.
		l.pendingTotals += l.history[pos].Amount
	}
	l.history[pos].Status = domain.StatusProcessing
	tx := l.history[pos]
	l.mu.Unlock()

	l.persist(ctx, tx)
	return tx, true
}

// CompleteSettlement marks a processing transaction as settled, records the
// confirmation handle, and moves its amount from pending to earned.
func (l *Ledger) CompleteSettlement(ctx context.Context, txID, settlementHash string) {
	l.mu.Lock()
	pos, ok := l.index[txID]
	if !ok || l.history[pos].Status != domain.StatusProcessing {
		l.mu.Unlock()
		return
	}
	l.history[pos].Status = domain.StatusCompleted
	l.history[pos].SettlementHash = settlementHash
	tx := l.history[pos]
	l.pendingTotals -= tx.Amount
	l.totalEarned += tx.Amount
	l.mu.Unlock()

	l.persist(ctx, tx)
	l.emit(event.TypeTransactionSettled, event.TransactionSettledPayload{
		TransactionID:  tx.ID,
		Amount:         tx.Amount,
		Status:         string(domain.StatusCompleted),
		SettlementHash: settlementHash,
	})
}

// FailSettlement marks a processing transaction as failed but retryable: it
// stays eligible for future pending sweeps.
func (l *Ledger) FailSettlement(ctx context.Context, txID string, cause error) {
	l.mu.Lock()
	pos, ok := l.index[txID]
	if !ok || l.history[pos].Status != domain.StatusProcessing {
		l.mu.Unlock()
		return
	}
	l.history[pos].Status = domain.StatusFailed
	tx := l.history[pos]
	l.pendingTotals -= tx.Amount
	l.mu.Unlock()

	l.persist(ctx, tx)
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	l.emit(event.TypeTransactionSettled, event.TransactionSettledPayload{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Status:        string(domain.StatusFailed),
		Error:         errMsg,
	})
}

func (l *Ledger) persist(ctx context.Context, tx domain.Transaction) {
	if l.store == nil {
		return
	}
	if err := l.store.Put(ctx, tx); err != nil {
		log.Printf("reward: persist transaction %s: %v", tx.ID, err)
	}
}

func (l *Ledger) emit(typ event.Type, payload any) {
	if l.sink == nil {
		return
	}
	evtID, err := l.idGenerator()
	if err != nil {
		evtID = ""
	}
	l.sink.Emit(event.Event{
		ID:        evtID,
		Type:      typ,
		Timestamp: l.clock().UTC(),
		Payload:   payload,
	})
}
