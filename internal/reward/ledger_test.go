package reward

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
	"github.com/tacticalworks/missiond/internal/mission/event"
	"github.com/tacticalworks/missiond/internal/reward/domain"
	"github.com/tacticalworks/missiond/internal/storage"
	"github.com/tacticalworks/missiond/internal/storage/memory"
)

func newTestLedger(store storage.TransactionStore, sink event.Sink) *Ledger {
	l := NewLedger(store, sink, LedgerConfig{PlayerID: "player-1", Currency: "USDC"})
	l.clock = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	n := 0
	l.idGenerator = func() (string, error) {
		n++
		return fmt.Sprintf("id-%04d", n), nil
	}
	return l
}

func TestAwardCreatesPendingTransaction(t *testing.T) {
	store := memory.NewStore()
	ledger := newTestLedger(store, nil)

	txID, err := ledger.Award(context.Background(), 3, "Objective: reach the tower")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if txID == "" {
		t.Fatal("expected transaction id")
	}

	tx, ok := ledger.Transaction(txID)
	if !ok {
		t.Fatal("transaction not found")
	}
	if tx.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", tx.Status)
	}
	if tx.Amount != 3 || tx.Currency != "USDC" || tx.PlayerID != "player-1" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if ledger.PendingRewards() != 3 {
		t.Fatalf("pending = %v, want 3", ledger.PendingRewards())
	}
	if ledger.TotalEarned() != 0 {
		t.Fatalf("earned = %v, want 0", ledger.TotalEarned())
	}

	stored, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != txID {
		t.Fatalf("stored = %+v, want one transaction %s", stored, txID)
	}
}

func TestAwardZeroOrNegativeIsNoOp(t *testing.T) {
	store := memory.NewStore()
	ledger := newTestLedger(store, nil)

	for _, amount := range []float64{0, -5} {
		txID, err := ledger.Award(context.Background(), amount, "nothing")
		if err != nil {
			t.Fatalf("Award(%v): %v", amount, err)
		}
		if txID != "" {
			t.Fatalf("Award(%v) = %q, want empty id", amount, txID)
		}
	}
	if len(ledger.History()) != 0 {
		t.Fatal("expected empty history")
	}
}

type failingStore struct {
	err error
}

func (s failingStore) Put(context.Context, domain.Transaction) error { return s.err }

func (s failingStore) SaveAll(context.Context, []domain.Transaction) error { return s.err }
func (s failingStore) Load(context.Context) ([]domain.Transaction, error) {
	return nil, s.err
}

func TestAwardKeepsObligationWhenPersistFails(t *testing.T) {
	sink := event.NewLog(16)
	ledger := newTestLedger(failingStore{err: errors.New("disk full")}, sink)

	txID, err := ledger.Award(context.Background(), 5, "Objective: extract intel")
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.GetCode(err) != apperrors.CodeStorageFailure {
		t.Fatalf("code = %v, want storage_failure", apperrors.GetCode(err))
	}
	if txID == "" {
		t.Fatal("expected transaction id even on persist failure")
	}
	if _, ok := ledger.Transaction(txID); !ok {
		t.Fatal("in-memory obligation lost")
	}
	if ledger.PendingRewards() != 5 {
		t.Fatalf("pending = %v, want 5", ledger.PendingRewards())
	}

	var sawPersistFailed bool
	for _, evt := range sink.Events() {
		if evt.Type == event.TypeRewardPersistFailed {
			sawPersistFailed = true
		}
	}
	if !sawPersistFailed {
		t.Fatal("expected reward_persist_failed event")
	}
}

func TestAwardInvokesHandoffAfterPersist(t *testing.T) {
	store := memory.NewStore()
	ledger := newTestLedger(store, nil)

	var handedOff []string
	ledger.SetHandoff(func(txID string) {
		if stored, _ := store.Load(context.Background()); len(stored) == 0 {
			t.Error("handoff before durable write")
		}
		handedOff = append(handedOff, txID)
	})

	txID, err := ledger.Award(context.Background(), 2, "Objective: avoid patrols")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if len(handedOff) != 1 || handedOff[0] != txID {
		t.Fatalf("handoff = %v, want [%s]", handedOff, txID)
	}
}

func TestSettlementLifecycleMovesTotals(t *testing.T) {
	store := memory.NewStore()
	sink := event.NewLog(16)
	ledger := newTestLedger(store, sink)

	txID, err := ledger.Award(context.Background(), 7.5, "Mission: Dead Drop completion bonus")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}

	if _, ok := ledger.BeginSettlement(context.Background(), txID); !ok {
		t.Fatal("BeginSettlement refused pending transaction")
	}
	if tx, _ := ledger.Transaction(txID); tx.Status != domain.StatusProcessing {
		t.Fatalf("status = %q, want processing", tx.Status)
	}
	if ledger.PendingRewards() != 7.5 {
		t.Fatalf("pending during processing = %v, want 7.5", ledger.PendingRewards())
	}

	ledger.CompleteSettlement(context.Background(), txID, "0xabc123")

	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", tx.Status)
	}
	if tx.SettlementHash != "0xabc123" {
		t.Fatalf("hash = %q, want 0xabc123", tx.SettlementHash)
	}
	if ledger.TotalEarned() != 7.5 {
		t.Fatalf("earned = %v, want 7.5", ledger.TotalEarned())
	}
	if ledger.PendingRewards() != 0 {
		t.Fatalf("pending = %v, want 0", ledger.PendingRewards())
	}

	var settled bool
	for _, evt := range sink.Events() {
		if evt.Type == event.TypeTransactionSettled {
			settled = true
		}
	}
	if !settled {
		t.Fatal("expected transaction_settled event")
	}
}

func TestFailedSettlementLeavesRetryableTransaction(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)

	txID, _ := ledger.Award(context.Background(), 4, "Objective: plant beacon")
	ledger.BeginSettlement(context.Background(), txID)
	ledger.FailSettlement(context.Background(), txID, errors.New("network partition"))

	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusFailed {
		t.Fatalf("status = %q, want failed", tx.Status)
	}
	// Failed amounts count in neither total until retried.
	if ledger.PendingRewards() != 0 {
		t.Fatalf("pending = %v, want 0", ledger.PendingRewards())
	}
	if ledger.TotalEarned() != 0 {
		t.Fatalf("earned = %v, want 0", ledger.TotalEarned())
	}

	// Retry path: the failed transaction is settleable again and its amount
	// re-enters the pending total.
	settleable := ledger.Settleable()
	if len(settleable) != 1 || settleable[0].ID != txID {
		t.Fatalf("settleable = %+v, want [%s]", settleable, txID)
	}
	if _, ok := ledger.BeginSettlement(context.Background(), txID); !ok {
		t.Fatal("failed transaction not retryable")
	}
	if ledger.PendingRewards() != 4 {
		t.Fatalf("pending after retry = %v, want 4", ledger.PendingRewards())
	}
	ledger.CompleteSettlement(context.Background(), txID, "0xdef456")
	if ledger.TotalEarned() != 4 {
		t.Fatalf("earned = %v, want 4", ledger.TotalEarned())
	}
}

func TestCompletedTransactionNeverRegresses(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)

	txID, _ := ledger.Award(context.Background(), 6, "Objective: reach exfil")
	ledger.BeginSettlement(context.Background(), txID)
	ledger.CompleteSettlement(context.Background(), txID, "0x111")

	if _, ok := ledger.BeginSettlement(context.Background(), txID); ok {
		t.Fatal("BeginSettlement accepted completed transaction")
	}
	ledger.FailSettlement(context.Background(), txID, errors.New("late failure"))
	ledger.CompleteSettlement(context.Background(), txID, "0x222")

	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusCompleted || tx.SettlementHash != "0x111" {
		t.Fatalf("transaction regressed: %+v", tx)
	}
	if ledger.TotalEarned() != 6 {
		t.Fatalf("earned = %v, want 6", ledger.TotalEarned())
	}
}

func TestLoadHistoryRevertsProcessingAndRecomputes(t *testing.T) {
	store := memory.NewStore()
	created := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	seed := []domain.Transaction{
		{ID: "tx-a", PlayerID: "player-1", Amount: 2, Currency: "USDC", Status: domain.StatusCompleted, CreatedAt: created},
		{ID: "tx-b", PlayerID: "player-1", Amount: 3, Currency: "USDC", Status: domain.StatusProcessing, CreatedAt: created.Add(time.Second)},
		{ID: "tx-c", PlayerID: "player-1", Amount: 5, Currency: "USDC", Status: domain.StatusFailed, CreatedAt: created.Add(2 * time.Second)},
	}
	if err := store.SaveAll(context.Background(), seed); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	ledger := newTestLedger(store, nil)
	if err := ledger.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	tx, ok := ledger.Transaction("tx-b")
	if !ok || tx.Status != domain.StatusPending {
		t.Fatalf("tx-b = %+v, want reverted to pending", tx)
	}
	if ledger.TotalEarned() != 2 {
		t.Fatalf("earned = %v, want 2", ledger.TotalEarned())
	}
	if ledger.PendingRewards() != 3 {
		t.Fatalf("pending = %v, want 3", ledger.PendingRewards())
	}
	// Both the reverted and the failed transaction are eligible for a sweep.
	if got := len(ledger.Settleable()); got != 2 {
		t.Fatalf("settleable = %d, want 2", got)
	}
}

func TestTotalsMatchHistoryInvariant(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	ctx := context.Background()

	a, _ := ledger.Award(ctx, 1.25, "one")
	b, _ := ledger.Award(ctx, 2.5, "two")
	c, _ := ledger.Award(ctx, 4, "three")

	ledger.BeginSettlement(ctx, a)
	ledger.CompleteSettlement(ctx, a, "0xa")
	ledger.BeginSettlement(ctx, b)
	ledger.FailSettlement(ctx, b, errors.New("boom"))
	ledger.BeginSettlement(ctx, c)

	checkTotals := func() {
		t.Helper()
		var earned, pending float64
		for _, tx := range ledger.History() {
			switch tx.Status {
			case domain.StatusCompleted:
				earned += tx.Amount
			case domain.StatusPending, domain.StatusProcessing:
				pending += tx.Amount
			}
		}
		if ledger.TotalEarned() != earned {
			t.Fatalf("earned = %v, history says %v", ledger.TotalEarned(), earned)
		}
		if ledger.PendingRewards() != pending {
			t.Fatalf("pending = %v, history says %v", ledger.PendingRewards(), pending)
		}
	}

	checkTotals()
	ledger.Reconcile()
	checkTotals()
}
