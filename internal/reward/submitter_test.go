package reward

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tacticalworks/missiond/internal/reward/domain"
	"github.com/tacticalworks/missiond/internal/reward/settlement"
	"github.com/tacticalworks/missiond/internal/storage/memory"
)

type fakeBackend struct {
	mu          sync.Mutex
	available   bool
	destination string
	submitErr   error
	hash        string
	submissions []settlement.Request
	block       chan struct{}
}

func (b *fakeBackend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *fakeBackend) ResolveDestination(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return "", settlement.ErrNotConnected
	}
	return b.destination, nil
}

func (b *fakeBackend) Submit(ctx context.Context, req settlement.Request) (string, error) {
	b.mu.Lock()
	block := b.block
	b.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions = append(b.submissions, req)
	if b.submitErr != nil {
		return "", b.submitErr
	}
	return b.hash, nil
}

func (b *fakeBackend) requests() []settlement.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]settlement.Request, len(b.submissions))
	copy(out, b.submissions)
	return out
}

func TestEnqueueSettlesTransaction(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	backend := &fakeBackend{available: true, destination: "wallet-1", hash: "0xfeed"}
	submitter := NewSubmitter(ledger, backend, SubmitterConfig{})
	ledger.SetHandoff(submitter.Enqueue)

	txID, err := ledger.Award(context.Background(), 3, "Objective: reach the tower")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	submitter.Wait()

	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", tx.Status)
	}
	if tx.SettlementHash != "0xfeed" {
		t.Fatalf("hash = %q, want 0xfeed", tx.SettlementHash)
	}
	if ledger.TotalEarned() != 3 || ledger.PendingRewards() != 0 {
		t.Fatalf("earned = %v pending = %v, want 3 and 0",
			ledger.TotalEarned(), ledger.PendingRewards())
	}

	reqs := backend.requests()
	if len(reqs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(reqs))
	}
	if reqs[0].TransactionID != txID || reqs[0].Destination != "wallet-1" {
		t.Fatalf("request = %+v", reqs[0])
	}
}

func TestOfflineBackendLeavesTransactionsPending(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	submitter := NewSubmitter(ledger, settlement.Offline{}, SubmitterConfig{})
	ledger.SetHandoff(submitter.Enqueue)

	txID, err := ledger.Award(context.Background(), 5, "Mission: Blackout completion bonus")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	submitter.Wait()

	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", tx.Status)
	}
	if ledger.PendingRewards() != 5 {
		t.Fatalf("pending = %v, want 5", ledger.PendingRewards())
	}
	if attempts := submitter.ProcessPending(context.Background()); attempts != 0 {
		t.Fatalf("attempts = %d, want 0 while offline", attempts)
	}
}

func TestProcessPendingRetriesFailedTransactions(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	backend := &fakeBackend{available: true, destination: "wallet-1", submitErr: settlement.ErrSubmissionFailed}
	submitter := NewSubmitter(ledger, backend, SubmitterConfig{})

	txID, err := ledger.Award(context.Background(), 2, "Objective: avoid patrols")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}

	if attempts := submitter.ProcessPending(context.Background()); attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusFailed {
		t.Fatalf("status = %q, want failed", tx.Status)
	}

	backend.mu.Lock()
	backend.submitErr = nil
	backend.hash = "0xretry"
	backend.mu.Unlock()

	if attempts := submitter.ProcessPending(context.Background()); attempts != 1 {
		t.Fatalf("retry attempts = %d, want 1", attempts)
	}
	tx, _ = ledger.Transaction(txID)
	if tx.Status != domain.StatusCompleted || tx.SettlementHash != "0xretry" {
		t.Fatalf("transaction after retry = %+v", tx)
	}
	if ledger.TotalEarned() != 2 || ledger.PendingRewards() != 0 {
		t.Fatalf("earned = %v pending = %v, want 2 and 0",
			ledger.TotalEarned(), ledger.PendingRewards())
	}
}

func TestProcessPendingSkipsCompletedTransactions(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	backend := &fakeBackend{available: true, destination: "wallet-1", hash: "0x1"}
	submitter := NewSubmitter(ledger, backend, SubmitterConfig{})

	if _, err := ledger.Award(context.Background(), 4, "Objective: plant beacon"); err != nil {
		t.Fatalf("Award: %v", err)
	}
	submitter.ProcessPending(context.Background())
	if got := len(backend.requests()); got != 1 {
		t.Fatalf("submissions = %d, want 1", got)
	}

	// A second sweep finds nothing settleable.
	if attempts := submitter.ProcessPending(context.Background()); attempts != 0 {
		t.Fatalf("attempts = %d, want 0", attempts)
	}
	if got := len(backend.requests()); got != 1 {
		t.Fatalf("submissions after resweep = %d, want 1", got)
	}
}

func TestSubmitterSingleFlightPerTransaction(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	block := make(chan struct{})
	backend := &fakeBackend{available: true, destination: "wallet-1", hash: "0x1", block: block}
	submitter := NewSubmitter(ledger, backend, SubmitterConfig{MaxInFlight: 8})

	txID, err := ledger.Award(context.Background(), 6, "Objective: reach exfil")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}

	// First attempt parks inside Submit; duplicates must bounce off the
	// single-flight guard instead of double-submitting.
	submitter.Enqueue(txID)
	waitFor(t, func() bool {
		tx, _ := ledger.Transaction(txID)
		return tx.Status == domain.StatusProcessing
	})
	submitter.Enqueue(txID)
	submitter.Enqueue(txID)

	close(block)
	submitter.Wait()

	if got := len(backend.requests()); got != 1 {
		t.Fatalf("submissions = %d, want 1", got)
	}
	if ledger.TotalEarned() != 6 {
		t.Fatalf("earned = %v, want 6", ledger.TotalEarned())
	}
}

func TestSubmitterSkipsBelowMinimumPayout(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	backend := &fakeBackend{available: true, destination: "wallet-1", hash: "0x1"}
	submitter := NewSubmitter(ledger, backend, SubmitterConfig{MinimumPayout: 1})

	smallID, _ := ledger.Award(context.Background(), 0.25, "Objective: minor cache")
	bigID, _ := ledger.Award(context.Background(), 3, "Objective: main cache")

	if attempts := submitter.ProcessPending(context.Background()); attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}

	small, _ := ledger.Transaction(smallID)
	if small.Status != domain.StatusPending {
		t.Fatalf("small status = %q, want pending", small.Status)
	}
	big, _ := ledger.Transaction(bigID)
	if big.Status != domain.StatusCompleted {
		t.Fatalf("big status = %q, want completed", big.Status)
	}
}

func TestSubmitterRecoversFromBackendPanic(t *testing.T) {
	ledger := newTestLedger(memory.NewStore(), nil)
	submitter := NewSubmitter(ledger, panicBackend{}, SubmitterConfig{})

	txID, _ := ledger.Award(context.Background(), 2, "Objective: extract intel")
	submitter.ProcessPending(context.Background())

	tx, _ := ledger.Transaction(txID)
	if tx.Status != domain.StatusFailed {
		t.Fatalf("status = %q, want failed after panic", tx.Status)
	}
}

type panicBackend struct{}

func (panicBackend) Available() bool { return true }
func (panicBackend) ResolveDestination(context.Context) (string, error) {
	return "wallet-1", nil
}
func (panicBackend) Submit(context.Context, settlement.Request) (string, error) {
	panic("backend exploded")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
