package reward

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tacticalworks/missiond/internal/reward/settlement"
)

const (
	defaultMaxInFlight   = 4
	defaultSubmitTimeout = 30 * time.Second
)

// SubmitterConfig controls settlement attempt behavior.
type SubmitterConfig struct {
	// MaxInFlight bounds concurrent settlement attempts.
	MaxInFlight int
	// SubmitTimeout bounds a single settlement attempt. A timeout converts
	// the attempt to failed-retryable; there is no mid-flight cancellation.
	SubmitTimeout time.Duration
	// MinimumPayout skips submission of amounts below the threshold. Such
	// transactions stay pending.
	MinimumPayout float64
}

func (c SubmitterConfig) normalized() SubmitterConfig {
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = defaultMaxInFlight
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = defaultSubmitTimeout
	}
	return c
}

// Submitter settles pending transactions against the payment backend
// without blocking the award path. Submissions for the same transaction ID
// are serialized by a single-flight guard; distinct transactions settle
// concurrently up to MaxInFlight.
type Submitter struct {
	ledger  *Ledger
	backend settlement.Backend
	cfg     SubmitterConfig
	tracer  trace.Tracer

	sem      chan struct{}
	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewSubmitter creates a submitter over the given ledger and backend.
func NewSubmitter(ledger *Ledger, backend settlement.Backend, cfg SubmitterConfig) *Submitter {
	cfg = cfg.normalized()
	return &Submitter{
		ledger:   ledger,
		backend:  backend,
		cfg:      cfg,
		tracer:   otel.Tracer("missiond/reward"),
		sem:      make(chan struct{}, cfg.MaxInFlight),
		inflight: make(map[string]struct{}),
	}
}

// Enqueue starts an asynchronous settlement attempt for the transaction.
// It returns immediately; use Wait to observe completion.
func (s *Submitter) Enqueue(txID string) {
	if s == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.submit(context.Background(), txID)
	}()
}

// ProcessPending sweeps every settleable transaction (pending or
// failed-retryable) through a settlement attempt. Safe to call repeatedly:
// submission is keyed by transaction ID, and completed transactions are
// never resubmitted. Returns the number of attempts made.
func (s *Submitter) ProcessPending(ctx context.Context) int {
	if s == nil {
		return 0
	}
	attempts := 0
	for _, tx := range s.ledger.Settleable() {
		if err := ctx.Err(); err != nil {
			break
		}
		if s.submit(ctx, tx.ID) {
			attempts++
		}
	}
	s.ledger.Reconcile()
	return attempts
}

// Wait blocks until all asynchronously enqueued attempts finish.
func (s *Submitter) Wait() {
	s.wg.Wait()
}

// submit performs one settlement attempt. It reports whether an attempt
// reached the backend. Every failure path converts to a retryable
// transaction state; nothing escapes to the caller.
func (s *Submitter) submit(ctx context.Context, txID string) bool {
	s.mu.Lock()
	if _, busy := s.inflight[txID]; busy {
		s.mu.Unlock()
		return false
	}
	s.inflight[txID] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, txID)
		s.mu.Unlock()
	}()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	if s.backend == nil || !s.backend.Available() {
		// No settlement channel: the transaction stays pending in the
		// store and is picked up by a later sweep.
		return false
	}

	tx, ok := s.ledger.Transaction(txID)
	if !ok || !tx.Status.Settleable() {
		return false
	}
	if s.cfg.MinimumPayout > 0 && tx.Amount < s.cfg.MinimumPayout {
		return false
	}

	tx, ok = s.ledger.BeginSettlement(ctx, txID)
	if !ok {
		return false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	attemptCtx, span := s.tracer.Start(attemptCtx, "settlement.submit",
		trace.WithAttributes(
			attribute.String("transaction.id", tx.ID),
			attribute.Float64("transaction.amount", tx.Amount),
			attribute.String("transaction.currency", tx.Currency),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("settlement panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			log.Printf("reward: submit %s: %v", tx.ID, err)
			s.ledger.FailSettlement(ctx, tx.ID, err)
		}
	}()

	destination, err := s.backend.ResolveDestination(attemptCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve destination")
		s.ledger.FailSettlement(ctx, tx.ID, fmt.Errorf("resolve destination: %w", err))
		return true
	}

	hash, err := s.backend.Submit(attemptCtx, settlement.Request{
		TransactionID: tx.ID,
		Destination:   destination,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit")
		s.ledger.FailSettlement(ctx, tx.ID, err)
		return true
	}
	if hash == "" {
		err := fmt.Errorf("empty confirmation handle")
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty confirmation")
		s.ledger.FailSettlement(ctx, tx.ID, err)
		return true
	}

	span.SetAttributes(attribute.String("settlement.hash", hash))
	s.ledger.CompleteSettlement(ctx, tx.ID, hash)
	return true
}
