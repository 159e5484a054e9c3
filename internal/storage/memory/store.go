// Package memory provides in-memory storage implementations for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	missiondomain "github.com/tacticalworks/missiond/internal/mission/domain"
	rewarddomain "github.com/tacticalworks/missiond/internal/reward/domain"
	"github.com/tacticalworks/missiond/internal/storage"
)

// Store keeps transactions, results, and telemetry events in memory. It is
// safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	txs       map[string]rewarddomain.Transaction
	results   []missiondomain.Result
	telemetry []storage.TelemetryEvent
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{txs: make(map[string]rewarddomain.Transaction)}
}

// Put upserts a single transaction keyed by its ID.
func (s *Store) Put(ctx context.Context, tx rewarddomain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = tx
	return nil
}

// SaveAll upserts the given transactions.
func (s *Store) SaveAll(ctx context.Context, txs []rewarddomain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.txs[tx.ID] = tx
	}
	return nil
}

// Load returns all stored transactions ordered by creation time.
func (s *Store) Load(ctx context.Context) ([]rewarddomain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rewarddomain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaveResult appends a mission result snapshot.
func (s *Store) SaveResult(ctx context.Context, result missiondomain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns the saved result snapshots, oldest first.
func (s *Store) Results() []missiondomain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]missiondomain.Result, len(s.results))
	copy(out, s.results)
	return out
}

// AppendTelemetryEvent appends a telemetry event record.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = append(s.telemetry, evt)
	return nil
}

// TelemetryEvents returns the recorded telemetry events, oldest first.
func (s *Store) TelemetryEvents() []storage.TelemetryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.TelemetryEvent, len(s.telemetry))
	copy(out, s.telemetry)
	return out
}

var (
	_ storage.TransactionStore = (*Store)(nil)
	_ storage.ResultStore      = (*Store)(nil)
	_ storage.TelemetryStore   = (*Store)(nil)
)
