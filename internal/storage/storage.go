// Package storage defines the persistence contracts for reward transactions,
// mission result snapshots, and telemetry events.
package storage

import (
	"context"
	"errors"
	"time"

	missiondomain "github.com/tacticalworks/missiond/internal/mission/domain"
	rewarddomain "github.com/tacticalworks/missiond/internal/reward/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// TransactionStore persists reward transactions durably. Implementations
// must return an empty slice, not an error, when no records exist yet.
type TransactionStore interface {
	// Put upserts a single transaction keyed by its ID.
	Put(ctx context.Context, tx rewarddomain.Transaction) error
	// SaveAll upserts the given transactions in one batch.
	SaveAll(ctx context.Context, txs []rewarddomain.Transaction) error
	// Load returns all stored transactions ordered by creation time.
	Load(ctx context.Context) ([]rewarddomain.Transaction, error)
}

// ResultStore persists terminal mission run snapshots.
type ResultStore interface {
	SaveResult(ctx context.Context, result missiondomain.Result) error
}

// TelemetryEvent is one operational telemetry record handed to the external
// telemetry collaborator.
type TelemetryEvent struct {
	Type        string
	MissionID   string
	Timestamp   time.Time
	PayloadJSON []byte
}

// TelemetryStore persists telemetry events. Delivery is best-effort from the
// core's perspective.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}
