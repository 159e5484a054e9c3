// Package sqlite provides SQLite-backed durable storage for reward
// transactions and telemetry events.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/tacticalworks/missiond/internal/platform/storage/sqlitemigrate"
	rewarddomain "github.com/tacticalworks/missiond/internal/reward/domain"
	"github.com/tacticalworks/missiond/internal/storage"
	"github.com/tacticalworks/missiond/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed transaction and telemetry persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put upserts a single transaction keyed by its ID.
func (s *Store) Put(ctx context.Context, tx rewarddomain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tx.ID) == "" {
		return fmt.Errorf("transaction id is required")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO reward_transactions (
	transaction_id,
	player_id,
	amount,
	currency,
	reason,
	status,
	settlement_hash,
	created_at,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (transaction_id) DO UPDATE SET
	status = excluded.status,
	settlement_hash = excluded.settlement_hash,
	updated_at = excluded.updated_at
`,
		tx.ID,
		tx.PlayerID,
		tx.Amount,
		tx.Currency,
		tx.Reason,
		string(tx.Status),
		tx.SettlementHash,
		tx.CreatedAt.UTC().UnixMilli(),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put transaction: %w", err)
	}
	return nil
}

// SaveAll upserts the given transactions in one database transaction.
func (s *Store) SaveAll(ctx context.Context, txs []rewarddomain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save all: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for _, tx := range txs {
		if strings.TrimSpace(tx.ID) == "" {
			_ = dbTx.Rollback()
			return fmt.Errorf("transaction id is required")
		}
		createdAt := tx.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := dbTx.ExecContext(ctx, `
INSERT INTO reward_transactions (
	transaction_id,
	player_id,
	amount,
	currency,
	reason,
	status,
	settlement_hash,
	created_at,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (transaction_id) DO UPDATE SET
	status = excluded.status,
	settlement_hash = excluded.settlement_hash,
	updated_at = excluded.updated_at
`,
			tx.ID,
			tx.PlayerID,
			tx.Amount,
			tx.Currency,
			tx.Reason,
			string(tx.Status),
			tx.SettlementHash,
			createdAt.UTC().UnixMilli(),
			now,
		); err != nil {
			_ = dbTx.Rollback()
			return fmt.Errorf("save transaction %s: %w", tx.ID, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit save all: %w", err)
	}
	return nil
}

// Load returns all stored transactions ordered by creation time. An empty
// store yields an empty slice.
func (s *Store) Load(ctx context.Context) ([]rewarddomain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	transaction_id,
	player_id,
	amount,
	currency,
	reason,
	status,
	settlement_hash,
	created_at
FROM reward_transactions
ORDER BY created_at ASC, transaction_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]rewarddomain.Transaction, 0)
	for rows.Next() {
		var tx rewarddomain.Transaction
		var status string
		var createdAt int64
		if err := rows.Scan(
			&tx.ID,
			&tx.PlayerID,
			&tx.Amount,
			&tx.Currency,
			&tx.Reason,
			&status,
			&tx.SettlementHash,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Status = rewarddomain.Status(status)
		tx.CreatedAt = time.UnixMilli(createdAt).UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// AppendTelemetryEvent persists one telemetry event record.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.Type) == "" {
		return fmt.Errorf("event type is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (event_type, mission_id, payload, created_at)
VALUES (?, ?, ?, ?)
`,
		evt.Type,
		evt.MissionID,
		string(evt.PayloadJSON),
		evt.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

var (
	_ storage.TransactionStore = (*Store)(nil)
	_ storage.TelemetryStore   = (*Store)(nil)
)
