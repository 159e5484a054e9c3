// Package domain holds the reward transaction data model shared by the
// ledger, the submitter, and storage.
package domain

import "time"

// Status describes the settlement progress of a reward transaction.
type Status string

const (
	// StatusPending means the transaction is awaiting a settlement attempt.
	StatusPending Status = "pending"
	// StatusProcessing means a settlement attempt is in flight.
	StatusProcessing Status = "processing"
	// StatusCompleted means settlement confirmed. Terminal.
	StatusCompleted Status = "completed"
	// StatusFailed means the last settlement attempt failed. Retryable: a
	// failed transaction is picked up again by the next pending sweep.
	StatusFailed Status = "failed"
)

// Settleable reports whether a transaction in this status is eligible for a
// settlement attempt.
func (s Status) Settleable() bool {
	return s == StatusPending || s == StatusFailed
}

// Transaction is a unit of monetary obligation created when reward-worthy
// progress occurs. The ID doubles as the settlement idempotency key. A
// transaction never regresses from StatusCompleted.
type Transaction struct {
	ID             string    `json:"transaction_id"`
	PlayerID       string    `json:"player_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
	Status         Status    `json:"status"`
	SettlementHash string    `json:"settlement_hash,omitempty"`
}
