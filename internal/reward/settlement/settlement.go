// Package settlement defines the contract for the external payment backend
// that reward transactions are settled against.
package settlement

import (
	"context"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
)

var (
	// ErrNotConnected indicates no settlement channel is currently
	// available. Always recoverable: the transaction stays pending.
	ErrNotConnected = apperrors.New(apperrors.CodeNotConnected, "settlement backend not connected")
	// ErrSubmissionFailed indicates a settlement attempt failed. Always
	// recoverable: the transaction becomes retryable.
	ErrSubmissionFailed = apperrors.New(apperrors.CodeSubmissionFailed, "settlement submission failed")
)

// Request is one settlement submission. TransactionID is the idempotency
// key: backends must treat a resubmission with the same ID as a no-op that
// returns the original confirmation.
type Request struct {
	TransactionID string
	Destination   string
	Amount        float64
	Currency      string
}

// Backend is the opaque settlement network the application submits reward
// transactions to.
type Backend interface {
	// Available reports whether a settlement channel is currently open.
	Available() bool
	// ResolveDestination returns the destination identity for the player's
	// rewards. Fails with ErrNotConnected when no session exists.
	ResolveDestination(ctx context.Context) (string, error)
	// Submit sends one settlement request and returns a non-empty
	// confirmation handle on success. Fails with ErrSubmissionFailed (or a
	// wrapped equivalent) otherwise.
	Submit(ctx context.Context, req Request) (string, error)
}

// Offline is a Backend with no settlement channel. Every awarded reward
// stays durably pending until a connected backend replaces it.
type Offline struct{}

// Available always reports false.
func (Offline) Available() bool { return false }

// ResolveDestination always fails with ErrNotConnected.
func (Offline) ResolveDestination(context.Context) (string, error) {
	return "", ErrNotConnected
}

// Submit always fails with ErrNotConnected.
func (Offline) Submit(context.Context, Request) (string, error) {
	return "", ErrNotConnected
}

var _ Backend = Offline{}
