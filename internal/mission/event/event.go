// Package event defines the append-only domain event record for mission and
// reward activity, and the bounded in-memory log that retains it.
package event

import (
	"time"
)

// Type identifies the type of a domain event.
type Type string

// Mission lifecycle events.
const (
	// TypeMissionStarted records a mission run starting.
	TypeMissionStarted Type = "mission_started"
	// TypeMissionPaused records evaluation being suspended.
	TypeMissionPaused Type = "mission_paused"
	// TypeMissionResumed records evaluation being resumed.
	TypeMissionResumed Type = "mission_resumed"
	// TypeMissionCompleted records every objective completing.
	TypeMissionCompleted Type = "mission_completed"
	// TypeMissionFailed records a run terminating without completion.
	TypeMissionFailed Type = "mission_failed"
)

// Objective events.
const (
	// TypeObjectiveCompleted records a single objective completing.
	TypeObjectiveCompleted Type = "objective_completed"
)

// Reward events.
const (
	// TypeRewardAwarded records a reward transaction being created.
	TypeRewardAwarded Type = "reward_awarded"
	// TypeTransactionSettled records a settlement attempt outcome.
	TypeTransactionSettled Type = "transaction_settled"
	// TypeRewardPersistFailed records a failed durability write for an
	// awarded reward. The in-memory obligation is retained.
	TypeRewardPersistFailed Type = "reward_persist_failed"
)

// Event represents an immutable record in the domain event log.
type Event struct {
	// ID is the unique event identifier.
	ID string
	// Type identifies the kind of event.
	Type Type
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// GameTime is the elapsed mission time when the event was emitted.
	GameTime time.Duration
	// MissionID is the mission the event belongs to (empty for
	// reward-pipeline events raised outside a run).
	MissionID string
	// Payload holds event-specific data as one of the payload structs
	// defined in this package.
	Payload any
}

// Sink receives emitted domain events. Implementations must be best-effort
// and must never block the caller.
type Sink interface {
	Emit(evt Event)
}

// Fanout delivers each event to every attached sink.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a fan-out sink over the given sinks. Nil sinks are
// skipped.
func NewFanout(sinks ...Sink) *Fanout {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Fanout{sinks: kept}
}

// Emit delivers the event to every sink.
func (f *Fanout) Emit(evt Event) {
	if f == nil {
		return
	}
	for _, s := range f.sinks {
		s.Emit(evt)
	}
}
