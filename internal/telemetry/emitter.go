// Package telemetry forwards domain events to the external telemetry
// collaborator. Delivery is best-effort: failures are logged, never
// propagated to the emitting code path.
package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/tacticalworks/missiond/internal/mission/event"
	"github.com/tacticalworks/missiond/internal/storage"
)

// Emitter records domain events into a telemetry store.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a domain event. It is a no-op when the store is nil and
// swallows store errors after logging them.
func (e *Emitter) Emit(evt event.Event) {
	if e == nil || e.store == nil {
		return
	}

	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		log.Printf("telemetry: marshal %s payload: %v", evt.Type, err)
		payload = nil
	}

	timestamp := evt.Timestamp
	if timestamp.IsZero() {
		clock := e.clock
		if clock == nil {
			clock = time.Now
		}
		timestamp = clock()
	}

	record := storage.TelemetryEvent{
		Type:        string(evt.Type),
		MissionID:   evt.MissionID,
		Timestamp:   timestamp.UTC(),
		PayloadJSON: payload,
	}
	if err := e.store.AppendTelemetryEvent(context.Background(), record); err != nil {
		log.Printf("telemetry: append %s event: %v", evt.Type, err)
	}
}

var _ event.Sink = (*Emitter)(nil)
