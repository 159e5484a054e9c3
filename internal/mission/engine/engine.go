// Package engine runs the mission lifecycle state machine: loading a
// mission, ticking objective evaluation against world state, pausing, and
// terminating with a persisted result snapshot.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
	"github.com/tacticalworks/missiond/internal/id"
	"github.com/tacticalworks/missiond/internal/mission/domain"
	"github.com/tacticalworks/missiond/internal/mission/event"
	"github.com/tacticalworks/missiond/internal/storage"
)

const (
	failureReasonTimeLimit = "Time limit exceeded"
	failureReasonAbandoned = "Mission abandoned"
)

// Rewarder issues reward transactions for completed objectives and bonuses.
// Satisfied by *reward.Ledger.
type Rewarder interface {
	Award(ctx context.Context, amount float64, reason string) (string, error)
}

// Engine drives one mission run at a time. A new mission may only be loaded
// once the previous run reached a terminal status or was abandoned.
type Engine struct {
	mu          sync.Mutex
	rewarder    Rewarder
	sink        event.Sink
	results     storage.ResultStore
	clock       func() time.Time
	idGenerator func() (string, error)

	mission         domain.Mission
	status          domain.Status
	statuses        map[string]domain.ObjectiveStatus
	startedAt       time.Time
	pausedAt        time.Time
	pausedTotal     time.Duration
	totalReward     float64
	completionBonus float64
	failureReason   string
	runEvents       []event.Event
}

// New creates an engine. The rewarder, sink, and result store may each be
// nil; the corresponding effect is skipped.
func New(rewarder Rewarder, sink event.Sink, results storage.ResultStore) *Engine {
	return &Engine{
		rewarder:    rewarder,
		sink:        sink,
		results:     results,
		clock:       time.Now,
		idGenerator: id.NewID,
		status:      domain.StatusNotStarted,
	}
}

// Status returns the current run status.
func (e *Engine) Status() domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Mission returns the currently loaded mission.
func (e *Engine) Mission() domain.Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mission
}

// ObjectiveStatuses returns a copy of the per-objective status map.
func (e *Engine) ObjectiveStatuses() map[string]domain.ObjectiveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]domain.ObjectiveStatus, len(e.statuses))
	for k, v := range e.statuses {
		out[k] = v
	}
	return out
}

// TotalReward returns the reward accumulated by the current run.
func (e *Engine) TotalReward() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalReward
}

// Load validates the mission and starts a run: every objective resets to
// not-started, the start time is recorded, and evaluation begins on the next
// Tick. Loading while a run is in progress or paused fails; callers abandon
// the active run first.
func (e *Engine) Load(m domain.Mission) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("load mission: %w", err)
	}

	e.mu.Lock()
	if e.status == domain.StatusInProgress || e.status == domain.StatusPaused {
		active := e.mission.ID
		e.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeRunInProgress, "a mission run is already active",
			map[string]string{"mission_id": active})
	}

	e.mission = m
	e.status = domain.StatusInProgress
	e.statuses = make(map[string]domain.ObjectiveStatus, len(m.Objectives))
	for _, obj := range m.Objectives {
		e.statuses[obj.ID] = domain.ObjectiveNotStarted
	}
	e.startedAt = e.clock().UTC()
	e.pausedAt = time.Time{}
	e.pausedTotal = 0
	e.totalReward = 0
	e.completionBonus = 0
	e.failureReason = ""
	e.runEvents = nil
	e.mu.Unlock()

	e.emit(event.TypeMissionStarted, 0, event.MissionStartedPayload{
		MissionID:         m.ID,
		MissionName:       m.Name,
		Difficulty:        string(m.Difficulty),
		EstimatedDuration: m.EstimatedDuration,
	})
	return nil
}

// Tick evaluates the run against the given world state. It is a no-op
// unless the run is in progress. Objectives are evaluated in definition
// order; each newly completed objective is rewarded immediately. Completion
// is checked before time-limit failure, so a run finishing on its final
// tick completes even when the clock has also expired.
func (e *Engine) Tick(ctx context.Context, ws domain.WorldState, now time.Time) {
	e.mu.Lock()
	if e.status != domain.StatusInProgress {
		e.mu.Unlock()
		return
	}
	elapsed := now.UTC().Sub(e.startedAt) - e.pausedTotal
	mission := e.mission

	var completed []domain.Objective
	allDone := true
	for _, obj := range mission.Objectives {
		if e.statuses[obj.ID] != domain.ObjectiveNotStarted {
			continue
		}
		if domain.Evaluate(obj, ws, elapsed) {
			e.statuses[obj.ID] = domain.ObjectiveCompleted
			e.totalReward += obj.Reward
			completed = append(completed, obj)
		} else {
			allDone = false
		}
	}
	e.mu.Unlock()

	for _, obj := range completed {
		e.emit(event.TypeObjectiveCompleted, elapsed, event.ObjectiveCompletedPayload{
			ObjectiveID:    obj.ID,
			ObjectiveType:  string(obj.Type),
			CompletionTime: elapsed,
			Reward:         obj.Reward,
		})
		e.award(ctx, obj.Reward, fmt.Sprintf("Objective: %s", obj.Description))
	}

	if allDone {
		e.complete(ctx, elapsed)
		return
	}
	if mission.TimeLimit > 0 && elapsed > mission.TimeLimit {
		e.fail(ctx, elapsed, failureReasonTimeLimit)
	}
}

// Pause suspends evaluation without resetting run state. Paused wall time
// does not count toward the elapsed mission time.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.status != domain.StatusInProgress {
		status := e.status
		e.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeRunNotActive, "no mission run in progress",
			map[string]string{"status": string(status)})
	}
	e.status = domain.StatusPaused
	e.pausedAt = e.clock().UTC()
	elapsed := e.pausedAt.Sub(e.startedAt) - e.pausedTotal
	missionID := e.mission.ID
	e.mu.Unlock()

	e.emit(event.TypeMissionPaused, elapsed, event.MissionPausedPayload{MissionID: missionID})
	return nil
}

// Resume continues a paused run.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.status != domain.StatusPaused {
		status := e.status
		e.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeRunNotPaused, "mission run is not paused",
			map[string]string{"status": string(status)})
	}
	now := e.clock().UTC()
	e.pausedTotal += now.Sub(e.pausedAt)
	e.pausedAt = time.Time{}
	e.status = domain.StatusInProgress
	elapsed := now.Sub(e.startedAt) - e.pausedTotal
	missionID := e.mission.ID
	e.mu.Unlock()

	e.emit(event.TypeMissionResumed, elapsed, event.MissionPausedPayload{MissionID: missionID})
	return nil
}

// Abandon terminates an in-progress or paused run as failed, freeing the
// engine for the next Load. Rewards already awarded stand.
func (e *Engine) Abandon(ctx context.Context) error {
	e.mu.Lock()
	if e.status != domain.StatusInProgress && e.status != domain.StatusPaused {
		status := e.status
		e.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeRunNotActive, "no mission run to abandon",
			map[string]string{"status": string(status)})
	}
	now := e.clock().UTC()
	if e.status == domain.StatusPaused {
		e.pausedTotal += now.Sub(e.pausedAt)
		e.pausedAt = time.Time{}
		e.status = domain.StatusInProgress
	}
	elapsed := now.Sub(e.startedAt) - e.pausedTotal
	e.mu.Unlock()

	e.fail(ctx, elapsed, failureReasonAbandoned)
	return nil
}

// complete transitions the run to completed, awards the completion bonus as
// its own transaction, and persists the result snapshot. Per-objective
// rewards were already awarded at objective completion.
func (e *Engine) complete(ctx context.Context, elapsed time.Duration) {
	e.mu.Lock()
	if e.status != domain.StatusInProgress {
		e.mu.Unlock()
		return
	}
	e.status = domain.StatusCompleted
	e.completionBonus = completionBonus(e.mission, elapsed)
	e.totalReward += e.completionBonus
	mission := e.mission
	bonus := e.completionBonus
	total := e.totalReward
	e.mu.Unlock()

	e.emit(event.TypeMissionCompleted, elapsed, event.MissionCompletedPayload{
		MissionID:       mission.ID,
		CompletionTime:  elapsed,
		TotalReward:     total,
		CompletionBonus: bonus,
	})
	e.award(ctx, bonus, fmt.Sprintf("Mission: %s completion bonus", mission.Name))
	e.saveResult(ctx, elapsed)
}

func (e *Engine) fail(ctx context.Context, elapsed time.Duration, reason string) {
	e.mu.Lock()
	if e.status != domain.StatusInProgress {
		e.mu.Unlock()
		return
	}
	e.status = domain.StatusFailed
	e.failureReason = reason
	missionID := e.mission.ID
	e.mu.Unlock()

	e.emit(event.TypeMissionFailed, elapsed, event.MissionFailedPayload{
		MissionID:   missionID,
		Reason:      reason,
		FailureTime: elapsed,
	})
	e.saveResult(ctx, elapsed)
}

// completionBonus implements the speed bonus curve: finishing at the
// estimated duration pays the base reward, finishing instantly pays double,
// and taking long decays to half, clamped to [0.5, 2.0]. A mission without
// an estimated duration pays no bonus.
func completionBonus(m domain.Mission, completionTime time.Duration) float64 {
	if m.EstimatedDuration <= 0 {
		return 0
	}
	ratio := completionTime.Seconds() / m.EstimatedDuration.Seconds()
	multiplier := 2 - ratio
	if multiplier < 0.5 {
		multiplier = 0.5
	}
	if multiplier > 2 {
		multiplier = 2
	}
	return m.BaseReward * multiplier
}

func (e *Engine) award(ctx context.Context, amount float64, reason string) {
	if e.rewarder == nil || amount <= 0 {
		return
	}
	if _, err := e.rewarder.Award(ctx, amount, reason); err != nil {
		// The ledger keeps the obligation in memory and reports the
		// durability failure on the event log.
		log.Printf("engine: award %q: %v", reason, err)
	}
}

func (e *Engine) saveResult(ctx context.Context, elapsed time.Duration) {
	e.mu.Lock()
	statuses := make(map[string]domain.ObjectiveStatus, len(e.statuses))
	for k, v := range e.statuses {
		statuses[k] = v
	}
	events := make([]event.Event, len(e.runEvents))
	copy(events, e.runEvents)
	result := domain.Result{
		MissionID:         e.mission.ID,
		MissionName:       e.mission.Name,
		Status:            e.status,
		StartedAt:         e.startedAt,
		EndedAt:           e.clock().UTC(),
		Duration:          elapsed,
		TotalReward:       e.totalReward,
		CompletionBonus:   e.completionBonus,
		FailureReason:     e.failureReason,
		Objectives:        e.mission.Objectives,
		ObjectiveStatuses: statuses,
		Events:            events,
	}
	results := e.results
	e.mu.Unlock()

	if results == nil {
		return
	}
	if err := results.SaveResult(ctx, result); err != nil {
		log.Printf("engine: save result for mission %s: %v", result.MissionID, err)
	}
}

// emit records the event on the run's history and fans it out to the sink.
func (e *Engine) emit(typ event.Type, gameTime time.Duration, payload any) {
	evtID, err := e.idGenerator()
	if err != nil {
		evtID = ""
	}

	e.mu.Lock()
	evt := event.Event{
		ID:        evtID,
		Type:      typ,
		Timestamp: e.clock().UTC(),
		GameTime:  gameTime,
		MissionID: e.mission.ID,
		Payload:   payload,
	}
	e.runEvents = append(e.runEvents, evt)
	sink := e.sink
	e.mu.Unlock()

	if sink != nil {
		sink.Emit(evt)
	}
}
