// Package domain holds the mission data model and the pure objective
// evaluation rules. Types here are immutable once loaded into a run; only
// the engine mutates run state.
package domain

import (
	"time"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
)

// Difficulty grades a mission for display and matchmaking purposes.
type Difficulty string

const (
	// DifficultyRookie is the entry difficulty tier.
	DifficultyRookie Difficulty = "rookie"
	// DifficultyProfessional is the standard difficulty tier.
	DifficultyProfessional Difficulty = "professional"
	// DifficultyElite is the hardest difficulty tier.
	DifficultyElite Difficulty = "elite"
)

// Status describes the lifecycle state of a mission run.
type Status string

const (
	// StatusNotStarted means no mission has been loaded.
	StatusNotStarted Status = "not_started"
	// StatusInProgress means the run is live and ticking.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every objective completed.
	StatusCompleted Status = "completed"
	// StatusFailed means the run terminated without completing.
	StatusFailed Status = "failed"
	// StatusPaused means evaluation is suspended without resetting state.
	StatusPaused Status = "paused"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Mission bundles objectives with timing and reward metadata to form one
// playable task. A zero TimeLimit means unlimited time; a zero
// EstimatedDuration disables the completion bonus.
type Mission struct {
	ID                string        `json:"mission_id" yaml:"mission_id"`
	Name              string        `json:"mission_name" yaml:"mission_name"`
	Description       string        `json:"description,omitempty" yaml:"description,omitempty"`
	EnvironmentID     string        `json:"environment_id,omitempty" yaml:"environment_id,omitempty"`
	ClientID          string        `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Difficulty        Difficulty    `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	BaseReward        float64       `json:"base_reward" yaml:"base_reward"`
	TimeLimit         time.Duration `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"`
	Objectives        []Objective   `json:"objectives" yaml:"objectives"`
}

// Validate checks the mission definition for structural problems. A mission
// that fails validation is never started.
func (m Mission) Validate() error {
	if m.ID == "" {
		return apperrors.New(apperrors.CodeMissionIDEmpty, "mission id is required")
	}
	if len(m.Objectives) == 0 {
		return apperrors.WithMetadata(apperrors.CodeMissionNoObjectives, "mission has no objectives",
			map[string]string{"mission_id": m.ID})
	}
	if m.BaseReward < 0 {
		return apperrors.WithMetadata(apperrors.CodeMissionNegativeReward, "base reward must not be negative",
			map[string]string{"mission_id": m.ID})
	}
	if m.TimeLimit < 0 || m.EstimatedDuration < 0 {
		return apperrors.WithMetadata(apperrors.CodeMissionNegativeTimeLimit, "mission time limits must not be negative",
			map[string]string{"mission_id": m.ID})
	}

	seen := make(map[string]struct{}, len(m.Objectives))
	for _, obj := range m.Objectives {
		if err := obj.validate(); err != nil {
			return err
		}
		if _, dup := seen[obj.ID]; dup {
			return apperrors.WithMetadata(apperrors.CodeObjectiveIDDuplicate, "duplicate objective id",
				map[string]string{"mission_id": m.ID, "objective_id": obj.ID})
		}
		seen[obj.ID] = struct{}{}
	}
	return nil
}

// ObjectiveRewardSum returns the sum of rewards for the given statuses map,
// counting only objectives marked completed.
func (m Mission) ObjectiveRewardSum(statuses map[string]ObjectiveStatus) float64 {
	var total float64
	for _, obj := range m.Objectives {
		if statuses[obj.ID] == ObjectiveCompleted {
			total += obj.Reward
		}
	}
	return total
}
