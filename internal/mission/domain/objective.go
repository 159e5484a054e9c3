package domain

import (
	"time"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
)

// ObjectiveType identifies the completion condition an objective uses.
type ObjectiveType string

const (
	// ObjectiveReachLocation completes when the player is within the
	// completion radius of the target position.
	ObjectiveReachLocation ObjectiveType = "reach_location"
	// ObjectiveCollectItem completes when the collection subsystem reports
	// the configured item as collected.
	ObjectiveCollectItem ObjectiveType = "collect_item"
	// ObjectiveAvoidDetection completes when the detection subsystem reports
	// the player as undetected.
	ObjectiveAvoidDetection ObjectiveType = "avoid_detection"
	// ObjectiveCompleteInTime holds while elapsed mission time is within the
	// objective time limit. It is a standing condition, not a one-shot event.
	ObjectiveCompleteInTime ObjectiveType = "complete_in_time"
	// ObjectiveInteractWithObject completes when the interaction subsystem
	// reports the configured interaction as done.
	ObjectiveInteractWithObject ObjectiveType = "interact_with_object"
)

// IsValid reports whether the objective type is a known value.
func (t ObjectiveType) IsValid() bool {
	switch t {
	case ObjectiveReachLocation, ObjectiveCollectItem, ObjectiveAvoidDetection,
		ObjectiveCompleteInTime, ObjectiveInteractWithObject:
		return true
	default:
		return false
	}
}

// ObjectiveStatus tracks the progress of a single objective within a run.
type ObjectiveStatus string

const (
	// ObjectiveNotStarted is the initial status of every objective.
	ObjectiveNotStarted ObjectiveStatus = "not_started"
	// ObjectiveInProgress is reserved for multi-stage objective types.
	ObjectiveInProgress ObjectiveStatus = "in_progress"
	// ObjectiveCompleted is the terminal success status.
	ObjectiveCompleted ObjectiveStatus = "completed"
	// ObjectiveFailed is reserved for objective types that can fail
	// independently of the mission.
	ObjectiveFailed ObjectiveStatus = "failed"
)

// Objective is a single completable condition within a mission.
//
// Params carries type-specific completion parameters for capability-backed
// objectives. Recognized keys: "item_id" (collect_item), "zone_id"
// (avoid_detection), "object_id" (interact_with_object).
type Objective struct {
	ID               string            `json:"objective_id" yaml:"objective_id"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	Type             ObjectiveType     `json:"type" yaml:"type"`
	TargetPosition   Vec3              `json:"target_position,omitempty" yaml:"target_position,omitempty"`
	CompletionRadius float64           `json:"completion_radius,omitempty" yaml:"completion_radius,omitempty"`
	TimeLimit        time.Duration     `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
	Reward           float64           `json:"reward" yaml:"reward"`
	Params           map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

func (o Objective) validate() error {
	if o.ID == "" {
		return apperrors.New(apperrors.CodeObjectiveIDEmpty, "objective id is required")
	}
	if !o.Type.IsValid() {
		return apperrors.WithMetadata(apperrors.CodeObjectiveInvalidType, "unknown objective type",
			map[string]string{"objective_id": o.ID, "type": string(o.Type)})
	}
	if o.CompletionRadius < 0 {
		return apperrors.WithMetadata(apperrors.CodeObjectiveNegativeRadius, "completion radius must not be negative",
			map[string]string{"objective_id": o.ID})
	}
	if o.Reward < 0 {
		return apperrors.WithMetadata(apperrors.CodeObjectiveNegativeReward, "objective reward must not be negative",
			map[string]string{"objective_id": o.ID})
	}
	if o.TimeLimit < 0 {
		return apperrors.WithMetadata(apperrors.CodeMissionNegativeTimeLimit, "objective time limit must not be negative",
			map[string]string{"objective_id": o.ID})
	}
	return nil
}
