package domain

import "time"

// Capabilities exposes the boolean predicates supplied by external game
// subsystems for capability-backed objective types. Implementations must be
// safe to call on every tick.
type Capabilities interface {
	// ItemCollected reports whether the item configured for the objective
	// has been collected.
	ItemCollected(objectiveID string, params map[string]string) bool
	// Undetected reports whether the player has avoided detection for the
	// objective's zone.
	Undetected(objectiveID string, params map[string]string) bool
	// Interacted reports whether the interaction configured for the
	// objective has been performed.
	Interacted(objectiveID string, params map[string]string) bool
}

// WorldState is the slice of world data the evaluator reads on each tick.
type WorldState struct {
	Position     Vec3
	Capabilities Capabilities
}

// Evaluate reports whether an objective's completion condition holds for the
// given world state and elapsed mission time. It is pure: no side effects,
// and it never panics for a validated objective. Objectives that delegate to
// capabilities evaluate to false when no capability provider is present.
func Evaluate(obj Objective, ws WorldState, elapsed time.Duration) bool {
	switch obj.Type {
	case ObjectiveReachLocation:
		return ws.Position.DistanceTo(obj.TargetPosition) <= obj.CompletionRadius+PositionEpsilon
	case ObjectiveCompleteInTime:
		return elapsed <= obj.TimeLimit
	case ObjectiveCollectItem:
		if ws.Capabilities == nil {
			return false
		}
		return ws.Capabilities.ItemCollected(obj.ID, obj.Params)
	case ObjectiveAvoidDetection:
		if ws.Capabilities == nil {
			return false
		}
		return ws.Capabilities.Undetected(obj.ID, obj.Params)
	case ObjectiveInteractWithObject:
		if ws.Capabilities == nil {
			return false
		}
		return ws.Capabilities.Interacted(obj.ID, obj.Params)
	default:
		return false
	}
}
