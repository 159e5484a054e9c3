package domain

import (
	"time"

	"github.com/tacticalworks/missiond/internal/mission/event"
)

// Result is the snapshot persisted when a mission run reaches a terminal
// status. It captures enough to audit the run without replaying ticks.
type Result struct {
	MissionID         string                     `json:"mission_id"`
	MissionName       string                     `json:"mission_name"`
	Status            Status                     `json:"status"`
	StartedAt         time.Time                  `json:"started_at"`
	EndedAt           time.Time                  `json:"ended_at"`
	Duration          time.Duration              `json:"duration"`
	TotalReward       float64                    `json:"total_reward"`
	CompletionBonus   float64                    `json:"completion_bonus,omitempty"`
	FailureReason     string                     `json:"failure_reason,omitempty"`
	Objectives        []Objective                `json:"objectives"`
	ObjectiveStatuses map[string]ObjectiveStatus `json:"objective_statuses"`
	Events            []event.Event              `json:"events,omitempty"`
}
