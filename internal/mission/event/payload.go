package event

import "time"

// MissionStartedPayload captures the event payload for a run starting.
type MissionStartedPayload struct {
	MissionID         string        `json:"mission_id"`
	MissionName       string        `json:"mission_name"`
	Difficulty        string        `json:"difficulty,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
}

// ObjectiveCompletedPayload captures the event payload for a completed
// objective.
type ObjectiveCompletedPayload struct {
	ObjectiveID    string        `json:"objective_id"`
	ObjectiveType  string        `json:"objective_type"`
	CompletionTime time.Duration `json:"completion_time"`
	Reward         float64       `json:"reward"`
}

// MissionCompletedPayload captures the event payload for a completed run.
type MissionCompletedPayload struct {
	MissionID       string        `json:"mission_id"`
	CompletionTime  time.Duration `json:"completion_time"`
	TotalReward     float64       `json:"total_reward"`
	CompletionBonus float64       `json:"completion_bonus"`
}

// MissionFailedPayload captures the event payload for a failed run.
type MissionFailedPayload struct {
	MissionID   string        `json:"mission_id"`
	Reason      string        `json:"failure_reason"`
	FailureTime time.Duration `json:"failure_time"`
}

// MissionPausedPayload captures the event payload for pause and resume.
type MissionPausedPayload struct {
	MissionID string `json:"mission_id"`
}

// RewardAwardedPayload captures the event payload for a created reward
// transaction.
type RewardAwardedPayload struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Reason        string  `json:"reason"`
}

// TransactionSettledPayload captures the event payload for a settlement
// attempt outcome.
type TransactionSettledPayload struct {
	TransactionID  string  `json:"transaction_id"`
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"`
	SettlementHash string  `json:"settlement_hash,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// RewardPersistFailedPayload captures the event payload for a failed
// durability write.
type RewardPersistFailedPayload struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Error         string  `json:"error"`
}
