// Package errors provides structured error handling for mission and
// reward domain failures.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Mission validation errors
	CodeMissionIDEmpty           Code = "MISSION_ID_EMPTY"
	CodeMissionNoObjectives      Code = "MISSION_NO_OBJECTIVES"
	CodeMissionNegativeReward    Code = "MISSION_NEGATIVE_REWARD"
	CodeMissionNegativeTimeLimit Code = "MISSION_NEGATIVE_TIME_LIMIT"
	CodeObjectiveIDEmpty         Code = "OBJECTIVE_ID_EMPTY"
	CodeObjectiveIDDuplicate     Code = "OBJECTIVE_ID_DUPLICATE"
	CodeObjectiveInvalidType     Code = "OBJECTIVE_INVALID_TYPE"
	CodeObjectiveNegativeRadius  Code = "OBJECTIVE_NEGATIVE_RADIUS"
	CodeObjectiveNegativeReward  Code = "OBJECTIVE_NEGATIVE_REWARD"

	// Mission lifecycle errors
	CodeRunInProgress Code = "MISSION_RUN_IN_PROGRESS"
	CodeRunNotActive  Code = "MISSION_RUN_NOT_ACTIVE"
	CodeRunNotPaused  Code = "MISSION_RUN_NOT_PAUSED"

	// Settlement errors
	CodeNotConnected     Code = "NOT_CONNECTED"
	CodeSubmissionFailed Code = "SUBMISSION_FAILED"

	// Storage errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeStorageFailure Code = "STORAGE_FAILURE"

	// Catalog errors
	CodeCatalogInvalidDocument Code = "CATALOG_INVALID_DOCUMENT"
)

// Recoverable reports whether an error code represents a transient
// settlement-layer failure that should never terminate processing.
func (c Code) Recoverable() bool {
	switch c {
	case CodeNotConnected, CodeSubmissionFailed:
		return true
	default:
		return false
	}
}
