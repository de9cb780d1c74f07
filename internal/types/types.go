// Package types provides common type definitions for the Pace Club service.
package types

// ActivityType represents the sport tag on a fetched activity
type ActivityType string

const (
	// ActivityRun is the only activity type the aggregator consumes
	ActivityRun ActivityType = "Run"
)

// DisclosureField identifies an attribute requested during identity verification
type DisclosureField string

const (
	// FieldName is the verified legal name
	FieldName DisclosureField = "name"
	// FieldDateOfBirth is the verified date of birth
	FieldDateOfBirth DisclosureField = "date_of_birth"
	// FieldNationality is the verified nationality
	FieldNationality DisclosureField = "nationality"
	// FieldGender is the verified gender
	FieldGender DisclosureField = "gender"
)

// DisclosureSet is the fixed set of attributes requested from the
// verification protocol.
var DisclosureSet = []DisclosureField{
	FieldName,
	FieldNationality,
	FieldDateOfBirth,
	FieldGender,
}

// WorkoutTrail is the provider's workout_type tag for trail runs
const WorkoutTrail = 1

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}
