package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases.
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAnswerNotFound     = errors.New("answer not found")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports malformed or inconsistent input: an unknown
// enum value, an answer for a question outside the attempt's assessment,
// a passing score out of range.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a missing resource by type and identifier.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func NewNotFoundError(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprintf("%v", id)}
}

// InvalidStateError reports an operation attempted against an attempt (or
// assessment) whose current state forbids it, e.g. submitting an answer
// to a closed attempt or completing an attempt twice.
type InvalidStateError struct {
	CurrentState string `json:"current_state"`
	Action       string `json:"action"`
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", e.Action, e.CurrentState)
}

func NewInvalidStateError(currentState, action string) *InvalidStateError {
	return &InvalidStateError{CurrentState: currentState, Action: action}
}

// PermissionError reports an authenticated caller acting outside their
// role or ownership.
type PermissionError struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// ===== CLASSIFICATION HELPERS =====

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return true
	}
	return errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrAnswerNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

func IsInvalidStateError(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
