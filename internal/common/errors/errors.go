// Package errors provides standardized error handling for the analysis pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRulesNotFound  ErrorCode = "RULES_NOT_FOUND"
	ErrCodeRulesReadFailed ErrorCode = "RULES_READ_FAILED"

	ErrCodeConversationNotFound    ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeConversationReadFailed  ErrorCode = "CONVERSATION_READ_FAILED"
	ErrCodeConversationWriteFailed ErrorCode = "CONVERSATION_WRITE_FAILED"
	ErrCodeAppointmentCreateFailed ErrorCode = "APPOINTMENT_CREATE_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewRulesNotFoundError creates a non-retryable configuration-missing error.
// The engine cannot score a reply without the owning user's rules.
func NewRulesNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRulesNotFound,
		Message:   "No analysis rules configured for user",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRulesReadFailedError creates a retryable rules lookup error.
func NewRulesReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRulesReadFailed,
		Message:   "Database error while loading analysis rules",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationNotFoundError creates a non-retryable lookup error for a
// prospect that has no analyzed replies yet.
func NewConversationNotFoundError(prospectID, userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationNotFound,
		Message:   "No conversation state for prospect",
		Details:   fmt.Sprintf("prospectId: %s, userId: %s", prospectID, userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationReadFailedError creates a retryable conversation lookup error.
func NewConversationReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationReadFailed,
		Message:   "Database error while loading conversation state",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationWriteFailedError creates a retryable conversation upsert error.
func NewConversationWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationWriteFailed,
		Message:   "Failed to persist conversation state",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAppointmentCreateFailedError creates a retryable appointment insert error.
func NewAppointmentCreateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAppointmentCreateFailed,
		Message:   "Failed to create pending appointment",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count for a code. The engine
// itself never retries; callers that queue work can use this as a hint.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRulesReadFailed,
		ErrCodeConversationReadFailed,
		ErrCodeConversationWriteFailed,
		ErrCodeAppointmentCreateFailed:
		return 3

	default:
		return 0 // Configuration and validation errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "RULES"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "CONVERSATION") || strings.Contains(codeStr, "APPOINTMENT"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
