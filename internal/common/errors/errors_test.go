// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryability(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		retries    int
		category   string
	}{
		{ErrCodeRulesNotFound, 0, "CONFIGURATION"},
		{ErrCodeRulesReadFailed, 3, "CONFIGURATION"},
		{ErrCodeConversationNotFound, 0, "PERSISTENCE"},
		{ErrCodeConversationReadFailed, 3, "PERSISTENCE"},
		{ErrCodeConversationWriteFailed, 3, "PERSISTENCE"},
		{ErrCodeAppointmentCreateFailed, 3, "PERSISTENCE"},
		{ErrCodeInvalidRequest, 0, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retries, GetRetryCount(tt.code))
			assert.Equal(t, tt.retries > 0, IsRetryableErrorCode(tt.code))
			assert.Equal(t, tt.category, GetErrorCategory(tt.code))
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("connection reset")

	notFound := NewRulesNotFoundError("user-1")
	assert.False(t, notFound.Retryable)
	assert.Contains(t, notFound.Details, "user-1")
	assert.Contains(t, notFound.Error(), string(ErrCodeRulesNotFound))

	readFailed := NewRulesReadFailedError(cause)
	assert.True(t, readFailed.Retryable)
	assert.Equal(t, cause.Error(), readFailed.Details)

	invalid := NewInvalidRequestError("reply_text must be a string")
	assert.False(t, invalid.Retryable)
	assert.False(t, invalid.Timestamp.IsZero())
}
