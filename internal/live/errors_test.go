package live

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidConfig, "invalid_config"},
		{ErrNotAuthorized, "not_authorized"},
		{ErrAlreadyStarted, "already_started"},
		{ErrNotStarted, "not_started"},
		{ErrNoMoreQuestions, "no_more_questions"},
		{ErrSessionClosed, "session_closed"},
		{ErrStaleQuestion, "stale_question"},
		{ErrDuplicateAnswer, "duplicate_answer"},
		{ErrNotFound, "not_found"},
		{errors.New("boom"), "internal"},
		{fmt.Errorf("wrapped: %w", ErrStaleQuestion), "stale_question"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "error %v", tt.err)
	}
}
