package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorIsByCode(t *testing.T) {
	cause := errors.New("upstream 502")
	wrapped := ErrSearchFailed.Wrap(cause)

	assert.True(t, errors.Is(wrapped, ErrSearchFailed))
	assert.True(t, errors.Is(wrapped, cause))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "upstream 502", wrapped.Error())
	assert.Equal(t, ErrSearchFailed.Message, ErrSearchFailed.Error())

	// Wrap 不會修改共用的錯誤值
	assert.Nil(t, ErrSearchFailed.Err)
}

func TestToResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		debug   bool
		status  int
		code    string
		details string
	}{
		{
			name:   "custom error",
			err:    ErrNotFound.Wrap(errors.New("recipe 42")),
			status: http.StatusNotFound,
			code:   ErrCodeNotFound,
		},
		{
			name:    "custom error in debug mode",
			err:     ErrServiceUnavailable.Wrap(errors.New("paid quota")),
			debug:   true,
			status:  http.StatusServiceUnavailable,
			code:    ErrCodeServiceUnavailable,
			details: "paid quota",
		},
		{
			name:   "validation error",
			err:    fmt.Errorf("meal plan item 2: %w", NewValidationError("portions must be at least 1")),
			status: http.StatusBadRequest,
			code:   ErrCodeInvalidRequest,
		},
		{
			name:   "unknown error hides details",
			err:    errors.New("disk full"),
			status: http.StatusInternalServerError,
			code:   ErrCodeInternalError,
		},
		{
			name:    "unknown error in debug mode",
			err:     errors.New("disk full"),
			debug:   true,
			status:  http.StatusInternalServerError,
			code:    ErrCodeInternalError,
			details: "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := ToResponse(tt.err, tt.debug)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.details, resp.Details)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("bad")))
	assert.True(t, IsValidationError(fmt.Errorf("wrapped: %w", NewValidationError("bad"))))
	assert.False(t, IsValidationError(errors.New("bad")))
	assert.False(t, IsValidationError(nil))
}
