package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ErrValidation, http.StatusBadRequest},
		{"conflict", ErrConflict.WithCause(stderrors.New("diverged")), http.StatusConflict},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"wrapped coded error", fmt.Errorf("pass failed: %w", ErrInternal), http.StatusInternalServerError},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.err))
		})
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrConflict.WithCause(stderrors.New("diverged")))
	assert.Equal(t, "CONFLICT", resp["error_code"])
	assert.Equal(t, "resource conflict", resp["error"])

	resp = ToErrorResponse(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])
}

func TestRetryClassification(t *testing.T) {
	assert.False(t, ErrValidation.IsRetryable())
	assert.True(t, ErrValidation.IsFatal())

	assert.True(t, ErrServiceUnavailable.IsRetryable())
	assert.False(t, ErrServiceUnavailable.IsFatal())

	forced := ErrServiceUnavailable.AsFatal()
	assert.True(t, forced.IsFatal())
	assert.False(t, forced.IsRetryable())
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ErrServiceUnavailable.WithCause(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "SERVICE_UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
}
