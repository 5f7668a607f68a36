package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", ValidationError("username is required"), http.StatusBadRequest},
		{"not found", NotFoundErrorf("no path for %q", "ghost"), http.StatusNotFound},
		{"timeout", TimeoutError(context.DeadlineExceeded, "ingestion timed out"), http.StatusGatewayTimeout},
		{"canceled", CanceledError(context.Canceled, "ingestion canceled"), StatusClientClosedRequest},
		{"database", DatabaseError(fmt.Errorf("connection refused"), "path query failed"), http.StatusInternalServerError},
		{"untyped", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"wrapped typed", fmt.Errorf("resolve: %w", NotFoundErrorf("missing")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := context.DeadlineExceeded
	err := TimeoutError(cause, "ingestion timed out")

	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeTimeout}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeNotFound}))
	assert.Equal(t, "ingestion timed out: context deadline exceeded", err.Error())
}

func TestContextError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"canceled", context.Canceled, ErrorTypeCanceled},
		{"wrapped canceled", fmt.Errorf("query: %w", context.Canceled), ErrorTypeCanceled},
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ContextError(tt.err, "path query abandoned")
			assert.Equal(t, tt.wantType, err.Type)
			assert.True(t, stderrors.Is(err, tt.err))
		})
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, SeverityHigh, "ignored"))
}

func TestIsType(t *testing.T) {
	assert.True(t, IsType(ValidationError("x"), ErrorTypeValidation))
	assert.False(t, IsType(nil, ErrorTypeInternal))
	assert.True(t, IsFatal(ConfigErrorf("unknown driver %q", "mysql")))
	assert.False(t, IsFatal(NotFoundErrorf("nope")))
}

func TestDetailedString(t *testing.T) {
	err := DatabaseError(fmt.Errorf("socket closed"), "upsert failed").WithContext("username", "octocat")
	s := err.DetailedString()

	assert.Contains(t, s, "[HIGH] [DATABASE] upsert failed")
	assert.Contains(t, s, "Caused by: socket closed")
	assert.Contains(t, s, "username: octocat")
}
