package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"query", fmt.Errorf("parsing: %w", ErrQuery), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"empty relevance set", ErrEmptyRelevanceSet, http.StatusUnprocessableEntity},
		{"index not built", ErrIndexNotBuilt, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("%w: vsm", ErrTimeout), http.StatusGatewayTimeout},
		{"duplicate", ErrDuplicateDocument, http.StatusConflict},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"explicit status wins", New(ErrInternal, http.StatusServiceUnavailable, "reload is not configured"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d out of range", -1)
	assert.Equal(t, "invalid input: limit -1 out of range", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "internal error", New(ErrInternal, http.StatusInternalServerError, "").Error())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrQuery))
	assert.False(t, IsClientError(ErrIndexNotBuilt))
	assert.False(t, IsClientError(errors.New("boom")))
}
