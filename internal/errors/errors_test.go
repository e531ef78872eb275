package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("connection reset")

	err := NewNetworkError("fetch page", cause)
	assert.Equal(t, "[NETWORK] fetch page: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := NewAuthError("login rejected", nil)
	assert.Equal(t, "[AUTH] login rejected", plain.Error())
}

func TestAppError_WithContext(t *testing.T) {
	err := NewUpstreamFormatError("no table", nil).
		WithContext("url", "https://example.org").
		WithContext("page", 2)

	assert.Equal(t, "https://example.org", err.Context["url"])
	assert.Equal(t, 2, err.Context["page"])
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"auth", NewAuthError("x", nil), ErrTypeAuth},
		{"wrapped network", fmt.Errorf("grade 7A: %w", NewNetworkError("x", nil)), ErrTypeNetwork},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeOf(tt.err))
		})
	}

	assert.True(t, IsType(NewConfigError("x", nil), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"auth", NewAuthError("bad password", nil), MsgAuthFailed},
		{"network", fmt.Errorf("run: %w", NewNetworkError("dial", errors.New("refused"))), MsgNetwork},
		{"feature locked", NewFeatureLockedError("denied"), MsgFeatureLocked},
		{"config keeps message", NewConfigError(MsgMissingCredentials, nil), MsgMissingCredentials},
		{"upstream", NewUpstreamFormatError("no table", nil), MsgUpstreamFormat},
		{"unknown", errors.New("boom"), MsgUnexpected},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err))
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"auth", NewAuthError("rejected", nil), http.StatusUnauthorized, TypeUnauthorized},
		{"conflict", NewConflictError("busy"), http.StatusConflict, TypeRunInProgress},
		{"feature locked", NewFeatureLockedError("denied"), http.StatusForbidden, TypeFeatureLocked},
		{"plain", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/runs/check", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/runs/check", body["instance"])
		})
	}
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "term out of range", "/api/runs/report").
		WithExtension("field", "term")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "term", body["field"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.Equal(t, "term out of range", body["detail"])
}
