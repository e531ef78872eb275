package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/shared/testutil"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"generated", ""},
		{"propagated", "req-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenReqID, seenTrace string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenReqID = middleware.GetReqID(r.Context())
				seenTrace = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			require.NotEmpty(t, got)
			if tt.header != "" {
				assert.Equal(t, tt.header, got)
			}
			assert.Equal(t, got, seenReqID)
			assert.Equal(t, got, seenTrace)
		})
	}
}

func TestRecoverer(t *testing.T) {
	handler := apperrors.NewErrorHandler(infrastructure.GetLogger(), false)
	h := RequestID(Recoverer(handler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/current", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.TypeInternal, body["type"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["trace_id"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, nil)
	h := rl.Handler(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs/check", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080/"}})(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantAllow  string
		wantStatus int
	}{
		{"allowed origin", http.MethodGet, "http://localhost:8080", false, "http://localhost:8080", http.StatusOK},
		{"foreign origin", http.MethodGet, "http://evil.example.com", false, "", http.StatusOK},
		{"preflight", http.MethodOptions, "http://localhost:8080", true, "http://localhost:8080", http.StatusNoContent},
		{"no origin", http.MethodGet, "", false, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/runs/current", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

type checkRequest struct {
	Login     string `json:"login"`
	ClassFrom int    `json:"class_from" validate:"gte=1,lte=11"`
	GroupBy   string `json:"group_by" validate:"omitempty,oneof=grades teachers"`
}

func TestValidator_Decode(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
	}{
		{"valid", `{"login":"director","class_from":5}`, false, ""},
		{"malformed json", `{"login":`, true, ""},
		{"out of range", `{"class_from":12}`, true, "class_from"},
		{"bad enum", `{"class_from":5,"group_by":"rooms"}`, true, "group_by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/runs/check", strings.NewReader(tt.body))
			var dst checkRequest
			err := v.Decode(req, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "director", dst.Login)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
			if tt.wantField != "" {
				assert.Contains(t, err.Error(), tt.wantField)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestStructuredLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  slog.Level
	}{
		{"api request", "/api/runs/current", http.StatusOK, slog.LevelInfo},
		{"health probe", "/api/health", http.StatusOK, slog.LevelDebug},
		{"server error", "/api/runs/check", http.StatusInternalServerError, slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, capture := testutil.NewTestLogger(t)
			h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			rec := testutil.AssertLogged(t, capture, tt.level, "request completed")
			assert.Equal(t, tt.path, rec.Attrs["path"])
			assert.Equal(t, int64(tt.status), rec.Attrs["status"])
			assert.NotEmpty(t, rec.Attrs["trace_id"])
		})
	}
}
