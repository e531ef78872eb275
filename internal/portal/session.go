package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
)

// Login form fields and the marker present on the cabinet page after a
// successful logon.
const (
	loginField    = "main_login2"
	passwordField = "main_password2"
	SuccessMarker = "Личный кабинет"
	logonPath     = "/logon"
)

// Client is an authenticated portal connection.
type Client interface {
	Login(ctx context.Context, login, password string) error
	Get(ctx context.Context, rawURL string) (string, error)
	BaseURL() string
	Close() error
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics records fetch counters on m.
func WithMetrics(m *infrastructure.DomainMetrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) {
		s.tracer = t
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client must carry
// a cookie jar for the logon to stick.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.client = c
	}
}

// Session talks to the portal over plain HTTP with a cookie jar.
// Requests are paced by a token bucket so the school's portal is never hammered.
type Session struct {
	baseURL   *url.URL
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *infrastructure.DomainMetrics
	tracer    trace.Tracer
}

// NewSession creates an unauthenticated session for cfg.BaseURL.
func NewSession(cfg config.PortalConfig, opts ...Option) (*Session, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid portal url %q", cfg.BaseURL), err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeInternal, "create cookie jar", err)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	s := &Session{
		baseURL:   base,
		userAgent: userAgent,
		client:    &http.Client{Jar: jar, Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		logger:    slog.Default(),
		tracer:    otel.Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = infrastructure.WithComponent(s.logger, "portal")
	return s, nil
}

// BaseURL returns the portal root without a trailing slash.
func (s *Session) BaseURL() string {
	return s.baseURL.String()
}

// Login posts the logon form and checks the response for the cabinet marker.
// On success the portal root is opened once to finish the session setup.
func (s *Session) Login(ctx context.Context, login, password string) error {
	ctx, span := s.tracer.Start(ctx, "portal.login")
	defer span.End()

	form := url.Values{}
	form.Set(loginField, login)
	form.Set(passwordField, password)

	logonURL := s.BaseURL() + logonPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, logonURL, strings.NewReader(form.Encode()))
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeInternal, "build logon request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", logonURL)

	body, err := s.do(ctx, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}

	if !strings.Contains(body, SuccessMarker) {
		err := apperrors.NewAuthError(apperrors.MsgAuthFailed, nil)
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "portal logon rejected")
		return err
	}
	s.logger.InfoContext(ctx, "portal logon succeeded")

	_, err = s.Get(ctx, s.BaseURL())
	return err
}

// Get fetches rawURL and returns the body. Relative URLs are resolved
// against the portal root.
func (s *Session) Get(ctx context.Context, rawURL string) (string, error) {
	target, err := s.resolve(rawURL)
	if err != nil {
		return "", err
	}

	ctx, span := s.tracer.Start(ctx, "portal.get", trace.WithAttributes(attribute.String("url.path", target.Path)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", apperrors.NewAppError(apperrors.ErrTypeInternal, "build request", err)
	}

	body, err := s.do(ctx, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return body, err
}

// Close is a no-op for HTTP sessions.
func (s *Session) Close() error {
	return nil
}

func (s *Session) resolve(rawURL string) (*url.URL, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.NewUpstreamFormatError(fmt.Sprintf("malformed link %q", rawURL), err)
	}
	return s.baseURL.ResolveReference(ref), nil
}

func (s *Session) do(ctx context.Context, req *http.Request) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", apperrors.NewNetworkError(apperrors.MsgNetwork, err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.RecordFetch(ctx, time.Since(start), err)
		s.logger.ErrorContext(ctx, "portal request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()))
		return "", apperrors.NewNetworkError(apperrors.MsgNetwork, err).
			WithContext("url", req.URL.String())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode >= http.StatusInternalServerError {
		err = fmt.Errorf("portal responded %s", resp.Status)
	}
	s.metrics.RecordFetch(ctx, time.Since(start), err)
	if err != nil {
		return "", apperrors.NewNetworkError(apperrors.MsgNetwork, err).
			WithContext("url", req.URL.String())
	}

	s.logger.DebugContext(ctx, "portal page fetched",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)))

	return string(data), nil
}
