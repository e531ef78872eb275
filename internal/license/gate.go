package license

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
)

const (
	defaultTimeout = 15 * time.Second
	cacheTTL       = 30 * time.Minute
	cacheSize      = 64
	// answers are a few bytes; anything larger is not the feature server
	maxResponseSize = 64 << 10
)

// gateResponse is the answer of the feature server.
type gateResponse struct {
	Status bool `json:"status"`
}

// Gate checks logins against the feature server.
type Gate struct {
	enabled bool
	url     string
	client  *http.Client
	cache   *statusCache
	logger  *slog.Logger
}

// NewGate creates a gate from the features config.
func NewGate(cfg config.FeaturesConfig, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gate{
		enabled: cfg.Enabled && cfg.GateURL != "",
		url:     cfg.GateURL,
		client:  &http.Client{Timeout: timeout},
		cache:   newStatusCache(cacheTTL, cacheSize),
		logger:  infrastructure.WithComponent(logger, "license"),
	}
}

// WithHTTPClient replaces the client used to reach the feature server.
func (g *Gate) WithHTTPClient(c *http.Client) *Gate {
	g.client = c
	return g
}

// Enabled reports whether logins are checked at all.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Check returns a FEATURE_LOCKED error when the feature server does not
// accept login.
func (g *Gate) Check(ctx context.Context, login string) error {
	if !g.enabled {
		return nil
	}
	login = strings.TrimSpace(login)
	if g.cache.allowed(login) {
		return nil
	}

	ok, err := g.status(ctx, login)
	if err != nil {
		infrastructure.WithError(g.logger, err).WarnContext(ctx, "feature check failed")
		return err
	}
	infrastructure.AddSpanEvent(ctx, "license.checked", attribute.Bool("allowed", ok))
	if !ok {
		g.cache.forget(login)
		g.logger.InfoContext(ctx, "feature locked for login")
		return apperrors.NewFeatureLockedError(apperrors.MsgFeatureLocked)
	}
	g.cache.accept(login)
	return nil
}

// CacheStats returns the cache hit and miss counts.
func (g *Gate) CacheStats() (hits, misses int64) {
	return g.cache.stats()
}

func (g *Gate) status(ctx context.Context, login string) (bool, error) {
	form := url.Values{"login": {login}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, strings.NewReader(form.Encode()))
	if err != nil {
		return false, apperrors.NewConfigError("invalid feature gate url", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return false, apperrors.NewNetworkError("feature gate request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return false, apperrors.NewNetworkError("read feature gate response", err)
	}
	g.logger.DebugContext(ctx, "feature gate answered",
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return false, apperrors.NewNetworkError(fmt.Sprintf("feature gate returned status %d", resp.StatusCode), nil)
	}

	var answer gateResponse
	if err := json.Unmarshal(body, &answer); err != nil {
		return false, apperrors.NewUpstreamFormatError("parse feature gate response", err)
	}
	return answer.Status, nil
}
