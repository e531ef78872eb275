package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
)

// BrowserSession drives a headless Chrome instead of a bare HTTP client.
// It is used when the portal starts requiring JavaScript on the logon page.
type BrowserSession struct {
	baseURL   *url.URL
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *infrastructure.DomainMetrics
	timeout   time.Duration
	allocStop context.CancelFunc
	browser   context.Context
	stop      context.CancelFunc

	mu sync.Mutex
}

// NewBrowserSession starts a Chrome process for cfg. Close must be called to
// release it.
func NewBrowserSession(cfg config.PortalConfig, logger *slog.Logger, metrics *infrastructure.DomainMetrics) (*BrowserSession, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid portal url %q", cfg.BaseURL), err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
	browser, stop := chromedp.NewContext(allocCtx)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &BrowserSession{
		baseURL:   base,
		limiter:   rate.NewLimiter(limit, max(cfg.Burst, 1)),
		logger:    infrastructure.WithComponent(logger, "portal.browser"),
		metrics:   metrics,
		timeout:   cfg.Timeout,
		allocStop: allocStop,
		browser:   browser,
		stop:      stop,
	}, nil
}

// BaseURL returns the portal root without a trailing slash.
func (b *BrowserSession) BaseURL() string {
	return b.baseURL.String()
}

// Login fills the logon form in the page and waits for the cabinet marker.
func (b *BrowserSession) Login(ctx context.Context, login, password string) error {
	var html string
	err := b.run(ctx,
		chromedp.Navigate(b.BaseURL()+logonPath),
		chromedp.WaitVisible(`input[name="`+loginField+`"]`, chromedp.ByQuery),
		chromedp.SetValue(`input[name="`+loginField+`"]`, login, chromedp.ByQuery),
		chromedp.SetValue(`input[name="`+passwordField+`"]`, password, chromedp.ByQuery),
		chromedp.Submit(`input[name="`+passwordField+`"]`, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return err
	}
	if !strings.Contains(html, SuccessMarker) {
		b.logger.WarnContext(ctx, "portal logon rejected")
		return apperrors.NewAuthError(apperrors.MsgAuthFailed, nil)
	}
	b.logger.InfoContext(ctx, "portal logon succeeded")
	return nil
}

// Get navigates to rawURL and returns the rendered document.
func (b *BrowserSession) Get(ctx context.Context, rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", apperrors.NewUpstreamFormatError(fmt.Sprintf("malformed link %q", rawURL), err)
	}
	target := b.baseURL.ResolveReference(ref).String()

	var html string
	err = b.run(ctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// Close stops the browser.
func (b *BrowserSession) Close() error {
	b.stop()
	b.allocStop()
	return nil
}

// run executes actions in the browser tab. Tabs are not safe for concurrent
// navigation so calls are serialized.
func (b *BrowserSession) run(ctx context.Context, actions ...chromedp.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.limiter.Wait(ctx); err != nil {
		return apperrors.NewNetworkError(apperrors.MsgNetwork, err)
	}

	tabCtx := b.browser
	if b.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	err := chromedp.Run(tabCtx, actions...)
	b.metrics.RecordFetch(ctx, time.Since(start), err)
	if err != nil {
		b.logger.ErrorContext(ctx, "browser navigation failed", slog.String("error", err.Error()))
		return apperrors.NewNetworkError(apperrors.MsgNetwork, err)
	}
	return nil
}

// Dialer opens an unauthenticated portal client.
type Dialer func(ctx context.Context) (Client, error)

// NewDialer returns a Dialer opening a fresh client for every run.
func NewDialer(cfg config.PortalConfig, logger *slog.Logger, metrics *infrastructure.DomainMetrics) Dialer {
	return func(context.Context) (Client, error) {
		return New(cfg, logger, metrics)
	}
}

// New opens a portal client using the configured driver.
func New(cfg config.PortalConfig, logger *slog.Logger, metrics *infrastructure.DomainMetrics) (Client, error) {
	switch cfg.Driver {
	case config.DriverBrowser:
		return NewBrowserSession(cfg, logger, metrics)
	default:
		opts := []Option{WithMetrics(metrics)}
		if logger != nil {
			opts = append(opts, WithLogger(logger))
		}
		return NewSession(cfg, opts...)
	}
}
