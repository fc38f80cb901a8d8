package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"

	"shinkan/internal/config"
	"shinkan/internal/logging"
)

var (
	// ErrNotFound marks a listing that no longer exists. Permanent; callers
	// must not retry.
	ErrNotFound = errors.New("listing not found")
	// ErrInvalidPage marks a response that came back 200 but is not a real
	// catalog page (interstitial, robot check, truncated body).
	ErrInvalidPage = errors.New("invalid page content")
)

// PageKind selects which pacing profile a request uses.
type PageKind int

const (
	SearchPage PageKind = iota
	ProductPage
)

// Client fetches catalog pages with human-like pacing and bounded retries.
type Client struct {
	http    *resty.Client
	cfg     *config.Config
	logger  *slog.Logger
	rng     *rand.Rand
	baseURL *url.URL
}

// New builds a fetch client from configuration. The transport carries the
// browser-like TLS fingerprint the catalog site expects.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.Catalog.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("init cookie jar: %w", err)
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("User-Agent", browser.Chrome())
	httpClient.SetHeader("Accept-Language", "ja-JP,ja;q=0.9,en-US;q=0.6")
	httpClient.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	httpClient.SetTimeout(time.Duration(cfg.Timing.RequestTimeoutSeconds) * time.Second)

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "fetch"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		baseURL: base,
	}, nil
}

// HTTPClient exposes the underlying transport so tests can intercept it.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

// WarmUp visits the catalog front page once so the session starts with the
// cookies a direct deep link would lack, then pins prices to JPY.
func (c *Client) WarmUp(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL.String())
	if err != nil {
		return fmt.Errorf("warm up session: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("warm up session: status %d", resp.StatusCode())
	}
	c.http.SetCookie(&http.Cookie{
		Name:   "i18n-prefs",
		Value:  "JPY",
		Domain: c.baseURL.Hostname(),
		Path:   "/",
	})
	c.logger.Debug("session warmed up", slog.Int("status", resp.StatusCode()))
	return nil
}

// Fetch retrieves one page, pacing the request for its kind and retrying
// transient failures with exponential backoff. 404 responses return
// ErrNotFound without retrying.
func (c *Client) Fetch(ctx context.Context, pageURL string, kind PageKind) (string, error) {
	if err := c.pace(ctx, kind); err != nil {
		return "", err
	}

	maxAttempts := c.cfg.Timing.MaxFetchRetries + 1
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		resp, err := c.http.R().SetContext(ctx).Get(pageURL)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s: %w", pageURL, err)
			c.logger.Warn("request failed",
				slog.String("url", pageURL),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			continue
		}

		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return "", fmt.Errorf("fetch %s: %w", pageURL, ErrNotFound)
		case resp.StatusCode() == http.StatusServiceUnavailable,
			resp.StatusCode() == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode())
			c.logger.Warn("throttled by catalog site",
				slog.String("url", pageURL),
				slog.Int("status", resp.StatusCode()),
				slog.Int("attempt", attempt+1))
			continue
		case resp.StatusCode() >= 400:
			return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode())
		}

		body := resp.String()
		if !looksLikeRealPage(body) {
			lastErr = fmt.Errorf("fetch %s: %w", pageURL, ErrInvalidPage)
			c.logger.Warn("interstitial page served",
				slog.String("url", pageURL),
				slog.Int("length", len(body)),
				slog.Int("attempt", attempt+1))
			continue
		}
		return body, nil
	}
	return "", lastErr
}

// pace sleeps a jittered interval appropriate for the page kind.
func (c *Client) pace(ctx context.Context, kind PageKind) error {
	var minMs, maxMs int
	switch kind {
	case SearchPage:
		minMs, maxMs = c.cfg.Timing.SearchDelayMinMs, c.cfg.Timing.SearchDelayMaxMs
	default:
		minMs, maxMs = c.cfg.Timing.ProductDelayMinMs, c.cfg.Timing.ProductDelayMaxMs
	}
	return c.sleepJittered(ctx, minMs, maxMs)
}

// PauseBetweenSeries sleeps the jittered gap taken after each series.
func (c *Client) PauseBetweenSeries(ctx context.Context) error {
	return c.sleepJittered(ctx, c.cfg.Timing.SeriesPauseMinMs, c.cfg.Timing.SeriesPauseMaxMs)
}

func (c *Client) sleepJittered(ctx context.Context, minMs, maxMs int) error {
	if maxMs <= 0 {
		return nil
	}
	if maxMs < minMs {
		maxMs = minMs
	}
	delay := time.Duration(minMs) * time.Millisecond
	if spread := maxMs - minMs; spread > 0 {
		delay += time.Duration(c.rng.Intn(spread)) * time.Millisecond
	}
	return sleepCtx(ctx, delay)
}

// backoff waits before retry n, capped at one minute.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	base := time.Duration(10*(1<<uint(attempt-1))) * time.Second
	jitter := time.Duration(c.rng.Intn(2000)) * time.Millisecond
	delay := base + jitter
	if delay > time.Minute {
		delay = time.Minute
	}
	return sleepCtx(ctx, delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const minRealPageBytes = 500

var interstitialMarkers = []string{
	"api-services-support@amazon.com",
	"Robot Check",
	"ロボットによる自動アクセス",
	"captcha",
	"自動的にリダイレクトされない場合",
}

func looksLikeRealPage(body string) bool {
	if len(body) < minRealPageBytes {
		return false
	}
	for _, marker := range interstitialMarkers {
		if strings.Contains(body, marker) {
			return false
		}
	}
	return true
}
