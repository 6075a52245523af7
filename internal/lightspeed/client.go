package lightspeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// TokenSource supplies the bearer token for the retail platform and can
// refresh it when the platform answers 401/403.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed API key. Refresh re-returns the same key,
// which makes the refresh-and-retry-once path a plain single retry.
type StaticTokenSource struct {
	key string
}

func NewStaticTokenSource(key string) *StaticTokenSource {
	return &StaticTokenSource{key: key}
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error)   { return s.key, nil }
func (s *StaticTokenSource) Refresh(ctx context.Context) (string, error) { return s.key, nil }

// Client calls the Lightspeed X-Series style retail API. Every outbound call
// goes through do(), which adds retry with exponential backoff, a single
// credential refresh on auth failures, and a per-call timeout.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	retry      config.RetryConfig
	dryRun     bool
	logger     *zap.Logger
}

// NewClient creates a new retail platform client
func NewClient(cfg config.LightspeedConfig, retry config.RetryConfig, tokens TokenSource, dryRun bool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = NewStaticTokenSource(cfg.APIKey)
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:  tokens,
		// The transport timeout is enforced per attempt via context, not here.
		httpClient: &http.Client{},
		retry:      retry,
		dryRun:     dryRun,
		logger:     logger,
	}
}

// DryRun reports whether the client simulates mutations.
func (c *Client) DryRun() bool { return c.dryRun }

// url joins a path onto the base URL. Absolute URLs (pagination links.next)
// pass through unchanged.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	return c.do(ctx, op, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	return c.do(ctx, op, http.MethodPost, path, payload)
}

// do performs one logical API call with the full resilience policy:
//   - transport errors, 5xx, 429 and per-attempt timeouts retry with backoff
//   - the first 401/403 triggers one token refresh and one retry; a second
//     auth failure is fatal for the call
//   - any other 4xx is rejected immediately without retrying
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	fullURL := c.url(path)

	var payloadBytes []byte
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal payload: %w", op, err)
		}
	}

	var (
		lastStatus int
		lastErr    error
		refreshed  bool
	)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to obtain token: %w", op, err)
	}

	attempt := 0
	for attempt < c.retry.MaxAttempts {
		attempt++
		if attempt > 1 {
			delay := c.backoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, status, err := c.send(ctx, method, fullURL, payloadBytes, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Network error or per-attempt timeout: transient.
			c.logger.Warn("Remote call failed, will retry",
				zap.String("op", op),
				zap.String("method", method),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		switch {
		case status >= 200 && status < 300:
			c.logger.Debug("Remote call succeeded",
				zap.String("op", op),
				zap.String("method", method),
				zap.Int("status", status),
				zap.Int("attempt", attempt),
			)
			return body, nil

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if refreshed {
				// Second auth failure after a refresh: fatal for this call.
				c.logger.Error("Remote call still unauthorized after token refresh",
					zap.String("op", op),
					zap.Int("status", status),
				)
				return nil, &errors.ErrRemoteUnavailable{Op: op, Attempts: attempt, LastStatus: status}
			}
			c.logger.Warn("Remote call unauthorized, refreshing token",
				zap.String("op", op),
				zap.Int("status", status),
			)
			token, err = c.tokens.Refresh(ctx)
			if err != nil {
				return nil, &errors.ErrRemoteUnavailable{Op: op, Attempts: attempt, LastStatus: status, Cause: err}
			}
			refreshed = true
			lastStatus = status
			continue

		case status == http.StatusTooManyRequests || status >= 500:
			c.logger.Warn("Remote call returned retryable status",
				zap.String("op", op),
				zap.Int("status", status),
				zap.Int("attempt", attempt),
			)
			lastStatus = status
			lastErr = nil
			continue

		default:
			// Non-retryable 4xx: the payload or request is wrong.
			c.logger.Error("Remote call rejected",
				zap.String("op", op),
				zap.String("method", method),
				zap.Int("status", status),
				zap.String("body", truncate(string(body), 1000)),
			)
			return nil, &errors.ErrRemoteRejected{Op: op, Status: status, Body: truncate(string(body), 1000)}
		}
	}

	return nil, &errors.ErrRemoteUnavailable{Op: op, Attempts: attempt, LastStatus: lastStatus, Cause: lastErr}
}

// send performs a single HTTP attempt under the per-call timeout.
func (c *Client) send(ctx context.Context, method, fullURL string, payload []byte, token string) ([]byte, int, error) {
	if c.retry.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.retry.CallTimeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "faire-lightspeed-lite/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// backoff calculates the delay before the given attempt (attempt >= 2).
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.retry.BaseDelay) * math.Pow(c.retry.Multiplier, float64(attempt-2))
	if max := float64(c.retry.MaxDelay); c.retry.MaxDelay > 0 && delay > max {
		delay = max
	}
	// Add jitter (±25%)
	jitter := delay * 0.25
	delay = delay + (rand.Float64()*2-1)*jitter
	return time.Duration(delay)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
