// Shared HTTP plumbing for the external service clients
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	defaultTimeout    = 30 * time.Second
	maxErrorBody      = 512
)

// Options configures the HTTP behaviour shared by all clients.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client  // overrides Timeout when set
	Timeout      time.Duration // per attempt, each retry gets a fresh timeout
	MaxRetries   int           // total attempts per request, including the first
	RetryBackoff time.Duration
	RateLimit    float64 // requests per second, zero disables pacing
	Logger       *log.Logger
}

// apiClient sends JSON requests with retry, backoff and optional pacing.
type apiClient struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *log.Logger
}

func newAPIClient(name, defaultBaseURL string, opts Options) *apiClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &apiClient{
		name:        name,
		baseURL:     baseURL,
		httpClient:  httpClient,
		maxRetries:  maxRetries,
		baseBackoff: backoff,
		logger:      logger.With("service", name),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// newRequest builds a request against the client's base URL, encoding body as JSON.
func (c *apiClient) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// fetch sends req, retrying transport errors, 429 and 5xx, and returns the final status and body.
// A write is retried on 429 only, since a 5xx or dropped connection may follow a committed write.
//
// Only transport failures and cancellation are returned as errors; status handling is left to the caller.
func (c *apiClient) fetch(op string, req *http.Request, write bool) (int, []byte, error) {
	ctx := req.Context()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, &Failure{Kind: KindTransport, Op: op, Err: err}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return 0, nil, &Failure{Kind: KindTransport, Op: op, Err: err}
			}
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return 0, nil, &Failure{Kind: KindTransport, Op: op, Err: fmt.Errorf("reset request body: %w", err)}
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		last := attempt == c.maxRetries-1
		retryAfter, retry := shouldRetry(resp, err, write)

		if !retry || last {
			if err != nil {
				return 0, nil, &Failure{Kind: KindTransport, Op: op, Err: err}
			}
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return resp.StatusCode, nil, &Failure{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: err}
			}
			return resp.StatusCode, data, nil
		}

		if err != nil {
			c.logger.Warn("retrying request", "op", op, "attempt", attempt+1, "max", c.maxRetries, "err", err)
		} else {
			c.logger.Warn("retrying request", "op", op, "attempt", attempt+1, "max", c.maxRetries, "status", resp.StatusCode)
			_ = resp.Body.Close()
		}

		backoff := c.baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return 0, nil, &Failure{Kind: KindTransport, Op: op, Err: err}
		}
	}

	return 0, nil, &Failure{Kind: KindTransport, Op: op, Err: fmt.Errorf("no attempts made")}
}

// doJSON sends a request without side effects and decodes a successful response into out.
func (c *apiClient) doJSON(op string, req *http.Request, out any) error {
	return c.send(op, req, out, false)
}

// doWrite is doJSON for requests that must not be repeated once the upstream may have applied them.
func (c *apiClient) doWrite(op string, req *http.Request, out any) error {
	return c.send(op, req, out, true)
}

func (c *apiClient) send(op string, req *http.Request, out any, write bool) error {
	status, body, err := c.fetch(op, req, write)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return statusFailure(op, status, errorDetail(body))
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return malformed(op, "failed to decode response: %w", err)
	}
	return nil
}

func shouldRetry(resp *http.Response, err error, write bool) (time.Duration, bool) {
	if err != nil {
		return 0, !write
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return parseRetryAfter(resp), true
	}
	if !write && resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorDetail pulls a human-readable message out of an error body.
func errorDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch e := payload.Error.(type) {
		case string:
			return e
		case map[string]any:
			if msg, ok := e["message"].(string); ok {
				return msg
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
