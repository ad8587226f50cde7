package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"claimcheck/internal/services"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 1
	defaultImageMimeType  = "image/jpeg"
)

// Config captures the runtime settings required to talk to the oracle.
type Config struct {
	URL            string
	Model          string
	AccessKey      string
	TimeoutSeconds int
}

// Client wraps the oracle generate endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the attempt count (defaults to 1, no retry).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an oracle client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			URL:            strings.TrimSpace(cfg.URL),
			Model:          strings.TrimSpace(cfg.Model),
			AccessKey:      strings.TrimSpace(cfg.AccessKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Part is one element of the request's parts list: either text or inline data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64 encoded bytes such as a photograph.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// TextPart builds a free-text prompt part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline image part. An empty mime type defaults to image/jpeg.
func ImagePart(mimeType string, data []byte) Part {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = defaultImageMimeType
	}
	return Part{InlineData: &InlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

type generateRequest struct {
	Contents content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type generateResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error json.RawMessage `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("oracle request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

type emptyContentError struct {
	Snippet string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("oracle request: empty message content (response_snippet=%s)", e.Snippet)
}

// Configured reports whether the client has the settings required to issue requests.
func (c *Client) Configured() error {
	switch {
	case c == nil:
		return errors.New("oracle client not initialized")
	case c.cfg.URL == "":
		return errors.New("oracle url required")
	case c.cfg.Model == "":
		return errors.New("oracle model required")
	case c.cfg.AccessKey == "":
		return errors.New("oracle access key required")
	}
	return nil
}

// Complete submits the parts as a single user turn and returns the model's raw
// reply. Transport failures, non-2xx responses, and empty replies are tagged
// with services.ErrOracleCall.
func (c *Client) Complete(ctx context.Context, parts ...Part) (string, error) {
	if err := c.Configured(); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "oracle", "complete", "", err)
	}
	if len(parts) == 0 {
		return "", services.Wrap(services.ErrValidation, "oracle", "complete", "at least one part required", nil)
	}
	payload := generateRequest{Contents: content{Role: "user", Parts: parts}}
	reply, err := c.contentWithRetry(ctx, payload)
	if err != nil {
		return "", services.Wrap(services.ErrOracleCall, "oracle", "complete", "", err)
	}
	return reply, nil
}

// HealthCheck issues a fast ping to verify the access key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	reply, err := c.Complete(ctx, TextPart(`You must respond with JSON only. Respond with {"ok":true}`))
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(reply, &parsed); err != nil {
		return err
	}
	if !parsed.OK {
		return services.Wrap(services.ErrMalformedOracleResponse, "oracle", "health", "unexpected response", nil)
	}
	return nil
}

func (c *Client) contentWithRetry(ctx context.Context, payload generateRequest) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		reply, body, err := c.sendOnce(ctx, payload)
		if err == nil {
			if text := strings.TrimSpace(reply.Message.Content); text != "" {
				return text, nil
			}
			err = &emptyContentError{Snippet: summarizePayloadSnippet(string(body))}
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			if attempt > 1 {
				return "", fmt.Errorf("failed after %d attempts: %w", attempt, err)
			}
			return "", err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload generateRequest) (generateResponse, []byte, error) {
	var reply generateResponse
	endpoint, err := url.Parse(c.cfg.URL)
	if err != nil {
		return reply, nil, fmt.Errorf("oracle request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return reply, nil, fmt.Errorf("oracle request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(encoded))
	if err != nil {
		return reply, nil, fmt.Errorf("oracle request: new request: %w", err)
	}
	req.Header.Set("model", c.cfg.Model)
	req.Header.Set("access-key", c.cfg.AccessKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reply, nil, fmt.Errorf("oracle request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply, nil, fmt.Errorf("oracle request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return reply, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return reply, body, fmt.Errorf("oracle request: decode response (%s): %w", summarizePayloadSnippet(string(body)), err)
	}
	if msg := apiErrorMessage(reply.Error); msg != "" {
		return reply, body, fmt.Errorf("oracle request: api error: %s", msg)
	}
	return reply, body, nil
}

// apiErrorMessage accepts both {"error":"text"} and {"error":{"message":"text"}}.
func apiErrorMessage(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &obj); err == nil && strings.TrimSpace(obj.Message) != "" {
		return strings.TrimSpace(obj.Message)
	}
	return summarizePayloadSnippet(string(trimmed))
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
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

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
