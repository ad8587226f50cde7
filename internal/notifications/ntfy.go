package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "Claimcheck-Go/0.1.0"

type ntfyPublisher struct {
	endpoint string
	client   *http.Client
}

func newNtfyPublisher(topic string, timeoutSeconds int) *ntfyPublisher {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyPublisher{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

func (n *ntfyPublisher) name() string { return "ntfy" }

func (n *ntfyPublisher) close() error { return nil }

func (n *ntfyPublisher) publish(ctx context.Context, event Event) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(event.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if event.title != "" {
		req.Header.Set("Title", event.title)
	}
	if len(event.tags) > 0 {
		req.Header.Set("Tags", strings.Join(event.tags, ","))
	}
	if event.priority != "" && event.priority != "default" {
		req.Header.Set("Priority", event.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
