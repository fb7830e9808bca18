// Package matrix delivers sideband new-agent notifications to the Matrix
// chat-bridge. Delivery is fire-and-forget on a bounded worker pool; the
// webhook path never waits on it.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// notifyTimeout bounds each delivery attempt, worker-side and client-side.
const notifyTimeout = 5 * time.Second

// Client posts new-agent events to the chat-bridge.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a chat-bridge client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: notifyTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// NotifyNewAgent posts a new-agent event for agentID.
func (c *Client) NotifyNewAgent(ctx context.Context, agentID string) error {
	payload, err := json.Marshal(map[string]string{
		"agent_id":  agentID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhook/new-agent", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify chat-bridge: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat-bridge returned HTTP %d", resp.StatusCode)
	}
	return nil
}
