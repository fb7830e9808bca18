// Package registry provides the client for the agent-registry semantic
// search service and the formatter for the available_agents memory block.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Agent is one registry search hit.
type Agent struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Status       string   `json:"status"`
	Score        float64  `json:"score"`
}

// Client calls the agent-registry search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Search runs a semantic agent search, returning up to limit agents with
// relevance of at least minScore, best first.
func (c *Client) Search(ctx context.Context, query string, limit int, minScore float64) ([]Agent, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("min_score", strconv.FormatFloat(minScore, 'f', -1, 64))

	reqURL := c.baseURL + "/api/v1/agents/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("registry returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Agents []Agent `json:"agents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}
	return result.Agents, nil
}
