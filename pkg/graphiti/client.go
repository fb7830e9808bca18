// Package graphiti provides the HTTP client for the Graphiti knowledge-graph
// service: semantic node and fact search plus retry handling.
package graphiti

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Node is a knowledge-graph entity returned by node search.
type Node struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Fact is a single relationship statement returned by fact search.
type Fact struct {
	Fact string `json:"fact"`
}

// Result is the combined outcome of one retrieval: nodes plus deduplicated
// facts, in service order, together with the query and bounds that produced
// them.
type Result struct {
	Query    string
	MaxNodes int
	MaxFacts int
	Nodes    []Node
	Facts    []string
}

// RetryPolicy controls retries for transient search failures.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	// RetryableStatus is the set of HTTP status codes treated as transient.
	RetryableStatus map[int]bool
}

// DefaultRetryPolicy returns the standard policy: three attempts with
// exponential backoff (1s, 2s, 4s) on 429 and 5xx gateway-style failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: 1 * time.Second,
		RetryableStatus: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

// Client calls the Graphiti search endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      RetryPolicy
	logger     *slog.Logger
}

// NewClient creates a Graphiti client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		retry:      DefaultRetryPolicy(),
		logger:     slog.Default().With("component", "graphiti"),
	}
}

// SearchNodes performs semantic node search for query, returning up to
// maxNodes entities.
func (c *Client) SearchNodes(ctx context.Context, query string, maxNodes int) ([]Node, error) {
	body := map[string]any{
		"query":     query,
		"max_nodes": maxNodes,
		"group_ids": []string{},
	}
	raw, err := c.post(ctx, "/search/nodes", body)
	if err != nil {
		return nil, err
	}
	items, err := extractList(raw, "nodes")
	if err != nil {
		return nil, fmt.Errorf("decode node search response: %w", err)
	}
	var nodes []Node
	if err := json.Unmarshal(items, &nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	if len(nodes) > maxNodes {
		nodes = nodes[:maxNodes]
	}
	return nodes, nil
}

// SearchFacts performs semantic fact search for query, returning up to
// maxFacts fact strings deduplicated by exact text, first occurrence kept.
func (c *Client) SearchFacts(ctx context.Context, query string, maxFacts int) ([]string, error) {
	body := map[string]any{
		"query":     query,
		"max_facts": maxFacts,
		"group_ids": []string{},
	}
	raw, err := c.post(ctx, "/search", body)
	if err != nil {
		return nil, err
	}
	items, err := extractList(raw, "facts")
	if err != nil {
		return nil, fmt.Errorf("decode fact search response: %w", err)
	}
	var facts []Fact
	if err := json.Unmarshal(items, &facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}

	seen := make(map[string]bool, len(facts))
	var out []string
	for _, f := range facts {
		if f.Fact == "" || seen[f.Fact] {
			continue
		}
		seen[f.Fact] = true
		out = append(out, f.Fact)
		if len(out) == maxFacts {
			break
		}
	}
	return out, nil
}

// Retrieve runs node and fact search for the same query concurrently and
// joins the results. Either search failing fails the whole retrieval.
func (c *Client) Retrieve(ctx context.Context, query string, maxNodes, maxFacts int) (*Result, error) {
	var (
		wg      sync.WaitGroup
		nodes   []Node
		facts   []string
		nodeErr error
		factErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		nodes, nodeErr = c.SearchNodes(ctx, query, maxNodes)
	}()
	go func() {
		defer wg.Done()
		facts, factErr = c.SearchFacts(ctx, query, maxFacts)
	}()
	wg.Wait()

	if nodeErr != nil {
		return nil, fmt.Errorf("node search: %w", nodeErr)
	}
	if factErr != nil {
		return nil, fmt.Errorf("fact search: %w", factErr)
	}
	return &Result{
		Query:    query,
		MaxNodes: maxNodes,
		MaxFacts: maxFacts,
		Nodes:    nodes,
		Facts:    facts,
	}, nil
}

// post sends one JSON POST under the retry policy and returns the raw
// response body of the first successful attempt.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retry.BackoffBase << (attempt - 1)
			c.logger.Warn("Retrying Graphiti request",
				"path", path,
				"attempt", attempt+1,
				"backoff", backoff,
				"error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, retryable, err := c.doPost(ctx, path, payload)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("graphiti request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

func (c *Client) doPost(ctx context.Context, path string, payload []byte) (raw []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection errors are transient by policy.
		return nil, true, fmt.Errorf("graphiti request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, c.retry.RetryableStatus[resp.StatusCode],
			fmt.Errorf("graphiti returned HTTP %d for %s", resp.StatusCode, path)
	}

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}
	return raw, false, nil
}

// extractList normalizes the two response shapes the service produces: a
// top-level JSON array, or an object wrapping the array under "results" or
// a shape-specific key ("nodes" / "facts").
func extractList(raw []byte, altKey string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("[]"), nil
	}
	if trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"results", altKey} {
		if v, ok := wrapper[key]; ok && len(bytes.TrimSpace(v)) > 0 && bytes.TrimSpace(v)[0] == '[' {
			return v, nil
		}
	}
	return json.RawMessage("[]"), nil
}
