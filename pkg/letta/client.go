// Package letta provides the HTTP client for the Letta agent runtime:
// memory block CRUD, block attachment, and tool lookup.
package letta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FindToolsFallbackID is the well-known id of the find_tools utility, used
// when lookup against the runtime fails.
const FindToolsFallbackID = "tool-e34b5c60-5bd5-4288-a97f-2167ddf3062b"

// blockPageSize is the page size used when walking the process-wide block
// listing.
const blockPageSize = 50

// Block is a labeled memory block owned by the runtime.
type Block struct {
	ID       string         `json:"id,omitempty"`
	Label    string         `json:"label"`
	Value    string         `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Tool is a runtime tool as returned by the agent tool listing.
type Tool struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client calls the Letta runtime REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	password   string
	logger     *slog.Logger
}

// NewClient creates a runtime client. baseURL should include the /v1 prefix.
// password is the shared secret sent on every request; empty disables auth
// headers.
func NewClient(baseURL, password string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		password:   password,
		logger:     slog.Default().With("component", "letta"),
	}
}

// ListAgentBlocks returns the core-memory blocks of one agent.
func (c *Client) ListAgentBlocks(ctx context.Context, agentID string) ([]Block, error) {
	var blocks []Block
	path := fmt.Sprintf("/agents/%s/core-memory/blocks", url.PathEscape(agentID))
	if err := c.do(ctx, http.MethodGet, path, agentID, nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// ListBlocksByLabel pages through the process-wide block listing for a label
// until exhaustion.
func (c *Client) ListBlocksByLabel(ctx context.Context, label string) ([]Block, error) {
	var all []Block
	for offset := 0; ; offset += blockPageSize {
		path := "/blocks?label=" + url.QueryEscape(label) +
			"&templates_only=false&limit=" + strconv.Itoa(blockPageSize) +
			"&offset=" + strconv.Itoa(offset)
		var page []Block
		if err := c.do(ctx, http.MethodGet, path, "", nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < blockPageSize {
			return all, nil
		}
	}
}

// GetBlock fetches a block by id.
func (c *Client) GetBlock(ctx context.Context, blockID string) (*Block, error) {
	var block Block
	if err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID), "", nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// CreateBlock creates a new block and returns it with its assigned id.
func (c *Client) CreateBlock(ctx context.Context, label, value string, metadata map[string]any) (*Block, error) {
	req := Block{Label: label, Value: value, Metadata: metadata}
	var created Block
	if err := c.do(ctx, http.MethodPost, "/blocks", "", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateBlock overwrites a block's value.
func (c *Client) UpdateBlock(ctx context.Context, blockID, value string) error {
	body := map[string]string{"value": value}
	return c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID), "", body, nil)
}

// AttachBlock attaches a block to an agent's core memory. A runtime 409
// means the block is already attached and is treated as success.
func (c *Client) AttachBlock(ctx context.Context, agentID, blockID string) error {
	path := fmt.Sprintf("/agents/%s/core-memory/blocks/attach/%s",
		url.PathEscape(agentID), url.PathEscape(blockID))
	err := c.do(ctx, http.MethodPatch, path, agentID, map[string]any{}, nil)
	if IsConflict(err) {
		return nil
	}
	return err
}

// ListAgentTools returns the tools currently attached to an agent.
func (c *Client) ListAgentTools(ctx context.Context, agentID string) ([]Tool, error) {
	var tools []Tool
	path := fmt.Sprintf("/agents/%s/tools", url.PathEscape(agentID))
	if err := c.do(ctx, http.MethodGet, path, agentID, nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// FindToolsID resolves the id of the find_tools utility for an agent,
// falling back to the well-known id when lookup fails.
func (c *Client) FindToolsID(ctx context.Context, agentID string) string {
	tools, err := c.ListAgentTools(ctx, agentID)
	if err != nil {
		c.logger.Warn("Tool lookup failed, using fallback find_tools id",
			"agent_id", agentID, "error", err)
		return FindToolsFallbackID
	}
	for _, tool := range tools {
		if tool.Name == "find_tools" && tool.ID != "" {
			return tool.ID
		}
	}
	return FindToolsFallbackID
}

// do runs one authenticated request and decodes the JSON response into out
// when out is non-nil. actingAgent, when set, is forwarded as the
// caller-identity header.
func (c *Client) do(ctx context.Context, method, path, actingAgent string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.password != "" {
		req.Header.Set("X-BARE-PASSWORD", "password "+c.password)
		req.Header.Set("Authorization", "Bearer "+c.password)
	}
	if actingAgent != "" {
		req.Header.Set("user_id", actingAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("letta request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	return nil
}
