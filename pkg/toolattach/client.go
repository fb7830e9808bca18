// Package toolattach provides the client for the standalone tool-attachment
// service, which attaches query-relevant tools to an agent while honoring a
// preserve-list.
package toolattach

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

// KeepAllWildcard tells the attachment service to preserve every tool the
// agent currently has. Passed through literally, never expanded here.
const KeepAllWildcard = "*"

// Result is the outcome of one attachment call.
type Result struct {
	Attached  []string
	Detached  []string
	Preserved []string
}

// Client calls the tool-attachment service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limit      int
	minScore   float64
}

// NewClient creates a tool-attachment client with the default limit and
// minimum score for attachment searches.
func NewClient(baseURL string, limit int, minScore float64) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limit:      limit,
		minScore:   minScore,
	}
}

type attachRequest struct {
	Query            string   `json:"query"`
	AgentID          string   `json:"agent_id"`
	KeepTools        []string `json:"keep_tools"`
	Limit            int      `json:"limit"`
	MinScore         float64  `json:"min_score"`
	RequestHeartbeat bool     `json:"request_heartbeat"`
}

type attachResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details struct {
		SuccessfulAttachments []struct {
			ToolID string `json:"tool_id"`
			Name   string `json:"name"`
		} `json:"successful_attachments"`
		DetachedTools  []string `json:"detached_tools"`
		PreservedTools []string `json:"preserved_tools"`
	} `json:"details"`
}

// Attach asks the service to attach tools relevant to query to agentID.
// keepTools is passed through verbatim, wildcard included.
func (c *Client) Attach(ctx context.Context, query, agentID string, keepTools []string) (*Result, error) {
	payload, err := json.Marshal(attachRequest{
		Query:            query,
		AgentID:          agentID,
		KeepTools:        keepTools,
		Limit:            c.limit,
		MinScore:         c.minScore,
		RequestHeartbeat: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal attach request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/tools/attach", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool attachment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tool attachment returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var ar attachResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decode attach response: %w", err)
	}
	if !ar.Success {
		msg := ar.Error
		if msg == "" {
			msg = ar.Message
		}
		if msg == "" {
			msg = "attachment service reported failure"
		}
		return nil, fmt.Errorf("tool attachment failed: %s", msg)
	}

	result := &Result{
		Detached:  ar.Details.DetachedTools,
		Preserved: ar.Details.PreservedTools,
	}
	for _, a := range ar.Details.SuccessfulAttachments {
		name := a.Name
		if name == "" {
			name = a.ToolID
		}
		result.Attached = append(result.Attached, name)
	}
	return result, nil
}
