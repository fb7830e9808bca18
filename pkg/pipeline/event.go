// Package pipeline parses inbound webhook events and orchestrates the
// enrichment steps: agent tracking, context retrieval, memory-block upkeep,
// agent discovery, and tool attachment.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingPrompt marks an event that carries neither a prompt string nor
// prompt segments. Mapped to HTTP 400 by the handler.
var ErrMissingPrompt = errors.New("webhook has no prompt")

// AgentIDPrefix is the runtime's agent-id convention. Candidates without it
// are discarded.
const AgentIDPrefix = "agent-"

// Prompt is the webhook prompt field: either a raw string or an ordered list
// of typed segments. Normalized to text via Text().
type Prompt struct {
	set      bool
	raw      string
	isString bool
	segments []promptSegment
}

type promptSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts both prompt shapes.
func (p *Prompt) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &p.segments); err != nil {
			return fmt.Errorf("decode prompt segments: %w", err)
		}
		p.set = true
		return nil
	}
	if err := json.Unmarshal(data, &p.raw); err != nil {
		return fmt.Errorf("decode prompt: %w", err)
	}
	p.set = true
	p.isString = true
	return nil
}

// Text returns the effective prompt: the raw string, or the text segments
// joined by single spaces. Non-text segments are ignored.
func (p *Prompt) Text() string {
	if p.isString {
		return p.raw
	}
	var parts []string
	for _, seg := range p.segments {
		if seg.Type == "text" && seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Event is the parsed webhook payload.
type Event struct {
	Type   string `json:"type"`
	Prompt Prompt `json:"prompt"`

	Response *struct {
		AgentID string `json:"agent_id"`
	} `json:"response"`

	Request *struct {
		Path string `json:"path"`
	} `json:"request"`

	MaxNodes *int `json:"max_nodes"`
	MaxFacts *int `json:"max_facts"`
}

// ParseEvent decodes and validates a webhook body.
func ParseEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if !event.Prompt.set {
		return nil, ErrMissingPrompt
	}
	return &event, nil
}

// AgentID resolves the agent id: response.agent_id first, then the path
// segment following "agents" in request.path. Returns "" when neither yields
// a value with the runtime's agent-id prefix.
func (e *Event) AgentID() string {
	if e.Response != nil && validAgentID(e.Response.AgentID) {
		return e.Response.AgentID
	}
	if e.Request != nil {
		segments := strings.Split(strings.Trim(e.Request.Path, "/"), "/")
		for i, seg := range segments {
			if seg == "agents" && i+1 < len(segments) && validAgentID(segments[i+1]) {
				return segments[i+1]
			}
		}
	}
	return ""
}

func validAgentID(id string) bool {
	return strings.HasPrefix(id, AgentIDPrefix) && len(id) > len(AgentIDPrefix)
}
