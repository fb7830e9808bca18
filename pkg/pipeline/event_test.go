package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	t.Run("string prompt", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"type":"message_sent","prompt":"hello world"}`))
		require.NoError(t, err)
		assert.Equal(t, "message_sent", event.Type)
		assert.Equal(t, "hello world", event.Prompt.Text())
	})

	t.Run("segmented prompt joins text with single spaces", func(t *testing.T) {
		body := `{"type":"message_sent","prompt":[
			{"type":"text","text":"first"},
			{"type":"image","text":"ignored"},
			{"type":"text","text":"second"}
		]}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, "first second", event.Prompt.Text())
	})

	t.Run("zero text segments is an empty prompt", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"type":"message_sent","prompt":[{"type":"image","text":"x"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "", event.Prompt.Text())
	})

	t.Run("missing prompt is rejected", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"type":"message_sent"}`))
		assert.ErrorIs(t, err, ErrMissingPrompt)
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"type":`))
		assert.Error(t, err)
	})

	t.Run("unknown event types are accepted", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"type":"tool_call_started","prompt":"p"}`))
		require.NoError(t, err)
		assert.Equal(t, "tool_call_started", event.Type)
	})

	t.Run("max overrides", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"prompt":"p","max_nodes":4,"max_facts":9}`))
		require.NoError(t, err)
		require.NotNil(t, event.MaxNodes)
		assert.Equal(t, 4, *event.MaxNodes)
		require.NotNil(t, event.MaxFacts)
		assert.Equal(t, 9, *event.MaxFacts)
	})

	t.Run("documented fields round-trip", func(t *testing.T) {
		body := `{"type":"message_sent","prompt":"hi","response":{"agent_id":"agent-7"},"max_nodes":3}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)

		reserialized, err := json.Marshal(map[string]any{
			"type":      event.Type,
			"prompt":    event.Prompt.Text(),
			"response":  map[string]string{"agent_id": event.AgentID()},
			"max_nodes": *event.MaxNodes,
		})
		require.NoError(t, err)

		reparsed, err := ParseEvent(reserialized)
		require.NoError(t, err)
		assert.Equal(t, event.Type, reparsed.Type)
		assert.Equal(t, event.Prompt.Text(), reparsed.Prompt.Text())
		assert.Equal(t, event.AgentID(), reparsed.AgentID())
	})
}

func TestEventAgentID(t *testing.T) {
	t.Run("from response", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"prompt":"p","response":{"agent_id":"agent-abc"}}`))
		require.NoError(t, err)
		assert.Equal(t, "agent-abc", event.AgentID())
	})

	t.Run("from request path", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"prompt":"p","request":{"path":"/v1/agents/agent-xyz/messages"}}`))
		require.NoError(t, err)
		assert.Equal(t, "agent-xyz", event.AgentID())
	})

	t.Run("response wins over path", func(t *testing.T) {
		body := `{"prompt":"p","response":{"agent_id":"agent-r"},"request":{"path":"/v1/agents/agent-p/messages"}}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, "agent-r", event.AgentID())
	})

	t.Run("invalid prefix is rejected", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"prompt":"p","response":{"agent_id":"user-1"},"request":{"path":"/v1/agents/not-an-agent/messages"}}`))
		require.NoError(t, err)
		assert.Equal(t, "", event.AgentID())
	})

	t.Run("path without agents segment", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"prompt":"p","request":{"path":"/v1/blocks/block-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, "", event.AgentID())
	})

	t.Run("absent everywhere", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"prompt":"p"}`))
		require.NoError(t, err)
		assert.Equal(t, "", event.AgentID())
	})
}
