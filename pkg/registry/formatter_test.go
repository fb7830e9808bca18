package registry

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatListing(t *testing.T) {
	t.Run("full entry", func(t *testing.T) {
		agents := []Agent{{
			AgentID:      "agent-1",
			Name:         "Scheduler",
			Description:  "plans work across the fleet",
			Capabilities: []string{"plan", "dispatch"},
			Status:       "online",
			Score:        0.912,
		}}

		listing := FormatListing(agents, 4800)
		assert.True(t, strings.HasPrefix(listing, "Available Agents for Collaboration:\n"))
		assert.Contains(t, listing, "- Scheduler (agent-1) [online] [relevance: 0.91]")
		assert.Contains(t, listing, "Description: plans work across the fleet")
		assert.Contains(t, listing, "Capabilities: plan, dispatch")
		assert.Contains(t, listing, "Use matrix_agent_message tool")
	})

	t.Run("optional fields omitted", func(t *testing.T) {
		agents := []Agent{{AgentID: "agent-1", Name: "Minimal", Score: 0.5}}
		listing := FormatListing(agents, 4800)
		assert.Contains(t, listing, "- Minimal (agent-1) [relevance: 0.50]")
		assert.NotContains(t, listing, "Description:")
		assert.NotContains(t, listing, "Capabilities:")
	})

	t.Run("empty search result", func(t *testing.T) {
		assert.Equal(t, NoAgentsMessage, FormatListing(nil, 4800))
	})

	t.Run("drops trailing agents to fit the budget", func(t *testing.T) {
		var agents []Agent
		for i := 0; i < 50; i++ {
			agents = append(agents, Agent{
				AgentID:     fmt.Sprintf("agent-%d", i),
				Name:        fmt.Sprintf("Agent %d", i),
				Description: strings.Repeat("long description ", 20),
				Score:       0.9,
			})
		}

		listing := FormatListing(agents, 4800)
		require.LessOrEqual(t, len(listing), 4800)
		assert.Contains(t, listing, "agent-0", "best-ranked agent survives")
		assert.NotContains(t, listing, "agent-49", "worst-ranked agent is dropped")
	})
}
