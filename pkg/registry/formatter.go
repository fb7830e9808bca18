package registry

import (
	"fmt"
	"strings"
)

const (
	listingHeader = "Available Agents for Collaboration:\n"
	listingFooter = "\nUse matrix_agent_message tool with agent ID to contact them."

	// NoAgentsMessage is the block content when search returned nothing.
	NoAgentsMessage = "No relevant agents found for the current context."
)

// FormatListing renders agents as the available_agents block content,
// dropping trailing agents so the result never exceeds maxBytes.
func FormatListing(agents []Agent, maxBytes int) string {
	if len(agents) == 0 {
		return NoAgentsMessage
	}

	entries := make([]string, 0, len(agents))
	for _, a := range agents {
		entries = append(entries, formatAgent(a))
	}

	for len(entries) > 0 {
		listing := listingHeader + strings.Join(entries, "\n") + listingFooter
		if len(listing) <= maxBytes {
			return listing
		}
		entries = entries[:len(entries)-1]
	}
	return NoAgentsMessage
}

func formatAgent(a Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s (%s)", a.Name, a.AgentID)
	if a.Status != "" {
		fmt.Fprintf(&b, " [%s]", a.Status)
	}
	fmt.Fprintf(&b, " [relevance: %.2f]", a.Score)
	if a.Description != "" {
		fmt.Fprintf(&b, "\n  Description: %s", a.Description)
	}
	if len(a.Capabilities) > 0 {
		fmt.Fprintf(&b, "\n  Capabilities: %s", strings.Join(a.Capabilities, ", "))
	}
	return b.String()
}
