package graphiti

import (
	"fmt"
	"strings"
)

// NoResultsMessage is stored as the context when the retrieval produced
// neither nodes nor facts. It records what was searched so the agent can see
// the lookup happened.
func NoResultsMessage(query string, maxNodes, maxFacts int) string {
	return fmt.Sprintf("No relevant information found in the knowledge graph for query: '%s' (searched %d nodes, %d facts)",
		query, maxNodes, maxFacts)
}

// FormatContext renders a retrieval result as the human-readable context
// block stored in agent memory. Missing optional fields render empty rather
// than failing.
func FormatContext(result *Result) string {
	if result == nil {
		return NoResultsMessage("", 0, 0)
	}
	if len(result.Nodes) == 0 && len(result.Facts) == 0 {
		return NoResultsMessage(result.Query, result.MaxNodes, result.MaxFacts)
	}

	var b strings.Builder
	b.WriteString("Relevant Entities from Knowledge Graph:\n")
	for _, node := range result.Nodes {
		b.WriteString("Node: ")
		b.WriteString(node.Name)
		b.WriteString("\nSummary: ")
		b.WriteString(node.Summary)
		b.WriteString("\n\n")
	}
	for _, fact := range result.Facts {
		b.WriteString("Fact: ")
		b.WriteString(fact)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
