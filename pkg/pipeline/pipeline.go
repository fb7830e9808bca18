package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/graphiti"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/letta"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/memory"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/registry"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/toolattach"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/tracker"
)

// ContextRetriever runs the knowledge-graph searches. Satisfied by
// *graphiti.Client.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, maxNodes, maxFacts int) (*graphiti.Result, error)
}

// BlockManager maintains labeled memory blocks. Satisfied by *memory.Manager.
type BlockManager interface {
	EnsureBlock(ctx context.Context, agentID, label, newContext string) (*memory.Result, error)
	ReplaceBlock(ctx context.Context, agentID, label, value string) (*memory.Result, error)
}

// AgentSearcher runs registry semantic search. Satisfied by *registry.Client.
type AgentSearcher interface {
	Search(ctx context.Context, query string, limit int, minScore float64) ([]registry.Agent, error)
}

// ToolAttacher calls the tool-attachment service. Satisfied by
// *toolattach.Client.
type ToolAttacher interface {
	Attach(ctx context.Context, query, agentID string, keepTools []string) (*toolattach.Result, error)
}

// ToolResolver resolves the find_tools utility id. Satisfied by
// *letta.Client.
type ToolResolver interface {
	FindToolsID(ctx context.Context, agentID string) string
}

// Notifier schedules sideband new-agent notifications. Satisfied by
// *matrix.Notifier.
type Notifier interface {
	NotifyNewAgent(agentID string)
}

// Deps wires the pipeline's collaborators. Retriever, Blocks, and Tracker
// are required; the rest may be nil to disable the corresponding step.
type Deps struct {
	Retriever ContextRetriever
	Blocks    BlockManager
	Tracker   *tracker.Tracker
	Notifier  Notifier
	Searcher  AgentSearcher
	Attacher  ToolAttacher
	Resolver  ToolResolver

	MaxNodes  int
	MaxFacts  int
	MaxAgents int
	MinScore  float64
}

// Pipeline drives the enrichment steps for one webhook, in order, with
// independent failure domains.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a pipeline from its dependency set.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps:   deps,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// Process runs the five steps for event and assembles the response. It only
// returns an error for internal failures; upstream failures are embedded in
// the response.
func (p *Pipeline) Process(ctx context.Context, event *Event) *Response {
	agentID := event.AgentID()
	query := event.Prompt.Text()

	p.trackAgent(agentID)

	contextText, retrieveErr := p.generateContext(ctx, event, query)
	graphitiOut, blockOK := p.updateContextBlock(ctx, agentID, contextText, retrieveErr)
	discoveryOut := p.discoverAgents(ctx, agentID, query)
	toolOut := p.attachTools(ctx, agentID, query)

	resp := &Response{
		Success:        agentID == "" || blockOK,
		Graphiti:       graphitiOut,
		AgentDiscovery: discoveryOut,
		ToolAttachment: toolOut,
		AgentID:        agentID,
		BlockID:        graphitiOut.BlockID,
		BlockName:      graphitiOut.BlockName,
	}
	resp.Message = summarize(resp)
	return resp
}

// trackAgent records the sighting and schedules a notification the first
// time an agent is seen in this process.
func (p *Pipeline) trackAgent(agentID string) {
	if agentID == "" || !p.deps.Tracker.Observe(agentID) {
		return
	}
	p.logger.Info("New agent observed", "agent_id", agentID)
	if p.deps.Notifier != nil {
		p.deps.Notifier.NotifyNewAgent(agentID)
	}
}

// generateContext retrieves and formats the knowledge-graph context. On
// retrieval failure the error text becomes the context so the failure is
// visible in the agent's memory.
func (p *Pipeline) generateContext(ctx context.Context, event *Event, query string) (string, error) {
	maxNodes := p.deps.MaxNodes
	if event.MaxNodes != nil && *event.MaxNodes > 0 {
		maxNodes = *event.MaxNodes
	}
	maxFacts := p.deps.MaxFacts
	if event.MaxFacts != nil && *event.MaxFacts > 0 {
		maxFacts = *event.MaxFacts
	}

	result, err := p.deps.Retriever.Retrieve(ctx, query, maxNodes, maxFacts)
	if err != nil {
		p.logger.Error("Context retrieval failed", "error", err)
		return fmt.Sprintf("Error retrieving context from knowledge graph: %v", err), err
	}
	return graphiti.FormatContext(result), nil
}

func (p *Pipeline) updateContextBlock(ctx context.Context, agentID, contextText string, retrieveErr error) (*GraphitiOutcome, bool) {
	out := &GraphitiOutcome{}
	if retrieveErr != nil {
		out.Error = retrieveErr.Error()
	}

	if agentID == "" {
		// No agent to own the block; the generated context is still useful
		// to the caller.
		out.Success = retrieveErr == nil
		return out, true
	}

	result, err := p.deps.Blocks.EnsureBlock(ctx, agentID, memory.GraphitiContextLabel, contextText)
	if err != nil {
		p.logger.Error("Context block update failed", "agent_id", agentID, "error", err)
		out.Success = false
		out.Error = err.Error()
		return out, false
	}

	out.Success = retrieveErr == nil
	out.BlockID = result.BlockID
	out.BlockName = result.Label
	out.Updated = result.Updated
	return out, true
}

func (p *Pipeline) discoverAgents(ctx context.Context, agentID, query string) *DiscoveryOutcome {
	out := &DiscoveryOutcome{}
	switch {
	case p.deps.Searcher == nil:
		out.Error = "agent registry not configured"
		return out
	case agentID == "":
		out.Error = "no agent id for available_agents block"
		return out
	}

	agents, err := p.deps.Searcher.Search(ctx, query, p.deps.MaxAgents, p.deps.MinScore)
	if err != nil {
		p.logger.Warn("Agent discovery failed", "error", err)
		out.Error = err.Error()
		return out
	}
	out.Count = len(agents)

	listing := registry.FormatListing(agents, memory.MaxBlockBytes)
	result, err := p.deps.Blocks.ReplaceBlock(ctx, agentID, memory.AvailableAgentsLabel, listing)
	if err != nil {
		p.logger.Warn("Available-agents block update failed", "agent_id", agentID, "error", err)
		out.Error = err.Error()
		return out
	}
	out.Success = true
	out.BlockID = result.BlockID
	return out
}

func (p *Pipeline) attachTools(ctx context.Context, agentID, query string) *ToolOutcome {
	out := &ToolOutcome{Attached: []string{}, Preserved: []string{}}
	switch {
	case p.deps.Attacher == nil:
		out.Error = "tool attachment not configured"
		return out
	case agentID == "":
		out.Error = "no agent id for tool attachment"
		return out
	}

	keepTools := []string{toolattach.KeepAllWildcard, p.findToolsID(ctx, agentID)}
	result, err := p.deps.Attacher.Attach(ctx, query, agentID, keepTools)
	if err != nil {
		p.logger.Warn("Tool attachment failed", "agent_id", agentID, "error", err)
		out.Error = err.Error()
		return out
	}
	out.Success = true
	if result.Attached != nil {
		out.Attached = result.Attached
	}
	if result.Preserved != nil {
		out.Preserved = result.Preserved
	}
	return out
}

func (p *Pipeline) findToolsID(ctx context.Context, agentID string) string {
	if p.deps.Resolver != nil {
		return p.deps.Resolver.FindToolsID(ctx, agentID)
	}
	return letta.FindToolsFallbackID
}

// summarize builds the human-readable outcome line for the response.
func summarize(resp *Response) string {
	var parts []string

	switch {
	case resp.AgentID == "":
		parts = append(parts, "no agent id, context block skipped")
	case resp.Graphiti.Success && resp.Graphiti.Updated:
		parts = append(parts, "context block updated")
	case resp.Graphiti.Success:
		parts = append(parts, "context block up to date")
	default:
		parts = append(parts, "context update failed")
	}

	if resp.AgentDiscovery.Success {
		parts = append(parts, fmt.Sprintf("%d agents discovered", resp.AgentDiscovery.Count))
	}
	if resp.ToolAttachment.Success {
		parts = append(parts, fmt.Sprintf("%d tools attached", len(resp.ToolAttachment.Attached)))
	}
	return strings.Join(parts, "; ")
}
