package pipeline

// GraphitiOutcome reports the context retrieval and memory-block step.
type GraphitiOutcome struct {
	Success   bool   `json:"success"`
	BlockID   string `json:"block_id,omitempty"`
	BlockName string `json:"block_name,omitempty"`
	Updated   bool   `json:"updated"`
	Error     string `json:"error,omitempty"`
}

// DiscoveryOutcome reports the agent-discovery step.
type DiscoveryOutcome struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	BlockID string `json:"block_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolOutcome reports the tool-attachment step.
type ToolOutcome struct {
	Success   bool     `json:"success"`
	Attached  []string `json:"attached"`
	Preserved []string `json:"preserved"`
	Error     string   `json:"error,omitempty"`
}

// Response is the webhook response body: one subobject per subsystem plus an
// overall verdict.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	Graphiti       *GraphitiOutcome  `json:"graphiti"`
	AgentDiscovery *DiscoveryOutcome `json:"agent_discovery"`
	ToolAttachment *ToolOutcome      `json:"tool_attachment"`

	AgentID   string `json:"agent_id,omitempty"`
	BlockID   string `json:"block_id,omitempty"`
	BlockName string `json:"block_name,omitempty"`
}
