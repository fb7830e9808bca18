package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/letta"
)

// Well-known block labels managed by this service.
const (
	GraphitiContextLabel = "graphiti_context"
	AvailableAgentsLabel = "available_agents"
)

// BlockStore is the slice of the runtime API the manager needs. Satisfied by
// *letta.Client.
type BlockStore interface {
	ListAgentBlocks(ctx context.Context, agentID string) ([]letta.Block, error)
	ListBlocksByLabel(ctx context.Context, label string) ([]letta.Block, error)
	GetBlock(ctx context.Context, blockID string) (*letta.Block, error)
	CreateBlock(ctx context.Context, label, value string, metadata map[string]any) (*letta.Block, error)
	UpdateBlock(ctx context.Context, blockID, value string) error
	AttachBlock(ctx context.Context, agentID, blockID string) error
}

// Result describes the outcome of one block operation.
type Result struct {
	BlockID string
	Label   string
	Created bool
	// Updated is true when an existing block was written. False on create
	// and on the no-op path where the appended value did not change.
	Updated bool
}

// Wrote reports whether any write reached the runtime.
func (r *Result) Wrote() bool {
	return r.Created || r.Updated
}

// Manager locates, creates, updates, and attaches labeled memory blocks.
type Manager struct {
	store  BlockStore
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a block manager backed by store.
func NewManager(store BlockStore) *Manager {
	return &Manager{
		store:  store,
		logger: slog.Default().With("component", "memory"),
		now:    time.Now,
	}
}

// EnsureBlock appends newContext to the agent's block with the given label,
// creating and attaching the block as needed. agentID may be empty, in which
// case the block is located process-wide and never attached.
func (m *Manager) EnsureBlock(ctx context.Context, agentID, label, newContext string) (*Result, error) {
	return m.ensure(ctx, agentID, label, newContext, false)
}

// ReplaceBlock overwrites the block's value instead of appending. Used for
// listings that are rebuilt on every webhook.
func (m *Manager) ReplaceBlock(ctx context.Context, agentID, label, value string) (*Result, error) {
	return m.ensure(ctx, agentID, label, value, true)
}

func (m *Manager) ensure(ctx context.Context, agentID, label, newValue string, replace bool) (*Result, error) {
	block, attached, err := m.locate(ctx, agentID, label)
	if err != nil {
		return nil, fmt.Errorf("locate block %q: %w", label, err)
	}

	if block == nil {
		return m.create(ctx, agentID, label, newValue, replace)
	}

	if !attached && agentID != "" {
		if err := m.store.AttachBlock(ctx, agentID, block.ID); err != nil {
			return nil, fmt.Errorf("attach block %s to %s: %w", block.ID, agentID, err)
		}
		m.logger.Info("Attached existing block", "block_id", block.ID, "label", label, "agent_id", agentID)
	}

	current, err := m.store.GetBlock(ctx, block.ID)
	if err != nil {
		if letta.IsNotFound(err) {
			return m.create(ctx, agentID, label, newValue, replace)
		}
		return nil, fmt.Errorf("fetch block %s: %w", block.ID, err)
	}

	var next string
	if replace {
		next = capValue(newValue)
	} else {
		next = Append(current.Value, newValue, m.now())
	}

	if next == current.Value {
		return &Result{BlockID: block.ID, Label: label}, nil
	}

	if err := m.store.UpdateBlock(ctx, block.ID, next); err != nil {
		if letta.IsNotFound(err) {
			return m.create(ctx, agentID, label, newValue, replace)
		}
		return nil, fmt.Errorf("update block %s: %w", block.ID, err)
	}
	return &Result{BlockID: block.ID, Label: label, Updated: true}, nil
}

// locate finds the canonical block for (agentID, label). Blocks found in the
// agent's own listing are attached by definition; blocks found process-wide
// are not.
func (m *Manager) locate(ctx context.Context, agentID, label string) (*letta.Block, bool, error) {
	if agentID != "" {
		blocks, err := m.store.ListAgentBlocks(ctx, agentID)
		if err != nil && !letta.IsNotFound(err) {
			return nil, false, err
		}
		for i := range blocks {
			if blocks[i].Label == label {
				return &blocks[i], true, nil
			}
		}
	}

	blocks, err := m.store.ListBlocksByLabel(ctx, label)
	if err != nil {
		return nil, false, err
	}
	for i := range blocks {
		if blocks[i].Label == label {
			return &blocks[i], false, nil
		}
	}
	return nil, false, nil
}

func (m *Manager) create(ctx context.Context, agentID, label, value string, replace bool) (*Result, error) {
	if replace {
		value = capValue(value)
	} else {
		value = Append("", value, m.now())
	}

	block, err := m.store.CreateBlock(ctx, label, value, nil)
	if err != nil {
		return nil, fmt.Errorf("create block %q: %w", label, err)
	}
	if agentID != "" {
		if err := m.store.AttachBlock(ctx, agentID, block.ID); err != nil {
			return nil, fmt.Errorf("attach new block %s to %s: %w", block.ID, agentID, err)
		}
	}
	m.logger.Info("Created block", "block_id", block.ID, "label", label, "agent_id", agentID)
	return &Result{BlockID: block.ID, Label: label, Created: true}, nil
}

// capValue enforces the byte cap on replace-mode writes.
func capValue(value string) string {
	if len(value) <= MaxBlockBytes {
		return value
	}
	return value[:MaxBlockBytes]
}
