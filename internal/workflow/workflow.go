package workflow

import (
	"time"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// RunStatus represents the current status of a workflow run.
type RunStatus string

const (
	// RunStatusPending indicates the run is created but not yet started.
	RunStatusPending RunStatus = "pending"

	// RunStatusRunning indicates the run is currently executing.
	RunStatusRunning RunStatus = "running"

	// RunStatusCompleted indicates the run finished successfully.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusFailed indicates the run terminated with an unrecovered failure.
	RunStatusFailed RunStatus = "failed"

	// RunStatusPaused indicates the run is suspended at a wait node.
	RunStatusPaused RunStatus = "paused"

	// RunStatusCancelled indicates the caller's context was cancelled mid-run.
	RunStatusCancelled RunStatus = "cancelled"
)

// String returns the string representation of the run status.
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status represents a terminal state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// RunConfig carries run-level execution settings declared on the graph.
type RunConfig struct {
	// Timeout bounds the whole run. Zero means no run-level timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// RollbackOnFailure is declared graph data carried for consumers that
	// compensate failed runs; the engine itself performs no rollback.
	RollbackOnFailure bool `json:"rollback_on_failure,omitempty" yaml:"rollback_on_failure,omitempty"`
}

// Graph is a static workflow definition: named nodes connected by outcome
// edges, a designated start node, and declared variables with defaults.
// Graphs are validated once at creation time, not per run.
type Graph struct {
	// ID is the unique identifier for this workflow definition.
	ID types.ID `json:"id" yaml:"id"`

	// TenantID scopes the definition to a tenant in the definition store.
	TenantID string `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`

	// Name is a human-readable name for the workflow.
	Name string `json:"name" yaml:"name"`

	// Version is the definition version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Nodes contains all nodes in the workflow, indexed by node ID.
	Nodes map[string]*Node `json:"nodes" yaml:"nodes"`

	// StartNodeID designates the node execution begins at.
	StartNodeID string `json:"start_node_id" yaml:"start_node_id"`

	// Variables declares run variables and their default values. Defaults
	// are overridden by caller-supplied initial variables at run start.
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Config carries run-level execution settings.
	Config RunConfig `json:"config,omitempty" yaml:"config,omitempty"`

	// CreatedAt is the timestamp when the definition was created.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// GetNode retrieves a node by its ID. Returns nil if the node is not found.
func (g *Graph) GetNode(id string) *Node {
	if g.Nodes == nil {
		return nil
	}
	return g.Nodes[id]
}
