package workflow

import (
	"sync"
	"time"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// NodeState tracks the execution state of a single workflow node within one
// run. Transitions are monotonic within an attempt; a retry resets the node
// to pending before it re-enters running.
type NodeState struct {
	// NodeID is the unique identifier for the node
	NodeID string

	// Status is the current execution status of the node
	Status NodeStatus

	// Attempts counts how many times the node has entered running
	Attempts int

	// StartedAt is the timestamp when the latest attempt began
	StartedAt *time.Time

	// CompletedAt is the timestamp when the node reached a terminal status
	CompletedAt *time.Time

	// Result holds the node's output once completed
	Result any

	// Error stores the failure that ended the latest attempt
	Error error
}

// RunError is one entry in the run's ordered error log.
type RunError struct {
	NodeID    string    `json:"node_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RunState is the authoritative state of one workflow run. It is owned
// exclusively by the engine's call stack for the duration of the run and
// mirrored (not owned) by the observability cache.
type RunState struct {
	// GraphID identifies the definition being executed
	GraphID types.ID

	// RunID is the unique identifier for this run
	RunID types.ID

	// Status is the current run status
	Status RunStatus

	// CurrentNodeID is the node most recently dispatched
	CurrentNodeID string

	// NodeStates tracks per-node execution state, indexed by node ID
	NodeStates map[string]*NodeState

	// Variables is the run-scoped variable mapping, seeded from graph
	// defaults and caller-supplied initial variables. Node outputs live in
	// Results, never here.
	Variables map[string]any

	// Results accumulates node outputs, indexed by node ID
	Results map[string]any

	// Errors is the ordered log of node failures
	Errors []RunError

	// StartedAt is the timestamp when the run began
	StartedAt time.Time

	// CompletedAt is the timestamp when the run reached a terminal status
	CompletedAt *time.Time

	// mu guards concurrent access from parallel node branches
	mu sync.RWMutex
}

// NewRunState creates run state for one execution of the graph, with every
// node pending and variables seeded from graph defaults overridden by the
// caller's initial variables.
func NewRunState(graph *Graph, initialVariables map[string]any) *RunState {
	nodeStates := make(map[string]*NodeState, len(graph.Nodes))
	for nodeID := range graph.Nodes {
		nodeStates[nodeID] = &NodeState{
			NodeID: nodeID,
			Status: NodeStatusPending,
		}
	}

	variables := make(map[string]any, len(graph.Variables)+len(initialVariables))
	for name, value := range graph.Variables {
		variables[name] = value
	}
	for name, value := range initialVariables {
		variables[name] = value
	}

	return &RunState{
		GraphID:    graph.ID,
		RunID:      types.NewID(),
		Status:     RunStatusPending,
		NodeStates: nodeStates,
		Variables:  variables,
		Results:    make(map[string]any),
		StartedAt:  time.Now(),
	}
}

// MarkNodeRunning transitions a node to running and increments its attempts
// counter. A node retried after failure passes through pending first.
func (rs *RunState) MarkNodeRunning(nodeID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if ns, exists := rs.NodeStates[nodeID]; exists {
		ns.Status = NodeStatusRunning
		ns.Attempts++
		now := time.Now()
		ns.StartedAt = &now
		ns.Error = nil
	}
	rs.CurrentNodeID = nodeID
}

// MarkNodePending resets a failed node to pending ahead of a retry.
func (rs *RunState) MarkNodePending(nodeID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if ns, exists := rs.NodeStates[nodeID]; exists {
		ns.Status = NodeStatusPending
	}
}

// MarkNodeCompleted transitions a node to completed and stores its output in
// the results mapping.
func (rs *RunState) MarkNodeCompleted(nodeID string, result any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if ns, exists := rs.NodeStates[nodeID]; exists {
		ns.Status = NodeStatusCompleted
		ns.Result = result
		now := time.Now()
		ns.CompletedAt = &now
	}
	rs.Results[nodeID] = result
}

// MarkNodeFailed transitions a node to failed and appends to the run's
// ordered error log.
func (rs *RunState) MarkNodeFailed(nodeID string, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if ns, exists := rs.NodeStates[nodeID]; exists {
		ns.Status = NodeStatusFailed
		ns.Error = err
		now := time.Now()
		ns.CompletedAt = &now
	}
	rs.Errors = append(rs.Errors, RunError{
		NodeID:    nodeID,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// Finalize transitions the run to its terminal status and stamps the
// completion time.
func (rs *RunState) Finalize(status RunStatus) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.Status = status
	now := time.Now()
	rs.CompletedAt = &now
}

// NodeStatusOf returns the current status of a node, or the empty status if
// the node is unknown.
func (rs *RunState) NodeStatusOf(nodeID string) NodeStatus {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if ns, exists := rs.NodeStates[nodeID]; exists {
		return ns.Status
	}
	return ""
}

// NodeAttempts returns the attempts counter of a node.
func (rs *RunState) NodeAttempts(nodeID string) int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if ns, exists := rs.NodeStates[nodeID]; exists {
		return ns.Attempts
	}
	return 0
}

// Result returns the stored output for a node and whether one exists.
func (rs *RunState) Result(nodeID string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	result, ok := rs.Results[nodeID]
	return result, ok
}

// resolutionScope builds the root mapping that dotted-path lookups resolve
// against: results by node id under "results" and run variables under
// "variables".
func (rs *RunState) resolutionScope() map[string]any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	results := make(map[string]any, len(rs.Results))
	for nodeID, result := range rs.Results {
		results[nodeID] = result
	}
	variables := make(map[string]any, len(rs.Variables))
	for name, value := range rs.Variables {
		variables[name] = value
	}

	return map[string]any{
		"results":   results,
		"variables": variables,
	}
}

// snapshotResults returns a copy of the results mapping for transform input.
func (rs *RunState) snapshotResults() map[string]any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	results := make(map[string]any, len(rs.Results))
	for nodeID, result := range rs.Results {
		results[nodeID] = result
	}
	return results
}

// snapshotVariables returns a copy of the run variables for template
// resolution.
func (rs *RunState) snapshotVariables() map[string]any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	variables := make(map[string]any, len(rs.Variables))
	for name, value := range rs.Variables {
		variables[name] = value
	}
	return variables
}
