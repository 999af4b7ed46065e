package workflow

import (
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// RunSnapshot is the flattened, serialization-only projection of a RunState
// written to the mirror cache. It carries no locks, handlers, or live
// references; decoding one yields an inspectable record, never a resumable
// run.
type RunSnapshot struct {
	GraphID       types.ID       `json:"graph_id"`
	RunID         types.ID       `json:"run_id"`
	Status        RunStatus      `json:"status"`
	CurrentNodeID string         `json:"current_node_id,omitempty"`
	Nodes         []NodeSnapshot `json:"nodes"`
	Variables     map[string]any `json:"variables,omitempty"`
	Results       map[string]any `json:"results,omitempty"`
	Errors        []RunError     `json:"errors,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CapturedAt    time.Time      `json:"captured_at"`
}

// NodeSnapshot is the serialization projection of one NodeState. Errors are
// flattened to strings.
type NodeSnapshot struct {
	NodeID      string     `json:"node_id"`
	Status      NodeStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Snapshot captures the run's current state as a flattened snapshot. Node
// entries are ordered by node id so successive snapshots of the same run
// diff cleanly.
func (rs *RunState) Snapshot() *RunSnapshot {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	nodes := make([]NodeSnapshot, 0, len(rs.NodeStates))
	for _, ns := range rs.NodeStates {
		snap := NodeSnapshot{
			NodeID:      ns.NodeID,
			Status:      ns.Status,
			Attempts:    ns.Attempts,
			StartedAt:   ns.StartedAt,
			CompletedAt: ns.CompletedAt,
			Result:      ns.Result,
		}
		if ns.Error != nil {
			snap.Error = ns.Error.Error()
		}
		nodes = append(nodes, snap)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].NodeID < nodes[j].NodeID
	})

	variables := make(map[string]any, len(rs.Variables))
	for name, value := range rs.Variables {
		variables[name] = value
	}
	results := make(map[string]any, len(rs.Results))
	for nodeID, result := range rs.Results {
		results[nodeID] = result
	}
	errors := make([]RunError, len(rs.Errors))
	copy(errors, rs.Errors)

	return &RunSnapshot{
		GraphID:       rs.GraphID,
		RunID:         rs.RunID,
		Status:        rs.Status,
		CurrentNodeID: rs.CurrentNodeID,
		Nodes:         nodes,
		Variables:     variables,
		Results:       results,
		Errors:        errors,
		StartedAt:     rs.StartedAt,
		CompletedAt:   rs.CompletedAt,
		CapturedAt:    time.Now(),
	}
}

// Marshal encodes the snapshot for the mirror cache.
func (s *RunSnapshot) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, types.WrapError(types.VALIDATION_FAILED, "snapshot serialization failed", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a snapshot previously written to the mirror
// cache.
func UnmarshalSnapshot(data []byte) (*RunSnapshot, error) {
	var snap RunSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.WrapError(types.VALIDATION_FAILED, "snapshot deserialization failed", err)
	}
	return &snap, nil
}
