package workflow

import "time"

// NodeKind defines the kind of workflow node. Each kind carries its own
// config struct; exactly one config must be set, matching the kind.
type NodeKind string

const (
	NodeKindTool      NodeKind = "tool"
	NodeKindCondition NodeKind = "condition"
	NodeKindParallel  NodeKind = "parallel"
	NodeKindWait      NodeKind = "wait"
	NodeKindTransform NodeKind = "transform"
)

// NodeStatus represents the execution status of a workflow node.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// ConditionOperator is the comparison applied by a condition node.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "notEquals"
	OperatorGreaterThan ConditionOperator = "greaterThan"
	OperatorLessThan    ConditionOperator = "lessThan"
	OperatorContains    ConditionOperator = "contains"
	OperatorExists      ConditionOperator = "exists"
)

// TransformOperation is the operation applied by a transform node.
type TransformOperation string

const (
	TransformMap    TransformOperation = "map"
	TransformFilter TransformOperation = "filter"
	TransformReduce TransformOperation = "reduce"
	TransformMerge  TransformOperation = "merge"
)

// ToolConfig configures a tool node: which capability to invoke and the
// input template resolved against run variables at execution time.
type ToolConfig struct {
	CapabilityID string         `json:"capability_id" yaml:"capability_id"`
	Input        map[string]any `json:"input,omitempty" yaml:"input,omitempty"`
}

// ConditionConfig configures a condition node. Field is a dotted path
// resolved against {results, variables}; the operator compares the resolved
// value to Comparand.
type ConditionConfig struct {
	Field     string            `json:"field" yaml:"field"`
	Operator  ConditionOperator `json:"operator" yaml:"operator"`
	Comparand any               `json:"comparand,omitempty" yaml:"comparand,omitempty"`
}

// ParallelConfig configures a parallel node: the node ids executed
// concurrently. The parallel node's result preserves this declared order.
type ParallelConfig struct {
	NodeIDs []string `json:"node_ids" yaml:"node_ids"`
}

// WaitConfig configures a wait node.
type WaitConfig struct {
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// TransformConfig configures a transform node. Script is required for
// map/filter/reduce and runs inside the sandbox; merge takes no script.
type TransformConfig struct {
	Operation TransformOperation `json:"operation" yaml:"operation"`
	Script    string             `json:"script,omitempty" yaml:"script,omitempty"`
}

// RetryPolicy defines node-level retry behavior. Node retries wrap whatever
// retries the invoked capability performs internally, so both layers
// compound deliberately.
type RetryPolicy struct {
	RetryOnFailure bool `json:"retry_on_failure" yaml:"retry_on_failure"`
	MaxRetries     int  `json:"max_retries" yaml:"max_retries"`
}

// Delay returns the backoff before re-running a node whose attempts counter
// has just been incremented to attempts.
func (rp *RetryPolicy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Second << uint(attempts-1)
	if delay > 10*time.Second || delay <= 0 {
		return 10 * time.Second
	}
	return delay
}

// Edges names the outgoing transitions of a node, keyed by outcome.
// Empty values mean no transition: a node with no edge for its outcome ends
// the run.
type Edges struct {
	OnSuccess        string `json:"on_success,omitempty" yaml:"on_success,omitempty"`
	OnFailure        string `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
	OnConditionTrue  string `json:"on_condition_true,omitempty" yaml:"on_condition_true,omitempty"`
	OnConditionFalse string `json:"on_condition_false,omitempty" yaml:"on_condition_false,omitempty"`
}

// Node represents a single step in a workflow graph.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Kind NodeKind `json:"kind" yaml:"kind"`

	Tool      *ToolConfig      `json:"tool,omitempty" yaml:"tool,omitempty"`
	Condition *ConditionConfig `json:"condition,omitempty" yaml:"condition,omitempty"`
	Parallel  *ParallelConfig  `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Wait      *WaitConfig      `json:"wait,omitempty" yaml:"wait,omitempty"`
	Transform *TransformConfig `json:"transform,omitempty" yaml:"transform,omitempty"`

	Retry *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`
	Next  Edges        `json:"next,omitempty" yaml:"next,omitempty"`
}
