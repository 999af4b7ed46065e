// Package flowgrid is the public surface of the capability registry and
// workflow execution engine. The implementation lives under internal/;
// this package re-exports the types and constructors embedders need to
// register capabilities, define workflow graphs, and run them.
package flowgrid

import (
	"github.com/flowgrid-ai/flowgrid/internal/mirror"
	"github.com/flowgrid-ai/flowgrid/internal/schema"
	"github.com/flowgrid-ai/flowgrid/internal/tool"
	"github.com/flowgrid-ai/flowgrid/internal/types"
	"github.com/flowgrid-ai/flowgrid/internal/workflow"
)

// Capability contracts and the registry executing them.
type (
	Contract         = tool.Contract
	Handler          = tool.Handler
	HealthFunc       = tool.HealthFunc
	Policy           = tool.Policy
	RateLimit        = tool.RateLimit
	ExecutionContext = tool.ExecutionContext
	Registry         = tool.Registry
	RegistryOption   = tool.RegistryOption
	InvocationResult = tool.InvocationResult
	Invocation       = tool.Invocation
	Descriptor       = tool.Descriptor
	Filter           = tool.Filter
	AuditEntry       = tool.AuditEntry
	AuditSink        = tool.AuditSink
)

// Workflow definitions and the engine walking them.
type (
	Graph           = workflow.Graph
	Node            = workflow.Node
	Edges           = workflow.Edges
	RetryPolicy     = workflow.RetryPolicy
	RunConfig       = workflow.RunConfig
	RunState        = workflow.RunState
	RunSnapshot     = workflow.RunSnapshot
	Executor        = workflow.Executor
	ExecutorOption  = workflow.ExecutorOption
	DefinitionStore = workflow.DefinitionStore
)

// Node model, for building graphs in code rather than YAML.
type (
	NodeKind           = workflow.NodeKind
	NodeStatus         = workflow.NodeStatus
	RunStatus          = workflow.RunStatus
	ConditionOperator  = workflow.ConditionOperator
	TransformOperation = workflow.TransformOperation
	ToolConfig         = workflow.ToolConfig
	ConditionConfig    = workflow.ConditionConfig
	ParallelConfig     = workflow.ParallelConfig
	WaitConfig         = workflow.WaitConfig
	TransformConfig    = workflow.TransformConfig
)

// Node kinds.
const (
	NodeKindTool      = workflow.NodeKindTool
	NodeKindCondition = workflow.NodeKindCondition
	NodeKindParallel  = workflow.NodeKindParallel
	NodeKindWait      = workflow.NodeKindWait
	NodeKindTransform = workflow.NodeKindTransform
)

// Node statuses.
const (
	NodeStatusPending   = workflow.NodeStatusPending
	NodeStatusRunning   = workflow.NodeStatusRunning
	NodeStatusCompleted = workflow.NodeStatusCompleted
	NodeStatusFailed    = workflow.NodeStatusFailed
	NodeStatusSkipped   = workflow.NodeStatusSkipped
)

// Run statuses.
const (
	RunStatusPending   = workflow.RunStatusPending
	RunStatusRunning   = workflow.RunStatusRunning
	RunStatusCompleted = workflow.RunStatusCompleted
	RunStatusFailed    = workflow.RunStatusFailed
	RunStatusPaused    = workflow.RunStatusPaused
	RunStatusCancelled = workflow.RunStatusCancelled
)

// Condition operators.
const (
	OperatorEquals      = workflow.OperatorEquals
	OperatorNotEquals   = workflow.OperatorNotEquals
	OperatorGreaterThan = workflow.OperatorGreaterThan
	OperatorLessThan    = workflow.OperatorLessThan
	OperatorContains    = workflow.OperatorContains
	OperatorExists      = workflow.OperatorExists
)

// Transform operations.
const (
	TransformMap    = workflow.TransformMap
	TransformFilter = workflow.TransformFilter
	TransformReduce = workflow.TransformReduce
	TransformMerge  = workflow.TransformMerge
)

// Input and output shape declarations.
type (
	Schema = schema.Schema
	Field  = schema.Field
)

// FlowError is the error type carried through every operation.
type (
	FlowError = types.FlowError
	ErrorCode = types.ErrorCode
	ID        = types.ID
)

// MirrorStore is the best-effort run state mirror consumed by the engine.
type MirrorStore = mirror.Store

// ApprovePermission is the grant required to execute approval-gated
// capabilities.
const ApprovePermission = tool.ApprovePermission

// NewRegistry creates an empty capability registry.
func NewRegistry(opts ...RegistryOption) *tool.DefaultRegistry {
	return tool.NewRegistry(opts...)
}

// NewExecutor creates a workflow executor bound to the given registry.
func NewExecutor(registry Registry, opts ...ExecutorOption) *Executor {
	return workflow.NewExecutor(registry, opts...)
}

// ParseGraph decodes and validates a YAML workflow definition.
func ParseGraph(data []byte) (*Graph, error) {
	return workflow.ParseGraph(data)
}

// ValidateGraph checks a programmatically built graph for structural errors:
// unknown edge targets, kind/config mismatches, and a missing start node.
// ParseGraph validates automatically; graphs built in code should be
// validated before being stored or run.
func ValidateGraph(g *Graph) error {
	return workflow.NewGraphValidator().Validate(g)
}

// NewMemoryDefinitionStore creates an in-memory workflow definition store.
func NewMemoryDefinitionStore() *workflow.MemoryDefinitionStore {
	return workflow.NewMemoryDefinitionStore()
}

// NewMemoryMirror creates an in-memory run state mirror.
func NewMemoryMirror() *mirror.MemoryStore {
	return mirror.NewMemoryStore()
}

// NewBadgerMirror creates a persistent run state mirror backed by a local
// Badger database at dir.
func NewBadgerMirror(dir string) (*mirror.BadgerStore, error) {
	return mirror.NewBadgerStore(dir)
}

// Executor options.
var (
	WithMirror         = workflow.WithMirror
	WithMirrorTTL      = workflow.WithMirrorTTL
	WithSandboxTimeout = workflow.WithSandboxTimeout
	WithLogger         = workflow.WithLogger
	WithTracer         = workflow.WithTracer
)

// Registry options.
var (
	WithAuditSink      = tool.WithAuditSink
	WithRegistryLogger = tool.WithLogger
	WithRegistryTracer = tool.WithTracer
)

// Schema builders.
var (
	NewObjectSchema = schema.NewObjectSchema
	NewArraySchema  = schema.NewArraySchema
	NewObjectField  = schema.NewObjectField
	NewArrayField   = schema.NewArrayField
	NewStringField  = schema.NewStringField
	NewIntegerField = schema.NewIntegerField
	NewNumberField  = schema.NewNumberField
	NewBooleanField = schema.NewBooleanField
)
