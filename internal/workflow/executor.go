package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowgrid-ai/flowgrid/internal/mirror"
	"github.com/flowgrid-ai/flowgrid/internal/tool"
	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// defaultMirrorTTL bounds how long mirrored run state stays inspectable.
const defaultMirrorTTL = 24 * time.Hour

// Executor walks a validated workflow graph from its start node, maintaining
// per-node and per-run state and dispatching each node by kind. Tool nodes
// delegate to the injected capability registry; transform nodes run inside
// the sandbox. An executor is safe for concurrent runs.
type Executor struct {
	registry    tool.Registry
	transformer *transformer
	mirror      mirror.Store
	mirrorTTL   time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
	sleep       func(ctx context.Context, d time.Duration) error
}

// ExecutorOption is a functional option for configuring an Executor.
type ExecutorOption func(*Executor)

// WithMirror configures the best-effort run state mirror. Mirror write
// failures are logged, never fatal.
func WithMirror(store mirror.Store) ExecutorOption {
	return func(e *Executor) {
		e.mirror = store
	}
}

// WithMirrorTTL overrides how long mirrored snapshots persist.
func WithMirrorTTL(ttl time.Duration) ExecutorOption {
	return func(e *Executor) {
		if ttl > 0 {
			e.mirrorTTL = ttl
		}
	}
}

// WithSandboxTimeout overrides the wall-clock ceiling for a single transform
// script evaluation.
func WithSandboxTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.transformer.sandbox.timeout = timeout
		}
	}
}

// WithLogger configures structured logging for the executor.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer configures OpenTelemetry tracing for runs and nodes.
func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// NewExecutor creates an executor bound to the given capability registry.
func NewExecutor(registry tool.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:    registry,
		transformer: newTransformer(),
		mirrorTTL:   defaultMirrorTTL,
		logger:      slog.Default(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the graph once against the caller's execution context and
// initial variables. The returned RunState is always non-nil and terminal;
// the error is non-nil exactly when the run did not complete.
func (e *Executor) Run(ctx context.Context, graph *Graph, ec tool.ExecutionContext, initialVariables map[string]any) (*RunState, error) {
	if graph == nil {
		return nil, types.NewError(ErrGraphValidationFailed, "graph is nil")
	}
	if graph.GetNode(graph.StartNodeID) == nil {
		return nil, types.NewError(ErrGraphValidationFailed,
			fmt.Sprintf("start node %s not found in graph", graph.StartNodeID))
	}

	if graph.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, graph.Config.Timeout)
		defer cancel()
	}

	rs := NewRunState(graph, initialVariables)
	ec.RunID = rs.RunID

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "workflow.run",
			trace.WithAttributes(
				attribute.String("workflow.graph_id", graph.ID.String()),
				attribute.String("workflow.run_id", rs.RunID.String()),
			))
		defer span.End()
	}

	e.logger.Info("workflow run started",
		"graph_id", graph.ID,
		"run_id", rs.RunID,
		"graph_name", graph.Name,
	)

	rs.Status = RunStatusRunning
	err := e.executeNode(ctx, graph, rs, graph.StartNodeID, ec)

	switch {
	case err == nil:
		rs.Finalize(RunStatusCompleted)
		e.logger.Info("workflow run completed", "run_id", rs.RunID)
	case errors.Is(err, context.Canceled):
		rs.Finalize(RunStatusCancelled)
		err = types.WrapError(ErrRunCancelled, "workflow run cancelled", err)
		e.logger.Warn("workflow run cancelled", "run_id", rs.RunID)
	default:
		rs.Finalize(RunStatusFailed)
		err = types.WrapError(ErrRunFailed,
			fmt.Sprintf("workflow run %s failed", rs.RunID), err)
		e.logger.Error("workflow run failed", "run_id", rs.RunID, "error", err)
	}

	e.mirrorState(ctx, rs)
	return rs, err
}

// executeNode runs one node and then follows its outgoing edges until no
// next node remains. Failure resolution order: an onFailure edge handles the
// failure, then node-level retries with exponential backoff, then the
// failure propagates and terminates the run.
func (e *Executor) executeNode(ctx context.Context, graph *Graph, rs *RunState, nodeID string, ec tool.ExecutionContext) error {
	for nodeID != "" {
		node := graph.GetNode(nodeID)
		if node == nil {
			return types.NewError(ErrNodeExecutionFailed,
				fmt.Sprintf("node %s not found in graph", nodeID))
		}

		next, err := e.runNodeOnce(ctx, graph, rs, node, ec)
		if err != nil {
			next, err = e.resolveFailure(ctx, graph, rs, node, ec, err)
			if err != nil {
				return err
			}
		}
		nodeID = next
	}
	return nil
}

// runNodeOnce executes a single attempt of a node and returns the id of the
// next node, or empty when the path ends here.
func (e *Executor) runNodeOnce(ctx context.Context, graph *Graph, rs *RunState, node *Node, ec tool.ExecutionContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rs.MarkNodeRunning(node.ID)
	e.mirrorState(ctx, rs)

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "workflow.node",
			trace.WithAttributes(
				attribute.String("workflow.node_id", node.ID),
				attribute.String("workflow.node_kind", string(node.Kind)),
			))
		defer span.End()
	}

	e.logger.Debug("executing node",
		"run_id", rs.RunID,
		"node_id", node.ID,
		"kind", node.Kind,
		"attempt", rs.NodeAttempts(node.ID),
	)

	var (
		result any
		branch *bool
		err    error
	)
	switch node.Kind {
	case NodeKindTool:
		result, err = e.executeTool(ctx, rs, node, ec)
	case NodeKindCondition:
		var outcome bool
		outcome, err = evaluateCondition(node.Condition, rs.resolutionScope())
		result, branch = outcome, &outcome
	case NodeKindParallel:
		result, err = e.executeParallel(ctx, graph, rs, node, ec)
	case NodeKindWait:
		err = e.sleep(ctx, node.Wait.Duration)
	case NodeKindTransform:
		result, err = e.transformer.apply(ctx, node.Transform, rs.snapshotResults(), rs.snapshotVariables())
	default:
		err = types.NewError(ErrNodeExecutionFailed,
			fmt.Sprintf("node %s has unknown kind %q", node.ID, node.Kind))
	}

	if err != nil {
		rs.MarkNodeFailed(node.ID, err)
		e.mirrorState(ctx, rs)
		return "", err
	}

	rs.MarkNodeCompleted(node.ID, result)
	e.mirrorState(ctx, rs)

	if branch != nil {
		if *branch {
			return node.Next.OnConditionTrue, nil
		}
		return node.Next.OnConditionFalse, nil
	}
	return node.Next.OnSuccess, nil
}

// resolveFailure applies the failure resolution order for a node that just
// failed. It returns the next node to continue at (possibly empty) once the
// failure is handled, or the error to propagate.
func (e *Executor) resolveFailure(ctx context.Context, graph *Graph, rs *RunState, node *Node, ec tool.ExecutionContext, cause error) (string, error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return "", cause
	}

	if node.Next.OnFailure != "" {
		e.logger.Warn("node failed, following failure edge",
			"run_id", rs.RunID,
			"node_id", node.ID,
			"failure_node", node.Next.OnFailure,
			"error", cause,
		)
		return node.Next.OnFailure, nil
	}

	if node.Retry != nil && node.Retry.RetryOnFailure {
		for rs.NodeAttempts(node.ID) <= node.Retry.MaxRetries {
			delay := node.Retry.Delay(rs.NodeAttempts(node.ID))
			e.logger.Warn("node failed, retrying",
				"run_id", rs.RunID,
				"node_id", node.ID,
				"attempt", rs.NodeAttempts(node.ID),
				"delay", delay,
				"error", cause,
			)
			if err := e.sleep(ctx, delay); err != nil {
				return "", err
			}
			rs.MarkNodePending(node.ID)

			next, err := e.runNodeOnce(ctx, graph, rs, node, ec)
			if err == nil {
				return next, nil
			}
			cause = err
		}
	}

	return "", types.WrapError(ErrNodeExecutionFailed,
		fmt.Sprintf("node %s failed", node.ID), cause)
}

// executeTool resolves the node's input template and delegates to the
// capability registry. Templates resolve against run variables plus the
// accumulated results under the "results" prefix.
func (e *Executor) executeTool(ctx context.Context, rs *RunState, node *Node, ec tool.ExecutionContext) (any, error) {
	scope := rs.snapshotVariables()
	scope["results"] = rs.snapshotResults()
	scope["variables"] = rs.snapshotVariables()

	input, _ := resolveTemplate(node.Tool.Input, scope).(map[string]any)
	if input == nil {
		input = map[string]any{}
	}

	res := e.registry.Execute(ctx, node.Tool.CapabilityID, input, ec)
	if !res.Success {
		if res.Error != nil {
			return nil, types.NewError(res.Error.Code, res.Error.Message)
		}
		return nil, types.NewError(ErrNodeExecutionFailed,
			fmt.Sprintf("capability %s failed without error detail", node.Tool.CapabilityID))
	}
	return res.Output, nil
}

// executeParallel runs every child node concurrently via recursive calls to
// executeNode, so each child also follows its own outgoing edges. The
// parallel node's result lists child results in declared order regardless of
// completion order. All children run to completion; the first failure in
// declared order becomes the parallel node's error.
func (e *Executor) executeParallel(ctx context.Context, graph *Graph, rs *RunState, node *Node, ec tool.ExecutionContext) (any, error) {
	childIDs := node.Parallel.NodeIDs
	childErrs := make([]error, len(childIDs))

	var wg sync.WaitGroup
	for i, childID := range childIDs {
		wg.Add(1)
		go func(i int, childID string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					childErrs[i] = types.NewError(ErrNodeExecutionFailed,
						fmt.Sprintf("node %s panicked: %v", childID, r))
				}
			}()
			childErrs[i] = e.executeNode(ctx, graph, rs, childID, ec)
		}(i, childID)
	}
	wg.Wait()

	for i, err := range childErrs {
		if err != nil {
			return nil, types.WrapError(ErrNodeExecutionFailed,
				fmt.Sprintf("parallel child %s failed", childIDs[i]), err)
		}
	}

	results := make([]any, len(childIDs))
	for i, childID := range childIDs {
		results[i], _ = rs.Result(childID)
	}
	return results, nil
}

// mirrorState writes the run's current snapshot to the mirror cache.
// Best-effort: failures are logged and swallowed.
func (e *Executor) mirrorState(ctx context.Context, rs *RunState) {
	if e.mirror == nil {
		return
	}

	data, err := rs.Snapshot().Marshal()
	if err != nil {
		e.logger.Warn("run state snapshot failed", "run_id", rs.RunID, "error", err)
		return
	}
	if err := e.mirror.Put(ctx, rs.RunID.String(), data, e.mirrorTTL); err != nil {
		e.logger.Warn("mirror write failed", "run_id", rs.RunID, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
