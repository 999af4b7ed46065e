package workflow

import (
	"fmt"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// GraphValidator checks a workflow definition before it can be persisted or
// run. Validation happens once, at definition time: malformed graphs never
// reach execution.
type GraphValidator struct{}

// NewGraphValidator creates a new GraphValidator instance.
func NewGraphValidator() *GraphValidator {
	return &GraphValidator{}
}

// Validate runs all validation checks and returns the first error found.
// It checks that the graph is non-empty, the start node exists, every node
// carries an id, name, kind, and the config matching its kind, and every
// outcome edge and parallel child references a node in the same graph.
func (v *GraphValidator) Validate(g *Graph) error {
	if g == nil {
		return types.NewError(ErrGraphValidationFailed, "graph cannot be nil")
	}

	if len(g.Nodes) == 0 {
		return types.NewError(ErrGraphValidationFailed, "graph must contain at least one node")
	}

	if g.StartNodeID == "" {
		return types.NewError(ErrGraphValidationFailed, "graph must declare a start node")
	}
	if _, exists := g.Nodes[g.StartNodeID]; !exists {
		return types.NewError(ErrGraphValidationFailed,
			fmt.Sprintf("start node %q does not exist in graph", g.StartNodeID))
	}

	for nodeID, node := range g.Nodes {
		if err := v.validateNode(g, nodeID, node); err != nil {
			return err
		}
	}

	return nil
}

func (v *GraphValidator) validateNode(g *Graph, nodeID string, node *Node) error {
	if node == nil {
		return types.NewError(ErrGraphValidationFailed, fmt.Sprintf("node %q is nil", nodeID))
	}
	if node.ID == "" {
		return types.NewError(ErrGraphValidationFailed, fmt.Sprintf("node %q has no id", nodeID))
	}
	if node.ID != nodeID {
		return types.NewError(ErrGraphValidationFailed,
			fmt.Sprintf("node %q is indexed under mismatching key %q", node.ID, nodeID))
	}
	if node.Name == "" {
		return types.NewError(ErrGraphValidationFailed, fmt.Sprintf("node %q has no name", nodeID))
	}

	if err := v.validateKind(g, node); err != nil {
		return err
	}

	if node.Retry != nil && node.Retry.MaxRetries < 0 {
		return types.NewError(ErrGraphValidationFailed,
			fmt.Sprintf("node %q has negative max retries", nodeID))
	}

	return v.validateEdges(g, node)
}

func (v *GraphValidator) validateKind(g *Graph, node *Node) error {
	switch node.Kind {
	case NodeKindTool:
		if node.Tool == nil || node.Tool.CapabilityID == "" {
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("tool node %q must name a capability", node.ID))
		}
	case NodeKindCondition:
		if node.Condition == nil || node.Condition.Field == "" {
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("condition node %q must declare a field", node.ID))
		}
		switch node.Condition.Operator {
		case OperatorEquals, OperatorNotEquals, OperatorGreaterThan,
			OperatorLessThan, OperatorContains, OperatorExists:
		default:
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("condition node %q has unknown operator %q", node.ID, node.Condition.Operator))
		}
	case NodeKindParallel:
		if node.Parallel == nil || len(node.Parallel.NodeIDs) == 0 {
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("parallel node %q must list at least one child node", node.ID))
		}
		for _, childID := range node.Parallel.NodeIDs {
			if _, exists := g.Nodes[childID]; !exists {
				return types.NewError(ErrGraphValidationFailed,
					fmt.Sprintf("parallel node %q references non-existent node %q", node.ID, childID))
			}
			if childID == node.ID {
				return types.NewError(ErrGraphValidationFailed,
					fmt.Sprintf("parallel node %q cannot list itself", node.ID))
			}
		}
	case NodeKindWait:
		if node.Wait == nil || node.Wait.Duration <= 0 {
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("wait node %q must declare a positive duration", node.ID))
		}
	case NodeKindTransform:
		if node.Transform == nil {
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("transform node %q must declare an operation", node.ID))
		}
		switch node.Transform.Operation {
		case TransformMap, TransformFilter, TransformReduce:
			if node.Transform.Script == "" {
				return types.NewError(ErrGraphValidationFailed,
					fmt.Sprintf("transform node %q requires a script for operation %q",
						node.ID, node.Transform.Operation))
			}
		case TransformMerge:
			// merge takes no script
		default:
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("transform node %q has unknown operation %q", node.ID, node.Transform.Operation))
		}
	default:
		return types.NewError(ErrGraphValidationFailed,
			fmt.Sprintf("node %q has unknown kind %q", node.ID, node.Kind))
	}

	return nil
}

func (v *GraphValidator) validateEdges(g *Graph, node *Node) error {
	edges := map[string]string{
		"on_success":         node.Next.OnSuccess,
		"on_failure":         node.Next.OnFailure,
		"on_condition_true":  node.Next.OnConditionTrue,
		"on_condition_false": node.Next.OnConditionFalse,
	}

	for edgeName, target := range edges {
		if target == "" {
			continue
		}
		if _, exists := g.Nodes[target]; !exists {
			return types.NewError(ErrGraphValidationFailed,
				fmt.Sprintf("node %q edge %s references non-existent node %q", node.ID, edgeName, target))
		}
	}

	return nil
}
