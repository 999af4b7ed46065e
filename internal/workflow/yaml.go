package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// graphDoc is the YAML document shape for a workflow definition. Durations
// are declared as strings ("30s", "5m") and parsed on load.
type graphDoc struct {
	ID        string              `yaml:"id"`
	TenantID  string              `yaml:"tenant_id"`
	Name      string              `yaml:"name"`
	Version   string              `yaml:"version"`
	StartNode string              `yaml:"start_node"`
	Variables map[string]any      `yaml:"variables"`
	Config    runConfigDoc        `yaml:"config"`
	Nodes     map[string]*nodeDoc `yaml:"nodes"`
}

type runConfigDoc struct {
	Timeout           string `yaml:"timeout"`
	RollbackOnFailure bool   `yaml:"rollback_on_failure"`
}

type nodeDoc struct {
	Name      string           `yaml:"name"`
	Kind      NodeKind         `yaml:"kind"`
	Tool      *ToolConfig      `yaml:"tool"`
	Condition *ConditionConfig `yaml:"condition"`
	Parallel  *ParallelConfig  `yaml:"parallel"`
	Wait      *waitDoc         `yaml:"wait"`
	Transform *TransformConfig `yaml:"transform"`
	Retry     *RetryPolicy     `yaml:"retry"`
	Next      Edges            `yaml:"next"`
}

type waitDoc struct {
	Duration string `yaml:"duration"`
}

// ParseGraph decodes and validates a YAML workflow definition. A missing id
// gets a generated one; node ids default to their mapping keys.
func ParseGraph(data []byte) (*Graph, error) {
	var doc graphDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.WrapError(ErrGraphValidationFailed, "workflow definition is not valid YAML", err)
	}

	graph := &Graph{
		TenantID:    doc.TenantID,
		Name:        doc.Name,
		Version:     doc.Version,
		StartNodeID: doc.StartNode,
		Variables:   doc.Variables,
		Nodes:       make(map[string]*Node, len(doc.Nodes)),
		CreatedAt:   time.Now(),
	}

	if doc.ID != "" {
		id, err := types.ParseID(doc.ID)
		if err != nil {
			return nil, types.WrapError(ErrGraphValidationFailed,
				fmt.Sprintf("workflow id %q is not a valid id", doc.ID), err)
		}
		graph.ID = id
	} else {
		graph.ID = types.NewID()
	}

	if doc.Config.Timeout != "" {
		timeout, err := time.ParseDuration(doc.Config.Timeout)
		if err != nil {
			return nil, types.WrapError(ErrGraphValidationFailed,
				fmt.Sprintf("invalid run timeout %q", doc.Config.Timeout), err)
		}
		graph.Config.Timeout = timeout
	}
	graph.Config.RollbackOnFailure = doc.Config.RollbackOnFailure

	for nodeID, nd := range doc.Nodes {
		node := &Node{
			ID:        nodeID,
			Name:      nd.Name,
			Kind:      nd.Kind,
			Tool:      nd.Tool,
			Condition: nd.Condition,
			Parallel:  nd.Parallel,
			Transform: nd.Transform,
			Retry:     nd.Retry,
			Next:      nd.Next,
		}
		if nd.Wait != nil {
			duration, err := time.ParseDuration(nd.Wait.Duration)
			if err != nil {
				return nil, types.WrapError(ErrGraphValidationFailed,
					fmt.Sprintf("node %s has invalid wait duration %q", nodeID, nd.Wait.Duration), err)
			}
			node.Wait = &WaitConfig{Duration: duration}
		}
		graph.Nodes[nodeID] = node
	}

	if err := NewGraphValidator().Validate(graph); err != nil {
		return nil, err
	}
	return graph, nil
}
