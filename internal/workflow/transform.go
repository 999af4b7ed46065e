package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// transformer applies a transform node's operation to the run's accumulated
// results. Scripted operations evaluate inside the sandbox; merge needs no
// script and folds every map-shaped result into one object.
type transformer struct {
	sandbox *sandbox
}

func newTransformer() *transformer {
	return &transformer{sandbox: newSandbox()}
}

func (t *transformer) apply(ctx context.Context, cfg *TransformConfig, results map[string]any, variables map[string]any) (any, error) {
	switch cfg.Operation {
	case TransformMap:
		return t.mapResults(ctx, cfg.Script, results, variables)
	case TransformFilter:
		return t.filterResults(ctx, cfg.Script, results, variables)
	case TransformReduce:
		return t.reduceResults(ctx, cfg.Script, results, variables)
	case TransformMerge:
		return mergeResults(results)
	default:
		return nil, types.NewError(types.VALIDATION_FAILED,
			fmt.Sprintf("unknown transform operation %q", cfg.Operation))
	}
}

// orderedResults returns result entries sorted by node id so scripted
// operations iterate deterministically.
func orderedResults(results map[string]any) ([]string, []any) {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]any, len(keys))
	for i, key := range keys {
		items[i] = results[key]
	}
	return keys, items
}

func (t *transformer) mapResults(ctx context.Context, script string, results map[string]any, variables map[string]any) (any, error) {
	keys, items := orderedResults(results)

	env := scriptEnv(variables)
	program, err := t.sandbox.compile(script, env)
	if err != nil {
		return nil, err
	}

	mapped := make([]any, len(items))
	for i, item := range items {
		env["item"] = item
		env["key"] = keys[i]
		env["index"] = i
		output, err := t.sandbox.eval(ctx, program, env)
		if err != nil {
			return nil, err
		}
		mapped[i] = output
	}
	return mapped, nil
}

func (t *transformer) filterResults(ctx context.Context, script string, results map[string]any, variables map[string]any) (any, error) {
	keys, items := orderedResults(results)

	env := scriptEnv(variables)
	program, err := t.sandbox.compile(script, env)
	if err != nil {
		return nil, err
	}

	filtered := make([]any, 0, len(items))
	for i, item := range items {
		env["item"] = item
		env["key"] = keys[i]
		env["index"] = i
		output, err := t.sandbox.eval(ctx, program, env)
		if err != nil {
			return nil, err
		}
		keep, ok := output.(bool)
		if !ok {
			return nil, types.NewError(types.SANDBOX_FAULT,
				fmt.Sprintf("filter script returned %T, want bool", output))
		}
		if keep {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func (t *transformer) reduceResults(ctx context.Context, script string, results map[string]any, variables map[string]any) (any, error) {
	keys, items := orderedResults(results)

	env := scriptEnv(variables)
	program, err := t.sandbox.compile(script, env)
	if err != nil {
		return nil, err
	}

	var acc any
	for i, item := range items {
		env["acc"] = acc
		env["item"] = item
		env["key"] = keys[i]
		env["index"] = i
		acc, err = t.sandbox.eval(ctx, program, env)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// mergeResults folds every map-shaped node result into a single object.
// The merge is shallow: entries apply in node-id order and a later node's
// value replaces an earlier node's value wholesale, nested maps included.
// Non-map results are skipped.
func mergeResults(results map[string]any) (any, error) {
	_, items := orderedResults(results)

	merged := map[string]any{}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for key, value := range entry {
			merged[key] = value
		}
	}
	return merged, nil
}

func scriptEnv(variables map[string]any) map[string]any {
	return map[string]any{
		"variables": variables,
		"item":      nil,
		"key":       "",
		"index":     0,
		"acc":       nil,
	}
}
