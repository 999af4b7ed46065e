package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// defaultScriptTimeout bounds a single transform expression evaluation.
const defaultScriptTimeout = 1 * time.Second

// scriptContextVar is the environment variable carrying the deadline context
// into the expression VM.
const scriptContextVar = "ctx"

// sandbox evaluates transform expressions against an isolated copy of their
// environment. Expressions cannot reach the filesystem, network, or host
// process; a panicking or overlong evaluation surfaces as a node failure
// without affecting sibling nodes or the engine. Programs are compiled with
// a deadline context so the VM itself halts when the wall-clock ceiling
// fires; there is no per-script memory ceiling beyond the bounded runtime.
type sandbox struct {
	timeout time.Duration
}

func newSandbox() *sandbox {
	return &sandbox{timeout: defaultScriptTimeout}
}

func (s *sandbox) compile(script string, env map[string]any) (*vm.Program, error) {
	program, err := expr.Compile(script,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.WithContext(scriptContextVar),
	)
	if err != nil {
		return nil, types.WrapError(types.SANDBOX_FAULT,
			fmt.Sprintf("script compilation failed: %s", script), err)
	}
	return program, nil
}

// eval runs a compiled program against a deep copy of env so the script
// cannot mutate engine-owned state. The copy carries a context bounded by
// the sandbox timeout and the caller's context; the VM stops evaluating
// once it is done. The goroutine select covers host functions that block
// without checking the context.
func (s *sandbox) eval(ctx context.Context, program *vm.Program, env map[string]any) (any, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	copied, _ := deepCopyValue(env).(map[string]any)
	if copied == nil {
		copied = map[string]any{}
	}
	copied[scriptContextVar] = runCtx

	type evalResult struct {
		output any
		err    error
	}

	done := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- evalResult{err: types.NewError(types.SANDBOX_FAULT,
					fmt.Sprintf("script panicked: %v", r))}
			}
		}()
		output, err := expr.Run(program, copied)
		done <- evalResult{output: output, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			if _, ok := result.err.(*types.FlowError); ok {
				return nil, result.err
			}
			if runCtx.Err() == context.DeadlineExceeded {
				return nil, types.NewError(types.SANDBOX_FAULT,
					fmt.Sprintf("script exceeded evaluation limit of %s", s.timeout))
			}
			return nil, types.WrapError(types.SANDBOX_FAULT, "script evaluation failed", result.err)
		}
		return result.output, nil
	case <-runCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, types.WrapError(types.SANDBOX_FAULT, "script evaluation cancelled", err)
		}
		return nil, types.NewError(types.SANDBOX_FAULT,
			fmt.Sprintf("script exceeded evaluation limit of %s", s.timeout))
	}
}

// deepCopyValue clones maps and slices so scripts observe a private snapshot.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(v))
		for key, val := range v {
			copied[key] = deepCopyValue(val)
		}
		return copied
	case []any:
		copied := make([]any, len(v))
		for i, val := range v {
			copied[i] = deepCopyValue(val)
		}
		return copied
	default:
		return value
	}
}
