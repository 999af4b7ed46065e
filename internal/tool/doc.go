// Package tool provides the capability contract and registry at the core of
// flowgrid.
//
// A capability is a named, schema-validated, policy-governed unit of
// invokable work. The Registry is its catalog: it validates inputs and
// outputs, enforces the contract's execution policy (timeout, retries with
// exponential backoff, trailing-window rate limits, approval gates), and
// audits every invocation.
//
// # Core Concepts
//
// Contract: the definition of a capability — id, input/output shapes, the
// handler implementing it, and the Policy governing its execution. Contracts
// are immutable once registered.
//
// Registry: register, discover, and invoke capabilities. Execute never
// returns a Go error; every failure mode is encoded in the InvocationResult
// envelope so callers branch on data, not on panics or exceptions.
//
// ExecutionContext: who is invoking, on behalf of which tenant, with which
// grants. Passed through unchanged to the handler.
//
// # Usage Example
//
//	registry := tool.NewRegistry()
//
//	err := registry.Register(&tool.Contract{
//	    ID:          "http-fetch",
//	    Name:        "HTTP Fetch",
//	    Description: "Fetches a URL and returns the response body",
//	    InputSchema: schema.NewObjectSchema(map[string]schema.Field{
//	        "url": schema.NewStringField("target URL").WithFormat("uri"),
//	    }, []string{"url"}),
//	    OutputSchema: schema.NewObjectSchema(map[string]schema.Field{
//	        "body": schema.NewStringField("response body"),
//	    }, []string{"body"}),
//	    Policy:  tool.Policy{Timeout: 10 * time.Second, Retryable: true, MaxRetries: 2},
//	    Handler: fetchHandler,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := registry.Execute(ctx, "http-fetch",
//	    map[string]any{"url": "https://example.com"},
//	    tool.ExecutionContext{TenantID: "acme", ActorID: "user-1"},
//	)
//	if !result.Success {
//	    log.Printf("invocation failed: %s", result.Error.Message)
//	}
//
// # Thread Safety
//
// All registry operations are safe for concurrent use. The catalog is
// mutated only by Register/Unregister; concurrent invocations read it
// without contention since contracts are immutable once registered.
package tool
