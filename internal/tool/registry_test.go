package tool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid-ai/flowgrid/internal/schema"
	"github.com/flowgrid-ai/flowgrid/internal/types"
)

func testContract(id string) *Contract {
	return &Contract{
		ID:          id,
		Name:        fmt.Sprintf("Test capability %s", id),
		Description: "capability used in registry tests",
		Category:    "testing",
		Version:     "1.0.0",
		Tags:        []string{"test"},
		InputSchema: schema.NewObjectSchema(map[string]schema.Field{
			"x": schema.NewNumberField("input value"),
		}, []string{"x"}),
		OutputSchema: schema.NewObjectSchema(map[string]schema.Field{
			"y": schema.NewNumberField("output value"),
		}, []string{"y"}),
		Handler: func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
			return map[string]any{"y": input["x"]}, nil
		},
	}
}

func testExecContext() ExecutionContext {
	return ExecutionContext{TenantID: "tenant-1", ActorID: "actor-1"}
}

// newTestRegistry returns a registry whose retry backoff does not sleep.
func newTestRegistry(opts ...RegistryOption) *DefaultRegistry {
	r := NewRegistry(opts...)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Contract)
		wantError types.ErrorCode
	}{
		{name: "valid contract"},
		{
			name:      "missing id",
			mutate:    func(c *Contract) { c.ID = "" },
			wantError: ErrCapabilityInvalidDefinition,
		},
		{
			name:      "missing name",
			mutate:    func(c *Contract) { c.Name = "" },
			wantError: ErrCapabilityInvalidDefinition,
		},
		{
			name:      "missing description",
			mutate:    func(c *Contract) { c.Description = "" },
			wantError: ErrCapabilityInvalidDefinition,
		},
		{
			name:      "missing handler",
			mutate:    func(c *Contract) { c.Handler = nil },
			wantError: ErrCapabilityInvalidDefinition,
		},
		{
			name:      "missing input schema",
			mutate:    func(c *Contract) { c.InputSchema = schema.Schema{} },
			wantError: ErrCapabilityInvalidDefinition,
		},
		{
			name:      "missing output schema",
			mutate:    func(c *Contract) { c.OutputSchema = schema.Schema{} },
			wantError: ErrCapabilityInvalidDefinition,
		},
		{
			name:      "invalid rate limit",
			mutate:    func(c *Contract) { c.Policy.RateLimit = &RateLimit{Count: 0, Window: time.Second} },
			wantError: ErrCapabilityInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			contract := testContract("cap-1")
			if tt.mutate != nil {
				tt.mutate(contract)
			}

			err := registry.Register(contract)
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}

			var flowErr *types.FlowError
			require.ErrorAs(t, err, &flowErr)
			assert.Equal(t, tt.wantError, flowErr.Code)
		})
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(testContract("cap-1")))

	err := registry.Register(testContract("cap-1"))

	var flowErr *types.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, ErrCapabilityAlreadyExists, flowErr.Code)

	// The catalog is unchanged after the failed attempt.
	assert.Len(t, registry.List(Filter{}), 1)
	original, getErr := registry.Get("cap-1")
	require.NoError(t, getErr)
	assert.Equal(t, "Test capability cap-1", original.Name)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(testContract("cap-1")))

	assert.NoError(t, registry.Unregister("cap-1"))

	err := registry.Unregister("cap-1")
	var flowErr *types.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, ErrCapabilityNotFound, flowErr.Code)
}

func TestRegistry_ExecuteSuccess(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.Register(testContract("cap-1")))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 5.0}, testExecContext())

	require.True(t, result.Success)
	assert.Equal(t, 5.0, result.Output["y"])
	assert.Equal(t, "cap-1", result.Metadata.CapabilityID)
	assert.Equal(t, 0, result.Metadata.RetryCount)
	assert.False(t, result.Metadata.InvocationID.IsZero())
}

func TestRegistry_ExecuteUnknownCapability(t *testing.T) {
	registry := newTestRegistry()

	result := registry.Execute(context.Background(), "missing", map[string]any{}, testExecContext())

	require.False(t, result.Success)
	assert.Equal(t, ErrCapabilityNotFound, result.Error.Code)
}

func TestRegistry_ExecuteInputValidationFailure(t *testing.T) {
	registry := newTestRegistry()
	var calls int32
	contract := testContract("cap-1")
	contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]any{"y": 1.0}, nil
	}
	require.NoError(t, registry.Register(contract))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": "not a number"}, testExecContext())

	require.False(t, result.Success)
	assert.Equal(t, ErrCapabilityInvalidInput, result.Error.Code)
	// Validation failure means no side effect and no retry.
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, result.Metadata.RetryCount)
}

func TestRegistry_ExecuteOutputValidationFailure(t *testing.T) {
	registry := newTestRegistry()
	contract := testContract("cap-1")
	contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		return map[string]any{"y": "wrong type"}, nil
	}
	require.NoError(t, registry.Register(contract))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())

	require.False(t, result.Success)
	assert.Equal(t, ErrCapabilityInvalidOutput, result.Error.Code)
}

func TestRegistry_RateLimitBoundary(t *testing.T) {
	for _, limit := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			registry := newTestRegistry()
			contract := testContract("cap-1")
			contract.Policy.RateLimit = &RateLimit{Count: limit, Window: time.Minute}
			require.NoError(t, registry.Register(contract))

			ec := testExecContext()
			for i := 0; i < limit; i++ {
				result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, ec)
				require.True(t, result.Success, "invocation %d within the window should succeed", i+1)
			}

			result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, ec)
			require.False(t, result.Success)
			assert.Equal(t, types.RATE_LIMIT_EXCEEDED, result.Error.Code)
		})
	}
}

func TestRegistry_RateLimitIsPerTenant(t *testing.T) {
	registry := newTestRegistry()
	contract := testContract("cap-1")
	contract.Policy.RateLimit = &RateLimit{Count: 1, Window: time.Minute}
	require.NoError(t, registry.Register(contract))

	first := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0},
		ExecutionContext{TenantID: "tenant-a", ActorID: "actor"})
	require.True(t, first.Success)

	// A different tenant has its own window.
	other := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0},
		ExecutionContext{TenantID: "tenant-b", ActorID: "actor"})
	assert.True(t, other.Success)

	blocked := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0},
		ExecutionContext{TenantID: "tenant-a", ActorID: "actor"})
	require.False(t, blocked.Success)
	assert.Equal(t, types.RATE_LIMIT_EXCEEDED, blocked.Error.Code)
}

func TestRegistry_ApprovalGate(t *testing.T) {
	registry := newTestRegistry()
	contract := testContract("cap-1")
	contract.Policy.RequiresApproval = true
	require.NoError(t, registry.Register(contract))

	denied := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())
	require.False(t, denied.Success)
	assert.Equal(t, types.APPROVAL_REQUIRED, denied.Error.Code)

	ec := testExecContext()
	ec.Permissions = []string{ApprovePermission}
	granted := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, ec)
	assert.True(t, granted.Success)
}

func TestRegistry_TimeoutInvariant(t *testing.T) {
	for _, timeout := range []time.Duration{20 * time.Millisecond, 50 * time.Millisecond} {
		t.Run(timeout.String(), func(t *testing.T) {
			registry := newTestRegistry()
			contract := testContract("cap-1")
			contract.Policy.Timeout = timeout
			contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
				<-ctx.Done() // never resolves on its own
				return nil, ctx.Err()
			}
			require.NoError(t, registry.Register(contract))

			start := time.Now()
			result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())
			elapsed := time.Since(start)

			require.False(t, result.Success)
			assert.Equal(t, types.TIMEOUT, result.Error.Code)
			assert.Less(t, elapsed, timeout+100*time.Millisecond)
		})
	}
}

func TestRegistry_RetryCeiling(t *testing.T) {
	const maxRetries = 3

	registry := newTestRegistry()
	var calls int32
	contract := testContract("cap-1")
	contract.Policy.Retryable = true
	contract.Policy.MaxRetries = maxRetries
	contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, types.NewRetryableError(types.TRANSIENT, "network unreachable")
	}
	require.NoError(t, registry.Register(contract))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())

	require.False(t, result.Success)
	// maxRetries=N means exactly N+1 handler calls.
	assert.Equal(t, int32(maxRetries+1), atomic.LoadInt32(&calls))
	assert.Equal(t, maxRetries, result.Metadata.RetryCount)
}

func TestRegistry_RetryThenRecover(t *testing.T) {
	registry := newTestRegistry()
	var calls int32
	contract := testContract("cap-1")
	contract.Policy.Retryable = true
	contract.Policy.MaxRetries = 2
	contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("temporary network glitch")
		}
		return map[string]any{"y": 42.0}, nil
	}
	require.NoError(t, registry.Register(contract))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())

	require.True(t, result.Success)
	assert.Equal(t, 42.0, result.Output["y"])
	assert.Equal(t, 2, result.Metadata.RetryCount)
}

func TestRegistry_NonRetryableErrorStopsImmediately(t *testing.T) {
	registry := newTestRegistry()
	var calls int32
	contract := testContract("cap-1")
	contract.Policy.Retryable = true
	contract.Policy.MaxRetries = 5
	contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("invalid credentials")
	}
	require.NoError(t, registry.Register(contract))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())

	require.False(t, result.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegistry_HandlerPanicBecomesFailure(t *testing.T) {
	registry := newTestRegistry()
	contract := testContract("cap-1")
	contract.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		panic("handler exploded")
	}
	require.NoError(t, registry.Register(contract))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())

	require.False(t, result.Success)
	assert.Equal(t, ErrCapabilityExecutionFailed, result.Error.Code)
	assert.Contains(t, result.Error.Message, "handler panicked")
}

func TestRegistry_BatchExecuteOrderAndIndependence(t *testing.T) {
	registry := newTestRegistry()

	slow := testContract("slow")
	slow.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		time.Sleep(30 * time.Millisecond)
		return map[string]any{"y": 1.0}, nil
	}
	failing := testContract("failing")
	failing.Handler = func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
		return nil, errors.New("boom")
	}
	fast := testContract("fast")

	require.NoError(t, registry.Register(slow))
	require.NoError(t, registry.Register(failing))
	require.NoError(t, registry.Register(fast))

	ec := testExecContext()
	results := registry.BatchExecute(context.Background(), []Invocation{
		{CapabilityID: "slow", Input: map[string]any{"x": 1.0}, Context: ec},
		{CapabilityID: "failing", Input: map[string]any{"x": 1.0}, Context: ec},
		{CapabilityID: "fast", Input: map[string]any{"x": 2.0}, Context: ec},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "slow", results[0].Metadata.CapabilityID)
	assert.Equal(t, "failing", results[1].Metadata.CapabilityID)
	assert.Equal(t, "fast", results[2].Metadata.CapabilityID)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, 2.0, results[2].Output["y"])
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()

	scan := testContract("scan")
	scan.Category = "security"
	scan.Tags = []string{"network"}
	scan.Name = "Port Scanner"

	fetch := testContract("fetch")
	fetch.Category = "http"
	fetch.Description = "fetches remote content over the network"

	require.NoError(t, registry.Register(scan))
	require.NoError(t, registry.Register(fetch))

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{name: "no filter", filter: Filter{}, wantIDs: []string{"fetch", "scan"}},
		{name: "by category", filter: Filter{Category: "security"}, wantIDs: []string{"scan"}},
		{name: "by tag", filter: Filter{Tag: "network"}, wantIDs: []string{"scan"}},
		{name: "by name substring", filter: Filter{Query: "scanner"}, wantIDs: []string{"scan"}},
		{name: "by description substring", filter: Filter{Query: "remote content"}, wantIDs: []string{"fetch"}},
		{name: "no match", filter: Filter{Category: "missing"}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors := registry.List(tt.filter)
			ids := make([]string, 0, len(descriptors))
			for _, d := range descriptors {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestRegistry_AuditTrail(t *testing.T) {
	sink := NewMemoryAuditSink()
	registry := newTestRegistry(WithAuditSink(sink))
	require.NoError(t, registry.Register(testContract("cap-1")))

	ec := testExecContext()
	registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, ec)
	registry.Execute(context.Background(), "cap-1", map[string]any{"x": "bad"}, ec)

	entries := sink.Entries()
	require.Len(t, entries, 2)

	assert.True(t, entries[0].Success)
	assert.Equal(t, "cap-1", entries[0].CapabilityID)
	assert.Equal(t, "actor-1", entries[0].ActorID)
	assert.Equal(t, "tenant-1", entries[0].TenantID)

	assert.False(t, entries[1].Success)
	assert.NotEmpty(t, entries[1].ErrorMessage)
}

type panickingSink struct{}

func (panickingSink) Record(ctx context.Context, entry AuditEntry) error {
	panic("sink unavailable")
}

func TestRegistry_AuditFailureDoesNotAffectResult(t *testing.T) {
	registry := newTestRegistry(WithAuditSink(panickingSink{}))
	require.NoError(t, registry.Register(testContract("cap-1")))

	result := registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, testExecContext())

	assert.True(t, result.Success)
}

func TestRegistry_Metrics(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.Register(testContract("cap-1")))

	ec := testExecContext()
	registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, ec)
	registry.Execute(context.Background(), "cap-1", map[string]any{"x": "bad"}, ec)

	metrics, err := registry.Metrics("cap-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), metrics.TotalCalls)
	assert.Equal(t, int64(1), metrics.SuccessCalls)
	assert.Equal(t, int64(1), metrics.FailedCalls)
	assert.InDelta(t, 0.5, metrics.SuccessRate(), 0.001)

	_, err = registry.Metrics("missing")
	assert.Error(t, err)
}

func TestRegistry_Health(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, types.HealthStateUnhealthy, registry.Health(context.Background()).State)

	healthy := testContract("healthy")
	healthy.Health = func(ctx context.Context) types.HealthStatus {
		return types.Healthy("ok")
	}
	sick := testContract("sick")
	sick.Health = func(ctx context.Context) types.HealthStatus {
		return types.Unhealthy("backend unreachable")
	}

	require.NoError(t, registry.Register(healthy))
	assert.Equal(t, types.HealthStateHealthy, registry.Health(context.Background()).State)

	require.NoError(t, registry.Register(sick))
	assert.Equal(t, types.HealthStateDegraded, registry.Health(context.Background()).State)

	assert.Equal(t, types.HealthStateUnhealthy, registry.CapabilityHealth(context.Background(), "sick").State)
	assert.Equal(t, types.HealthStateUnhealthy, registry.CapabilityHealth(context.Background(), "missing").State)
}

func TestRegistry_ExecutionContextNotMutated(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.Register(testContract("cap-1")))

	ec := ExecutionContext{
		TenantID:    "tenant-1",
		ActorID:     "actor-1",
		RunID:       types.NewID(),
		Permissions: []string{"read"},
	}
	before := ec

	registry.Execute(context.Background(), "cap-1", map[string]any{"x": 1.0}, ec)

	assert.Equal(t, before, ec)
}
