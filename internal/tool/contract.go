package tool

import (
	"context"
	"time"

	"github.com/flowgrid-ai/flowgrid/internal/schema"
	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// Handler is the side-effecting implementation behind a capability.
// Handlers are external collaborators: the registry constrains their
// input/output shapes and execution policy, never their implementation.
type Handler func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error)

// HealthFunc reports the health of the collaborator behind a capability.
type HealthFunc func(ctx context.Context) types.HealthStatus

// RateLimit caps invocations of one capability per tenant inside a
// trailing time window.
type RateLimit struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"window"`
}

// Policy governs how the registry executes a capability.
type Policy struct {
	// Timeout bounds a single handler attempt. Zero means no timeout.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Retryable enables the retry loop for retryable-classed failures.
	Retryable bool `json:"retryable"`

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `json:"max_retries"`

	// RateLimit, when set, applies a trailing-window invocation cap
	// keyed by capability and tenant.
	RateLimit *RateLimit `json:"rate_limit,omitempty"`

	// RequiresApproval gates execution on an "approve" grant in the
	// caller's permission set.
	RequiresApproval bool `json:"requires_approval"`
}

// Contract is a named, schema-validated, policy-governed unit of invokable
// work. Contracts are immutable once registered: re-registering the same id
// is an error, not an update.
type Contract struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Category     string        `json:"category,omitempty"`
	Version      string        `json:"version,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	InputSchema  schema.Schema `json:"input_schema"`
	OutputSchema schema.Schema `json:"output_schema"`
	Policy       Policy        `json:"policy"`

	Handler Handler    `json:"-"`
	Health  HealthFunc `json:"-"`
}

// validate checks that the contract carries everything the registry needs.
func (c *Contract) validate() error {
	if c == nil {
		return types.NewError(ErrCapabilityInvalidDefinition, "contract cannot be nil")
	}
	if c.ID == "" {
		return types.NewError(ErrCapabilityInvalidDefinition, "capability id cannot be empty")
	}
	if c.Name == "" {
		return types.NewError(ErrCapabilityInvalidDefinition, "capability name cannot be empty")
	}
	if c.Description == "" {
		return types.NewError(ErrCapabilityInvalidDefinition, "capability description cannot be empty")
	}
	if c.Handler == nil {
		return types.NewError(ErrCapabilityInvalidDefinition, "capability handler cannot be nil")
	}
	if c.InputSchema.IsZero() {
		return types.NewError(ErrCapabilityInvalidDefinition, "capability input schema cannot be empty")
	}
	if c.OutputSchema.IsZero() {
		return types.NewError(ErrCapabilityInvalidDefinition, "capability output schema cannot be empty")
	}
	if rl := c.Policy.RateLimit; rl != nil && (rl.Count <= 0 || rl.Window <= 0) {
		return types.NewError(ErrCapabilityInvalidDefinition, "rate limit requires positive count and window")
	}
	return nil
}

// ApprovePermission is the grant a caller must hold to execute a capability
// whose policy requires approval.
const ApprovePermission = "approve"

// ExecutionContext identifies who is invoking a capability and on whose
// behalf. It is passed through every invocation and never mutated by the
// registry.
type ExecutionContext struct {
	TenantID    string   `json:"tenant_id"`
	ActorID     string   `json:"actor_id"`
	RunID       types.ID `json:"run_id,omitempty"`
	CallerID    string   `json:"caller_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the context carries the named grant.
func (ec ExecutionContext) HasPermission(name string) bool {
	for _, p := range ec.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
