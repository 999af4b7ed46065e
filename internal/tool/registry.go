package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowgrid-ai/flowgrid/internal/schema"
	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// Registry manages capability registration, discovery, and invocation.
// It validates inputs and outputs against the contract's schemas, enforces
// execution policy (timeout, retries, rate limit, approval), and audits
// every invocation.
type Registry interface {
	// Register adds a contract to the catalog. Contracts are immutable once
	// registered; registering an existing id fails.
	Register(contract *Contract) error

	// Unregister removes a contract from the catalog by id.
	Unregister(id string) error

	// Get retrieves a contract by id, returning an error if not found.
	Get(id string) (*Contract, error)

	// List returns descriptors for registered capabilities matching the filter,
	// ordered by id.
	List(filter Filter) []Descriptor

	// Execute invokes a capability by id. All failure modes are encoded in
	// the returned InvocationResult; Execute never returns a Go error.
	Execute(ctx context.Context, id string, input map[string]any, ec ExecutionContext) InvocationResult

	// BatchExecute runs each invocation independently and concurrently.
	// Results are returned in input order; one failure does not cancel the rest.
	BatchExecute(ctx context.Context, invocations []Invocation) []InvocationResult

	// Metrics returns execution metrics for a specific capability.
	Metrics(id string) (CapabilityMetrics, error)

	// Health returns the overall health status of the registry.
	Health(ctx context.Context) types.HealthStatus

	// CapabilityHealth returns the health status of a specific capability.
	CapabilityHealth(ctx context.Context, id string) types.HealthStatus
}

const (
	baseBackoff = time.Second
	maxBackoff  = 10 * time.Second
)

// DefaultRegistry implements Registry with thread-safe operations.
// The catalog is mutated only by Register/Unregister; invocations read it
// without holding the write lock since contracts are immutable.
type DefaultRegistry struct {
	mu        sync.RWMutex
	contracts map[string]*Contract
	metrics   map[string]*CapabilityMetrics

	validator schema.Validator
	limiter   *slidingWindow
	audit     AuditSink
	logger    *slog.Logger
	tracer    trace.Tracer

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// RegistryOption is a functional option for configuring DefaultRegistry.
type RegistryOption func(*DefaultRegistry)

// WithAuditSink configures the sink receiving per-invocation audit entries.
func WithAuditSink(sink AuditSink) RegistryOption {
	return func(r *DefaultRegistry) {
		if sink != nil {
			r.audit = sink
		}
	}
}

// WithLogger configures the structured logger used by the registry.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *DefaultRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer configures an OpenTelemetry tracer for invocation spans.
func WithTracer(tracer trace.Tracer) RegistryOption {
	return func(r *DefaultRegistry) {
		r.tracer = tracer
	}
}

// NewRegistry creates a new DefaultRegistry instance.
// Default configuration: nop audit sink, slog.Default() logger, no tracer.
func NewRegistry(opts ...RegistryOption) *DefaultRegistry {
	r := &DefaultRegistry{
		contracts: make(map[string]*Contract),
		metrics:   make(map[string]*CapabilityMetrics),
		validator: schema.NewValidator(),
		limiter:   newSlidingWindow(),
		audit:     NopAuditSink{},
		logger:    slog.Default(),
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.logger = r.logger.With("component", "tool-registry")
	return r
}

// Register adds a contract to the catalog.
// Returns CAPABILITY_INVALID_DEFINITION if the contract is incomplete and
// CAPABILITY_ALREADY_EXISTS if the id is taken. The catalog is unchanged
// after a failed attempt.
func (r *DefaultRegistry) Register(contract *Contract) error {
	if err := contract.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[contract.ID]; exists {
		return types.NewError(ErrCapabilityAlreadyExists, fmt.Sprintf("capability %q already registered", contract.ID))
	}

	r.contracts[contract.ID] = contract
	r.metrics[contract.ID] = NewCapabilityMetrics()

	r.logger.Info("capability registered", "capability_id", contract.ID, "name", contract.Name)
	return nil
}

// Unregister removes a contract from the catalog by id.
// Returns CAPABILITY_NOT_FOUND if the capability doesn't exist.
func (r *DefaultRegistry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[id]; !exists {
		return types.NewError(ErrCapabilityNotFound, fmt.Sprintf("capability %q not found", id))
	}

	delete(r.contracts, id)
	delete(r.metrics, id)
	r.limiter.forget(id + "|")

	r.logger.Info("capability unregistered", "capability_id", id)
	return nil
}

// Get retrieves a contract by id.
// Returns CAPABILITY_NOT_FOUND if the capability doesn't exist.
func (r *DefaultRegistry) Get(id string) (*Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contract, exists := r.contracts[id]
	if !exists {
		return nil, types.NewError(ErrCapabilityNotFound, fmt.Sprintf("capability %q not found", id))
	}
	return contract, nil
}

// List returns descriptors for capabilities matching the filter, ordered by id.
// List is a pure in-memory filter with no side effects.
func (r *DefaultRegistry) List(filter Filter) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.contracts))
	for _, contract := range r.contracts {
		if filter.matches(contract) {
			descriptors = append(descriptors, NewDescriptor(contract))
		}
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].ID < descriptors[j].ID
	})
	return descriptors
}

// Execute invokes a capability by id with the given input.
//
// The invocation pipeline: contract lookup, input validation, rate limit
// check, approval gate, then the attempt loop (handler call raced against
// the policy timeout, output validation, retry with exponential backoff for
// retryable-classed failures). Every outcome is audited.
func (r *DefaultRegistry) Execute(ctx context.Context, id string, input map[string]any, ec ExecutionContext) InvocationResult {
	start := time.Now()
	invocationID := types.NewID()

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, "tool.execute",
			trace.WithAttributes(
				attribute.String("capability.id", id),
				attribute.String("tenant.id", ec.TenantID),
				attribute.String("invocation.id", invocationID.String()),
			),
		)
		defer span.End()
	}

	contract, err := r.Get(id)
	if err != nil {
		return r.finish(ctx, span, nil, ec, failure(id, invocationID, start, 0, ErrCapabilityNotFound, err.Error()))
	}

	if errs := r.validator.Validate(contract.InputSchema, input); len(errs) > 0 {
		msg := fmt.Sprintf("input validation failed: %s", joinValidationErrors(errs))
		return r.finish(ctx, span, contract, ec, failure(id, invocationID, start, 0, ErrCapabilityInvalidInput, msg))
	}

	if rl := contract.Policy.RateLimit; rl != nil {
		key := id + "|" + ec.TenantID
		if !r.limiter.allow(key, rl.Count, rl.Window) {
			msg := fmt.Sprintf("rate limit of %d per %s exceeded", rl.Count, rl.Window)
			return r.finish(ctx, span, contract, ec, failure(id, invocationID, start, 0, types.RATE_LIMIT_EXCEEDED, msg))
		}
	}

	if contract.Policy.RequiresApproval && !ec.HasPermission(ApprovePermission) {
		msg := fmt.Sprintf("capability %q requires the %q permission", id, ApprovePermission)
		return r.finish(ctx, span, contract, ec, failure(id, invocationID, start, 0, types.APPROVAL_REQUIRED, msg))
	}

	output, retries, err := r.attempt(ctx, contract, ec, input)
	if err != nil {
		code := types.CodeOf(err)
		if code == "" {
			code = ErrCapabilityExecutionFailed
		}
		return r.finish(ctx, span, contract, ec, failure(id, invocationID, start, retries, code, err.Error()))
	}

	result := InvocationResult{
		Success: true,
		Output:  output,
		Metadata: InvocationMetadata{
			CapabilityID: id,
			InvocationID: invocationID,
			Duration:     time.Since(start),
			RetryCount:   retries,
			Timestamp:    start,
		},
	}
	return r.finish(ctx, span, contract, ec, result)
}

// attempt runs the retry loop: up to MaxRetries extra attempts when the
// policy is retryable and the failure is classified retryable. It returns
// the validated output and the number of retries consumed.
func (r *DefaultRegistry) attempt(ctx context.Context, contract *Contract, ec ExecutionContext, input map[string]any) (map[string]any, int, error) {
	maxAttempts := 1
	if contract.Policy.Retryable && contract.Policy.MaxRetries > 0 {
		maxAttempts = contract.Policy.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		output, err := r.callHandler(ctx, contract, ec, input)
		if err == nil {
			if errs := r.validator.Validate(contract.OutputSchema, output); len(errs) > 0 {
				err = types.NewError(ErrCapabilityInvalidOutput,
					fmt.Sprintf("output validation failed: %s", joinValidationErrors(errs)))
			} else {
				return output, attempt, nil
			}
		}

		lastErr = err
		if attempt+1 >= maxAttempts || !retryableFailure(err) {
			return nil, attempt, err
		}

		delay := backoffDelay(attempt)
		r.logger.Warn("retrying capability invocation",
			"capability_id", contract.ID,
			"attempt", attempt+1,
			"max_retries", contract.Policy.MaxRetries,
			"delay", delay,
			"error", err,
		)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return nil, attempt, lastErr
		}
	}

	return nil, maxAttempts - 1, lastErr
}

// callHandler races a single handler attempt against the policy timeout.
// A panicking handler is converted to a failure rather than crashing the host.
func (r *DefaultRegistry) callHandler(ctx context.Context, contract *Contract, ec ExecutionContext, input map[string]any) (map[string]any, error) {
	callCtx := ctx
	if contract.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, contract.Policy.Timeout)
		defer cancel()
	}

	type handlerResult struct {
		output map[string]any
		err    error
	}

	done := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- handlerResult{err: types.NewError(ErrCapabilityExecutionFailed,
					fmt.Sprintf("handler panicked: %v", rec))}
			}
		}()
		output, err := contract.Handler(callCtx, ec, input)
		done <- handlerResult{output: output, err: err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-callCtx.Done():
		if contract.Policy.Timeout > 0 && callCtx.Err() == context.DeadlineExceeded {
			return nil, types.NewRetryableError(types.TIMEOUT,
				fmt.Sprintf("handler timed out after %s", contract.Policy.Timeout))
		}
		return nil, types.WrapError(ErrCapabilityExecutionFailed, "invocation cancelled", callCtx.Err())
	}
}

// BatchExecute runs each invocation independently and concurrently.
// Results preserve input order regardless of completion order.
func (r *DefaultRegistry) BatchExecute(ctx context.Context, invocations []Invocation) []InvocationResult {
	results := make([]InvocationResult, len(invocations))

	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func(index int, inv Invocation) {
			defer wg.Done()
			results[index] = r.Execute(ctx, inv.CapabilityID, inv.Input, inv.Context)
		}(i, inv)
	}
	wg.Wait()

	return results
}

// Metrics returns execution metrics for a specific capability.
// Returns CAPABILITY_NOT_FOUND if the capability doesn't exist.
func (r *DefaultRegistry) Metrics(id string) (CapabilityMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics, exists := r.metrics[id]
	if !exists {
		return CapabilityMetrics{}, types.NewError(ErrCapabilityNotFound, fmt.Sprintf("capability %q not found", id))
	}

	// Return a copy to prevent external modification
	return *metrics, nil
}

// Health returns the overall health status of the registry. The registry is
// healthy if all capabilities with health checks are healthy, degraded if
// some are unhealthy, and unhealthy if all of them are or the catalog is empty.
func (r *DefaultRegistry) Health(ctx context.Context) types.HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.contracts) == 0 {
		return types.Unhealthy("no capabilities registered")
	}

	healthy := 0
	unhealthy := 0
	for _, contract := range r.contracts {
		if contract.Health == nil {
			healthy++
			continue
		}
		if contract.Health(ctx).IsHealthy() {
			healthy++
		} else {
			unhealthy++
		}
	}

	total := len(r.contracts)
	switch {
	case unhealthy == 0:
		return types.Healthy(fmt.Sprintf("all %d capabilities healthy", total))
	case healthy == 0:
		return types.Unhealthy(fmt.Sprintf("all %d capabilities unhealthy", total))
	default:
		return types.Degraded(fmt.Sprintf("%d/%d capabilities healthy", healthy, total))
	}
}

// CapabilityHealth returns the health status of a specific capability.
// Capabilities without a health check report healthy.
func (r *DefaultRegistry) CapabilityHealth(ctx context.Context, id string) types.HealthStatus {
	contract, err := r.Get(id)
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("capability %q not found", id))
	}

	if contract.Health == nil {
		return types.Healthy("no health check configured")
	}
	return contract.Health(ctx)
}

// finish records metrics, the invocation span status, and the audit entry,
// then returns the result unchanged. Audit failures are logged, never
// surfaced.
func (r *DefaultRegistry) finish(ctx context.Context, span trace.Span, contract *Contract, ec ExecutionContext, result InvocationResult) InvocationResult {
	r.mu.Lock()
	if metrics, exists := r.metrics[result.Metadata.CapabilityID]; exists {
		if result.Success {
			metrics.RecordSuccess(result.Metadata.Duration)
		} else {
			metrics.RecordFailure(result.Metadata.Duration)
		}
	}
	r.mu.Unlock()

	if span != nil {
		if result.Success {
			span.SetStatus(codes.Ok, "capability executed successfully")
		} else {
			span.SetStatus(codes.Error, result.Error.Message)
		}
		span.SetAttributes(attribute.Int("invocation.retries", result.Metadata.RetryCount))
	}

	r.recordAudit(ctx, ec, result)
	return result
}

// recordAudit writes the audit entry, shielding the caller from sink faults.
func (r *DefaultRegistry) recordAudit(ctx context.Context, ec ExecutionContext, result InvocationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("audit sink panicked", "capability_id", result.Metadata.CapabilityID, "panic", rec)
		}
	}()

	entry := AuditEntry{
		CapabilityID: result.Metadata.CapabilityID,
		ActorID:      ec.ActorID,
		TenantID:     ec.TenantID,
		Success:      result.Success,
		Duration:     result.Metadata.Duration,
		RetryCount:   result.Metadata.RetryCount,
		Timestamp:    result.Metadata.Timestamp,
	}
	if result.Error != nil {
		entry.ErrorMessage = result.Error.Message
	}

	if err := r.audit.Record(ctx, entry); err != nil {
		r.logger.Error("audit record failed", "capability_id", entry.CapabilityID, "error", err)
	}
}

// failure builds a failure-mode InvocationResult.
func failure(id string, invocationID types.ID, start time.Time, retries int, code types.ErrorCode, message string) InvocationResult {
	return InvocationResult{
		Success: false,
		Error:   &InvocationError{Code: code, Message: message},
		Metadata: InvocationMetadata{
			CapabilityID: id,
			InvocationID: invocationID,
			Duration:     time.Since(start),
			RetryCount:   retries,
			Timestamp:    start,
		},
	}
}

// retryableFailure classifies an error as worth retrying: explicit
// retryability on the error, or a network-class message.
func retryableFailure(err error) bool {
	if err == nil {
		return false
	}
	if types.IsRetryable(err) {
		return true
	}
	switch types.CodeOf(err) {
	case types.TIMEOUT, types.TRANSIENT:
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "network")
}

// backoffDelay computes the exponential backoff before retry attempt+1.
func backoffDelay(attempt int) time.Duration {
	delay := baseBackoff << uint(attempt)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}

// sleepContext sleeps for d, returning early if ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func joinValidationErrors(errs []schema.ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
