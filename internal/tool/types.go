package tool

import (
	"strings"
	"time"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// InvocationError carries the failure mode of an invocation in a form that
// crosses the registry boundary without throwing.
type InvocationError struct {
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// InvocationMetadata describes one invocation attempt-set. Retries are
// internal to the registry and surface only as RetryCount.
type InvocationMetadata struct {
	CapabilityID string        `json:"capability_id"`
	InvocationID types.ID      `json:"invocation_id"`
	Duration     time.Duration `json:"duration"`
	RetryCount   int           `json:"retry_count"`
	Timestamp    time.Time     `json:"timestamp"`
}

// InvocationResult is the uniform result envelope returned by Execute.
// Every failure mode is encoded here; Execute never returns a Go error.
type InvocationResult struct {
	Success  bool               `json:"success"`
	Output   map[string]any     `json:"output,omitempty"`
	Error    *InvocationError   `json:"error,omitempty"`
	Metadata InvocationMetadata `json:"metadata"`
}

// Invocation is one entry in a BatchExecute request.
type Invocation struct {
	CapabilityID string           `json:"capability_id"`
	Input        map[string]any   `json:"input"`
	Context      ExecutionContext `json:"context"`
}

// Descriptor contains capability metadata for discovery and introspection.
type Descriptor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Version     string   `json:"version,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// NewDescriptor creates a Descriptor from a registered contract.
func NewDescriptor(c *Contract) Descriptor {
	return Descriptor{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Version:     c.Version,
		Tags:        c.Tags,
	}
}

// Filter narrows List results. Zero-valued fields match everything.
type Filter struct {
	// Category matches the contract's category exactly.
	Category string

	// Tag matches contracts carrying the tag.
	Tag string

	// Query is a case-insensitive substring match over name and description.
	Query string
}

// matches reports whether the contract passes every set filter field.
func (f Filter) matches(c *Contract) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Tag != "" && !containsTag(c.Tags, f.Tag) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) {
			return false
		}
	}
	return true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CapabilityMetrics tracks execution statistics for monitoring and
// observability. Metrics are updated by the registry during execution.
type CapabilityMetrics struct {
	TotalCalls     int64         `json:"total_calls"`
	SuccessCalls   int64         `json:"success_calls"`
	FailedCalls    int64         `json:"failed_calls"`
	TotalDuration  time.Duration `json:"total_duration"`
	AvgDuration    time.Duration `json:"avg_duration"`
	LastExecutedAt *time.Time    `json:"last_executed_at,omitempty"`
}

// NewCapabilityMetrics creates a new CapabilityMetrics instance with zero values.
func NewCapabilityMetrics() *CapabilityMetrics {
	return &CapabilityMetrics{}
}

// RecordSuccess records a successful invocation with the given duration.
func (m *CapabilityMetrics) RecordSuccess(duration time.Duration) {
	m.TotalCalls++
	m.SuccessCalls++
	m.TotalDuration += duration
	m.AvgDuration = m.TotalDuration / time.Duration(m.TotalCalls)
	now := time.Now()
	m.LastExecutedAt = &now
}

// RecordFailure records a failed invocation with the given duration.
func (m *CapabilityMetrics) RecordFailure(duration time.Duration) {
	m.TotalCalls++
	m.FailedCalls++
	m.TotalDuration += duration
	m.AvgDuration = m.TotalDuration / time.Duration(m.TotalCalls)
	now := time.Now()
	m.LastExecutedAt = &now
}

// SuccessRate returns the success rate between 0.0 and 1.0.
// Returns 0.0 if no calls have been made.
func (m *CapabilityMetrics) SuccessRate() float64 {
	if m.TotalCalls == 0 {
		return 0.0
	}
	return float64(m.SuccessCalls) / float64(m.TotalCalls)
}

// FailureRate returns the failure rate between 0.0 and 1.0.
// Returns 0.0 if no calls have been made.
func (m *CapabilityMetrics) FailureRate() float64 {
	if m.TotalCalls == 0 {
		return 0.0
	}
	return float64(m.FailedCalls) / float64(m.TotalCalls)
}
