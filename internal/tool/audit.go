package tool

import (
	"context"
	"sync"
	"time"
)

// AuditEntry records one capability invocation for the audit trail.
type AuditEntry struct {
	CapabilityID string        `json:"capability_id"`
	ActorID      string        `json:"actor_id"`
	TenantID     string        `json:"tenant_id"`
	Success      bool          `json:"success"`
	Duration     time.Duration `json:"duration"`
	RetryCount   int           `json:"retry_count"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// AuditSink receives audit entries. Sinks are append-only and best-effort:
// a sink failure never affects the invocation result it describes.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// NopAuditSink discards all entries.
type NopAuditSink struct{}

// Record implements AuditSink.
func (NopAuditSink) Record(ctx context.Context, entry AuditEntry) error { return nil }

// MemoryAuditSink buffers entries in memory. Useful for tests and
// in-process consumers that periodically drain the trail.
type MemoryAuditSink struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditSink creates an empty MemoryAuditSink.
func NewMemoryAuditSink() *MemoryAuditSink {
	return &MemoryAuditSink{}
}

// Record implements AuditSink.
func (s *MemoryAuditSink) Record(ctx context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries in order.
func (s *MemoryAuditSink) Entries() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
