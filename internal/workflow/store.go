package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// DefinitionStore is a tenant-scoped catalog of validated workflow
// definitions. Malformed graphs are rejected at creation time, before any
// run can start.
type DefinitionStore interface {
	// Create validates and persists a new definition.
	Create(ctx context.Context, graph *Graph) error

	// Get retrieves a definition by id within the tenant.
	Get(ctx context.Context, tenantID string, id types.ID) (*Graph, error)

	// List returns all definitions for a tenant, ordered by name.
	List(ctx context.Context, tenantID string) ([]*Graph, error)

	// Delete removes a definition.
	Delete(ctx context.Context, tenantID string, id types.ID) error
}

// MemoryDefinitionStore is an in-memory DefinitionStore.
type MemoryDefinitionStore struct {
	mu        sync.RWMutex
	graphs    map[string]*Graph
	validator *GraphValidator
}

// NewMemoryDefinitionStore creates an empty in-memory definition store.
func NewMemoryDefinitionStore() *MemoryDefinitionStore {
	return &MemoryDefinitionStore{
		graphs:    make(map[string]*Graph),
		validator: NewGraphValidator(),
	}
}

func definitionKey(tenantID string, id types.ID) string {
	return tenantID + "|" + id.String()
}

// Create validates the graph and persists it. Creating an existing id within
// the same tenant fails.
func (s *MemoryDefinitionStore) Create(_ context.Context, graph *Graph) error {
	if err := s.validator.Validate(graph); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := definitionKey(graph.TenantID, graph.ID)
	if _, exists := s.graphs[key]; exists {
		return types.NewError(ErrGraphAlreadyExists,
			fmt.Sprintf("workflow %s already exists", graph.ID))
	}
	if graph.CreatedAt.IsZero() {
		graph.CreatedAt = time.Now()
	}
	s.graphs[key] = graph
	return nil
}

// Get retrieves a definition by id within the tenant.
func (s *MemoryDefinitionStore) Get(_ context.Context, tenantID string, id types.ID) (*Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph, exists := s.graphs[definitionKey(tenantID, id)]
	if !exists {
		return nil, types.NewError(ErrGraphNotFound,
			fmt.Sprintf("workflow %s not found", id))
	}
	return graph, nil
}

// List returns the tenant's definitions ordered by name.
func (s *MemoryDefinitionStore) List(_ context.Context, tenantID string) ([]*Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graphs := make([]*Graph, 0)
	for _, graph := range s.graphs {
		if graph.TenantID == tenantID {
			graphs = append(graphs, graph)
		}
	}
	sort.Slice(graphs, func(i, j int) bool {
		return graphs[i].Name < graphs[j].Name
	})
	return graphs, nil
}

// Delete removes a definition. Deleting an unknown id fails.
func (s *MemoryDefinitionStore) Delete(_ context.Context, tenantID string, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := definitionKey(tenantID, id)
	if _, exists := s.graphs[key]; !exists {
		return types.NewError(ErrGraphNotFound,
			fmt.Sprintf("workflow %s not found", id))
	}
	delete(s.graphs, key)
	return nil
}
