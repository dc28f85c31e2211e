// Package backend defines the common contract every storage backend
// implements (§4.1), plus the canonical query dialect types shared by the
// embedded relational backend and the Cypher-capable adapter (§4.2).
package backend

import (
	"context"
	"time"

	"github.com/kgstore/kgstore/internal/domain"
)

// Record is a single row from execute_query: a mapping of column name to value.
type Record map[string]interface{}

// Query is a parameterized statement in the internal dialect. Write indicates
// whether the caller intends a write transaction.
type Query struct {
	Text       string
	Parameters map[string]interface{}
	Write      bool
}

// HealthStatus is the result of health_check().
type HealthStatus struct {
	Connected  bool
	BackendName string
	Version    string
	Statistics map[string]interface{}
}

// Capabilities describes what a backend supports.
type Capabilities struct {
	SupportsFulltextSearch bool
	SupportsTransactions   bool
	IsCypherCapable        bool
}

// MemoryFilters composes the conjunctive predicates of §4.5.3.
type MemoryFilters struct {
	Query            string
	Terms            []string
	MatchAll         bool // match_mode: false=any (default), true=all
	MemoryTypes      []domain.MemoryType
	Tags             []string
	ProjectPath      string
	MinImportance    *float64
	MinConfidence    *float64
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
	Limit            int
	Offset           int
}

// PaginatedMemories is the result of search_memories_paginated.
type PaginatedMemories struct {
	Results    []domain.Memory
	TotalCount int
	Limit      int
	Offset     int
	HasMore    bool
	NextOffset *int
}

// RelatedMemory pairs a neighbour Memory with the edge that connects it to
// the queried Memory.
type RelatedMemory struct {
	Memory       domain.Memory
	Relationship domain.Relationship
}

// Statistics is the result of get_memory_statistics().
type Statistics struct {
	TotalMemories    int
	MemoriesByType   map[domain.MemoryType]int
	TotalRelationships int
	AvgImportance    float64
	AvgConfidence    float64
}

// Backend is the contract every storage implementation satisfies (§4.1).
// Implementations: the embedded relational backend (internal/backend/sqlite)
// and the Cypher-capable remote adapter (internal/backend/cypher).
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	InitializeSchema(ctx context.Context) error
	HealthCheck(ctx context.Context) (HealthStatus, error)

	// ExecuteQuery runs a query in the backend's native dialect. Backends
	// that cannot execute free-form queries return an UnsupportedQuery error.
	ExecuteQuery(ctx context.Context, q Query) ([]Record, error)

	StoreMemory(ctx context.Context, m *domain.Memory) (string, error)
	GetMemory(ctx context.Context, id string) (*domain.Memory, error)
	UpdateMemory(ctx context.Context, m *domain.Memory) (bool, error)
	DeleteMemory(ctx context.Context, id string) (bool, error)

	CreateRelationship(ctx context.Context, r *domain.Relationship) (string, error)
	GetRelatedMemories(ctx context.Context, id string, types []domain.RelationshipType, maxDepth int) ([]RelatedMemory, error)
	UpdateRelationshipProperties(ctx context.Context, from, to string, relType domain.RelationshipType, props domain.RelationshipProperties) (bool, error)

	SearchMemories(ctx context.Context, f MemoryFilters) ([]domain.Memory, error)
	SearchMemoriesPaginated(ctx context.Context, f MemoryFilters) (PaginatedMemories, error)

	GetMemoryStatistics(ctx context.Context) (Statistics, error)

	// ClearAllData drops every Memory and Relationship; used only by
	// migration rollback (§4.6 step 7). Optional: backends that cannot
	// support it return UnsupportedQuery and the caller falls back to
	// deleting fetched ids individually.
	ClearAllData(ctx context.Context) error

	Capabilities() Capabilities
	Name() string
}
