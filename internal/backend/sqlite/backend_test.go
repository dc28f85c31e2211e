package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(":memory:")
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { b.Disconnect(context.Background()) })
	return b
}

func TestConnectCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	b := New(path)
	require.NoError(t, b.Connect(context.Background()))
	defer b.Disconnect(context.Background())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	b := newTestBackend(t)
	status, err := b.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "sqlite", status.BackendName)
}

func TestStoreGetUpdateDeleteMemory(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	m := &domain.Memory{Type: domain.MemoryTypeTask, Title: "Add retry logic", Content: "Wrap calls in backoff", Tags: []string{"go"}}
	id, err := b.StoreMemory(ctx, m)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := b.GetMemory(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Add retry logic", got.Title)

	got.Title = "Add retry logic with jitter"
	ok, err := b.UpdateMemory(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	reGot, err := b.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Add retry logic with jitter", reGot.Title)

	ok, err = b.DeleteMemory(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	gone, err := b.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestGetMemoryMissingReturnsNil(t *testing.T) {
	b := newTestBackend(t)
	got, err := b.GetMemory(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateRelationshipAndGetRelated(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	problem := &domain.Memory{Type: domain.MemoryTypeProblem, Title: "flaky test", Content: "x"}
	pID, err := b.StoreMemory(ctx, problem)
	require.NoError(t, err)
	solution := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "add wait", Content: "y"}
	sID, err := b.StoreMemory(ctx, solution)
	require.NoError(t, err)

	rel := &domain.Relationship{FromMemoryID: sID, ToMemoryID: pID, Type: domain.RelSolves}
	rel.Prepare(true)
	_, err = b.CreateRelationship(ctx, rel)
	require.NoError(t, err)

	related, err := b.GetRelatedMemories(ctx, sID, nil, 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, pID, related[0].Memory.ID)
	assert.Equal(t, domain.RelSolves, related[0].Relationship.Type)
}

func TestSearchMemoriesByType(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, err := b.StoreMemory(ctx, &domain.Memory{Type: domain.MemoryTypeTask, Title: "task one", Content: "x"})
	require.NoError(t, err)
	_, err = b.StoreMemory(ctx, &domain.Memory{Type: domain.MemoryTypeProblem, Title: "problem one", Content: "y"})
	require.NoError(t, err)

	results, err := b.SearchMemories(ctx, backend.MemoryFilters{MemoryTypes: []domain.MemoryType{domain.MemoryTypeProblem}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.MemoryTypeProblem, results[0].Type)
}

// TestSearchMemoriesByTerm exercises the term-matching path directly: when
// FTS5 built successfully it runs through nodes_fts MATCH (searchQuery),
// otherwise through the LIKE/json_extract fallback — either way "retry"
// should surface the memory whose content contains that exact token.
func TestSearchMemoriesByTerm(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, err := b.StoreMemory(ctx, &domain.Memory{Type: domain.MemoryTypeSolution, Title: "backoff", Content: "retry requests with exponential backoff"})
	require.NoError(t, err)
	_, err = b.StoreMemory(ctx, &domain.Memory{Type: domain.MemoryTypeSolution, Title: "unrelated", Content: "caching static assets"})
	require.NoError(t, err)

	results, err := b.SearchMemories(ctx, backend.MemoryFilters{Terms: []string{"%retry%"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "backoff", results[0].Title)
}

func TestGetMemoryStatistics(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, err := b.StoreMemory(ctx, &domain.Memory{Type: domain.MemoryTypeTask, Title: "a", Content: "x", Importance: 0.8, Confidence: 0.9})
	require.NoError(t, err)

	stats, err := b.GetMemoryStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMemories)
	assert.Equal(t, 1, stats.MemoriesByType[domain.MemoryTypeTask])
}

func TestClearAllData(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, err := b.StoreMemory(ctx, &domain.Memory{Type: domain.MemoryTypeTask, Title: "a", Content: "x"})
	require.NoError(t, err)

	require.NoError(t, b.ClearAllData(ctx))

	stats, err := b.GetMemoryStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMemories)
}
