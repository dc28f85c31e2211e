package cypher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/domain"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(newMemDriver(), Config{
		DSN:  "bolt://test",
		Pool: PoolConfig{MaxSize: 4, MaxLifetime: time.Minute, AcquireTimeout: time.Second},
	})
	require.NoError(t, b.Connect(context.Background()))
	return b
}

func TestStoreAndGetMemoryRoundTrips(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	m := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "Raise pool size", Content: "bump max sockets to 50"}
	id, err := b.StoreMemory(ctx, m)
	require.NoError(t, err)

	got, err := b.GetMemory(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Raise pool size", got.Title)
	assert.Equal(t, domain.MemoryTypeSolution, got.Type)
}

func TestCreateRelationshipRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	r := &domain.Relationship{FromMemoryID: "a", ToMemoryID: "b", Type: domain.RelationshipType("NOT_A_TYPE")}
	_, err := b.CreateRelationship(ctx, r)
	assert.Error(t, err)
}

func TestGetRelatedMemoriesFollowsEdge(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	p := &domain.Memory{Type: domain.MemoryTypeProblem, Title: "slow query", Content: "x"}
	pID, err := b.StoreMemory(ctx, p)
	require.NoError(t, err)
	s := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "add index", Content: "y"}
	sID, err := b.StoreMemory(ctx, s)
	require.NoError(t, err)

	_, err = b.CreateRelationship(ctx, &domain.Relationship{FromMemoryID: sID, ToMemoryID: pID, Type: domain.RelSolves})
	require.NoError(t, err)

	related, err := b.GetRelatedMemories(ctx, pID, []domain.RelationshipType{domain.RelSolves}, 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, sID, related[0].Relationship.FromMemoryID)
}

func TestInitializeSchemaTreatsUnsupportedFulltextAsNoOp(t *testing.T) {
	b := newTestBackend(t)
	// Connect already ran InitializeSchema; a second call must also succeed
	// even though the fake driver always rejects the full-text DDL.
	assert.NoError(t, b.InitializeSchema(context.Background()))
}

func TestDisconnectIsIdempotent(t *testing.T) {
	b := newTestBackend(t)
	assert.NoError(t, b.Disconnect(context.Background()))
	assert.NoError(t, b.Disconnect(context.Background()))
}
