package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/backend/sqlite"
	"github.com/kgstore/kgstore/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	b := sqlite.New(":memory:")
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { b.Disconnect(context.Background()) })
	return New(b)
}

func TestStoreAndGetMemory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	m := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "Fixed Redis timeout", Content: "Raised timeout to 30s", Tags: []string{"Redis", "Timeout"}}
	id, err := repo.StoreMemory(ctx, m)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetMemory(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, []string{"redis", "timeout"}, got.Tags)
}

func TestCreateRelationshipAndGetRelated(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p := &domain.Memory{Type: domain.MemoryTypeProblem, Title: "Redis timeout in prod", Content: "x"}
	pID, _ := repo.StoreMemory(ctx, p)
	s := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "Raise Redis timeout", Content: "y"}
	sID, _ := repo.StoreMemory(ctx, s)

	_, err := repo.CreateRelationship(ctx, &domain.Relationship{FromMemoryID: sID, ToMemoryID: pID, Type: domain.RelSolves})
	require.NoError(t, err)

	related, err := repo.GetRelatedMemories(ctx, pID, []domain.RelationshipType{domain.RelSolves}, 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, sID, related[0].Relationship.FromMemoryID)
}

func TestGetRelatedMemoriesMultiHop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a := &domain.Memory{Type: domain.MemoryTypeTask, Title: "build the API", Content: "x"}
	aID, _ := repo.StoreMemory(ctx, a)
	b := &domain.Memory{Type: domain.MemoryTypeTask, Title: "write the schema", Content: "y"}
	bID, _ := repo.StoreMemory(ctx, b)
	c := &domain.Memory{Type: domain.MemoryTypeTask, Title: "provision the database", Content: "z"}
	cID, _ := repo.StoreMemory(ctx, c)

	_, err := repo.CreateRelationship(ctx, &domain.Relationship{FromMemoryID: aID, ToMemoryID: bID, Type: domain.RelDependsOn})
	require.NoError(t, err)
	_, err = repo.CreateRelationship(ctx, &domain.Relationship{FromMemoryID: bID, ToMemoryID: cID, Type: domain.RelDependsOn})
	require.NoError(t, err)

	oneHop, err := repo.GetRelatedMemories(ctx, aID, nil, 1)
	require.NoError(t, err)
	assert.Len(t, oneHop, 1)

	twoHop, err := repo.GetRelatedMemories(ctx, aID, nil, 2)
	require.NoError(t, err)
	ids := make([]string, len(twoHop))
	for i, rm := range twoHop {
		ids[i] = rm.Memory.ID
	}
	assert.ElementsMatch(t, []string{bID, cID}, ids)
}

func TestSearchMemoriesLimitBoundary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	zero := 0
	res, err := repo.SearchMemories(ctx, SearchOptions{Limit: &zero})
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	tooBig := 1001
	_, err = repo.SearchMemories(ctx, SearchOptions{Limit: &tooBig})
	require.Error(t, err)
}

func TestEffectiveStrengthNoEvidenceNoAge(t *testing.T) {
	props := domain.RelationshipProperties{Strength: 0.42, EvidenceCount: 1}
	assert.Equal(t, 0.42, EffectiveStrength(props, 0))
}

func TestReinforceIsMonotoneInEvidence(t *testing.T) {
	props := domain.RelationshipProperties{Strength: 0.5, Confidence: 0.8}
	next := Reinforce(props, true)
	assert.Equal(t, 1, next.EvidenceCount)
	assert.GreaterOrEqual(t, next.Strength, reinforceMin)
	assert.LessOrEqual(t, next.Strength, reinforceMax)
}
