package transfer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/backend/sqlite"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/repository"
)

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	b := sqlite.New(":memory:")
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { b.Disconnect(context.Background()) })
	return repository.New(b)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t)
	dst := newTestRepo(t)

	p := &domain.Memory{Type: domain.MemoryTypeProblem, Title: "slow build", Content: "ci takes 20 minutes"}
	pID, err := src.StoreMemory(ctx, p)
	require.NoError(t, err)
	s := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "cache deps", Content: "cache go modules between runs"}
	sID, err := src.StoreMemory(ctx, s)
	require.NoError(t, err)
	_, err = src.CreateRelationship(ctx, &domain.Relationship{FromMemoryID: sID, ToMemoryID: pID, Type: domain.RelSolves})
	require.NoError(t, err)

	env, err := Export(ctx, src, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, 2, env.MemoryCount)
	assert.Equal(t, 1, env.RelationshipCount)

	warnings, err := ValidateEnvelope(env)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	result, err := Import(ctx, dst, env, ImportOptions{SkipDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.MemoriesInserted)
	assert.Equal(t, 1, result.RelationshipsInserted)

	got, err := dst.GetMemory(ctx, pID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "slow build", got.Title)
}

func TestImportSkipsRelationshipWithMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	dst := newTestRepo(t)

	env := &Envelope{
		FormatVersion: "2.0",
		Memories:      []MemoryRecord{{ID: "a", Type: "problem", Title: "x", Content: "y", Importance: 0.5, Confidence: 0.8}},
		Relationships: []RelationshipRecord{{FromMemoryID: "a", ToMemoryID: "missing", Type: "SOLVES"}},
	}
	result, err := Import(ctx, dst, env, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MemoriesInserted)
	assert.Equal(t, 1, result.RelationshipsSkipped)
}

func TestValidateEnvelopeRejectsDuplicateIDs(t *testing.T) {
	env := &Envelope{
		FormatVersion: "2.0",
		Memories: []MemoryRecord{
			{ID: "a", Type: "problem", Title: "x", Content: "y"},
			{ID: "a", Type: "solution", Title: "z", Content: "w"},
		},
	}
	_, err := ValidateEnvelope(env)
	assert.Error(t, err)
}

func TestWriteToIsAtomic(t *testing.T) {
	dir := t.TempDir()
	env := &Envelope{FormatVersion: "2.0", Memories: []MemoryRecord{{ID: "a", Type: "task", Title: "t", Content: "c"}}}
	path := filepath.Join(dir, "export.json")
	require.NoError(t, WriteTo(env, dir, path))

	reloaded, err := ReadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 1, len(reloaded.Memories))
}

func TestMigrateDryRunDoesNotImport(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t)
	dst := newTestRepo(t)

	m := &domain.Memory{Type: domain.MemoryTypeTask, Title: "ship it", Content: "release v1"}
	_, err := src.StoreMemory(ctx, m)
	require.NoError(t, err)

	result, err := Migrate(ctx, src, dst, MigrationOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExportedMemories)

	stats, err := dst.Backend().GetMemoryStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMemories)
}

func TestMigrateImportsAndVerifies(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t)
	dst := newTestRepo(t)

	m := &domain.Memory{Type: domain.MemoryTypeTask, Title: "ship it", Content: "release v1"}
	_, err := src.StoreMemory(ctx, m)
	require.NoError(t, err)

	result, err := Migrate(ctx, src, dst, MigrationOptions{Verify: true, RollbackOnFailure: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported.MemoriesInserted)
	assert.False(t, result.RolledBack)
}
