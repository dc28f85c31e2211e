package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/domain"
)

func TestWriteMarkdown(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p := &domain.Memory{Type: domain.MemoryTypeProblem, Title: "slow build", Content: "ci takes 20 minutes", Tags: []string{"ci"}}
	pID, err := repo.StoreMemory(ctx, p)
	require.NoError(t, err)
	s := &domain.Memory{Type: domain.MemoryTypeSolution, Title: "cache deps", Content: "cache modules"}
	sID, err := repo.StoreMemory(ctx, s)
	require.NoError(t, err)
	_, err = repo.CreateRelationship(ctx, &domain.Relationship{FromMemoryID: sID, ToMemoryID: pID, Type: domain.RelSolves})
	require.NoError(t, err)

	env, err := Export(ctx, repo, "sqlite")
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteMarkdown(dir, env))

	data, err := os.ReadFile(filepath.Join(dir, sID+".md"))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "---\n")
	assert.Contains(t, content, "id: "+sID)
	assert.Contains(t, content, "type: solution")
	assert.Contains(t, content, "# cache deps")
	assert.Contains(t, content, "## Relationships")
	assert.Contains(t, content, "SOLVES → slow build")
}
