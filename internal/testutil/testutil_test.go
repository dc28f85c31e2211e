package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/domain"
)

func TestNewSQLiteBackend(t *testing.T) {
	b := NewSQLiteBackend(t)

	id, err := b.StoreMemory(context.Background(), &domain.Memory{Type: domain.MemoryTypeTask, Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	status, err := b.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
}

func TestNewFileSQLiteBackend(t *testing.T) {
	b, path := NewFileSQLiteBackend(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	_, err = b.StoreMemory(context.Background(), &domain.Memory{Type: domain.MemoryTypeTask, Title: "t", Content: "c"})
	require.NoError(t, err)
}

func TestTempFile(t *testing.T) {
	content := []byte("test content")
	path := TempFile(t, "test.txt", content)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}
