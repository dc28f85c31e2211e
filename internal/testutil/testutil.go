// Package testutil provides shared test fixtures for kgstore's package
// test suites: an in-memory embedded backend ready for StoreMemory calls,
// plus the small filesystem helpers every backend/transfer test reaches for.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/backend/sqlite"
)

// NewSQLiteBackend returns a connected, in-memory embedded backend and
// registers its teardown with t.Cleanup.
func NewSQLiteBackend(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.New(":memory:")
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { b.Disconnect(context.Background()) })
	return b
}

// NewFileSQLiteBackend is like NewSQLiteBackend but backs the database with
// a file under t.TempDir, for tests that need to reopen the same database
// (migration, export/import round trips) rather than an ephemeral :memory:.
func NewFileSQLiteBackend(t *testing.T) (*sqlite.Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	b := sqlite.New(path)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { b.Disconnect(context.Background()) })
	return b, path
}

// TempFile writes content to name under a fresh temp directory and returns
// its path.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}
