// Package sqlite implements the embedded relational backend (C3): a
// file-based SQLite store with a JSON-in-column property model, an optional
// FTS5 full-text index, and an advisory in-memory adjacency index.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/logging"
)

var log = logging.GetLogger("backend.sqlite")

// Backend is the embedded relational backend. A single *sql.DB with
// SetMaxOpenConns(1) gives the single-writer discipline the store assumes;
// mu additionally serializes Go-level access to the database handle, and
// adjMu guards the adjacency index.
type Backend struct {
	path string
	db   *sql.DB
	mu   sync.RWMutex

	ftsEnabled bool

	adjMu sync.RWMutex
	adj   *adjacencyIndex
}

// New constructs an unconnected embedded backend for the given file path.
func New(path string) *Backend {
	return &Backend{path: path}
}

func (b *Backend) Name() string { return "sqlite" }

func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		SupportsFulltextSearch: b.ftsEnabled,
		SupportsTransactions:   true,
		IsCypherCapable:        false,
	}
}

// Connect opens the database file, applies WAL + single-writer pragmas, and
// loads the in-memory adjacency index from the authoritative tables.
func (b *Backend) Connect(ctx context.Context) error {
	if b.path != ":memory:" {
		dir := filepath.Dir(b.path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return domain.Wrap(domain.KindBackendUnavailable, "create database directory", err)
			}
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", b.path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "open sqlite database", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "ping sqlite database", err)
	}
	b.db = db

	if err := b.InitializeSchema(ctx); err != nil {
		return err
	}
	if err := b.rebuildAdjacency(ctx); err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "build adjacency index", err)
	}
	return nil
}

// Disconnect reconciles the adjacency index (a no-op beyond dropping it,
// since all authoritative state already lives in the tables) and closes the
// handle. Idempotent.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.adjMu.Lock()
	b.adj = nil
	b.adjMu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "close sqlite database", err)
	}
	return nil
}

// InitializeSchema creates the nodes/relationships tables and indexes
// idempotently, then attempts the FTS5 virtual table and sync triggers;
// FTS5 failure is logged and non-fatal, matching §4.3's "optionally" wording.
func (b *Backend) InitializeSchema(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wrap(domain.KindSchemaError, "begin schema transaction", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return domain.Wrap(domain.KindSchemaError, "apply schema", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.KindSchemaError, "commit schema transaction", err)
	}

	b.ftsEnabled = true
	for _, stmt := range ftsStatements {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			log.Warn("fts5 unavailable, falling back to LIKE search", "error", err)
			b.ftsEnabled = false
			break
		}
	}
	return nil
}

// HealthCheck reports connectivity and basic statistics.
func (b *Backend) HealthCheck(ctx context.Context) (backend.HealthStatus, error) {
	if b.db == nil {
		return backend.HealthStatus{Connected: false, BackendName: b.Name()}, nil
	}
	if err := b.db.PingContext(ctx); err != nil {
		return backend.HealthStatus{Connected: false, BackendName: b.Name()}, nil
	}
	stats, err := b.GetMemoryStatistics(ctx)
	if err != nil {
		return backend.HealthStatus{Connected: true, BackendName: b.Name()}, nil
	}
	return backend.HealthStatus{
		Connected:   true,
		BackendName: b.Name(),
		Statistics: map[string]interface{}{
			"memory_count":       stats.TotalMemories,
			"relationship_count": stats.TotalRelationships,
		},
	}, nil
}

// ClearAllData removes every node (relationships cascade), for migration
// rollback (§4.6 step 7).
func (b *Backend) ClearAllData(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.db.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "clear all data", err)
	}
	b.adjMu.Lock()
	b.adj = newAdjacencyIndex()
	b.adjMu.Unlock()
	return nil
}

// ExecuteQuery is unsupported for free-form queries on the embedded backend:
// repository methods build SQL directly instead (§4.2).
func (b *Backend) ExecuteQuery(ctx context.Context, q backend.Query) ([]backend.Record, error) {
	return nil, domain.NewError(domain.KindUnsupportedQuery, "embedded backend does not execute free-form queries", nil)
}
