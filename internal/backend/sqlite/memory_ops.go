package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
)

// StoreMemory upserts a Memory by id (MERGE semantics), per §4.1.
func (b *Backend) StoreMemory(ctx context.Context, m *domain.Memory) (string, error) {
	isNew := m.ID == ""
	m.Prepare(isNew)
	if err := m.Validate(); err != nil {
		return "", err
	}

	props, err := toProperties(m)
	if err != nil {
		return "", domain.Wrap(domain.KindValidation, "serialize memory properties", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return "", domain.Wrap(domain.KindBackendUnavailable, "begin store_memory transaction", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (id, label, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			properties = excluded.properties,
			updated_at = excluded.updated_at
	`, m.ID, memoryLabel, string(props), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return "", domain.Wrap(domain.KindBackendUnavailable, "store memory", err)
	}
	if err := tx.Commit(); err != nil {
		return "", domain.Wrap(domain.KindBackendUnavailable, "commit store_memory transaction", err)
	}
	return m.ID, nil
}

// GetMemory returns the Memory with the given id, or nil if absent.
func (b *Backend) GetMemory(ctx context.Context, id string) (*domain.Memory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.getMemoryLocked(ctx, id)
}

func (b *Backend) getMemoryLocked(ctx context.Context, id string) (*domain.Memory, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, properties, created_at, updated_at FROM nodes WHERE id = ? AND label = ?
	`, id, memoryLabel)

	var gotID, props string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&gotID, &props, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.Wrap(domain.KindBackendUnavailable, "get memory", err)
	}
	return fromProperties(gotID, createdAt, updatedAt, []byte(props))
}

// UpdateMemory updates an existing Memory; returns false when absent.
func (b *Backend) UpdateMemory(ctx context.Context, m *domain.Memory) (bool, error) {
	if m.ID == "" {
		return false, domain.NewError(domain.KindValidation, "id is required for update", nil)
	}
	m.Prepare(false)
	if err := m.Validate(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.getMemoryLocked(ctx, m.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = existing.CreatedAt
	}

	props, err := toProperties(m)
	if err != nil {
		return false, domain.Wrap(domain.KindValidation, "serialize memory properties", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, domain.Wrap(domain.KindBackendUnavailable, "begin update_memory transaction", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE nodes SET properties = ?, updated_at = ? WHERE id = ? AND label = ?
	`, string(props), m.UpdatedAt, m.ID, memoryLabel)
	if err != nil {
		tx.Rollback()
		return false, domain.Wrap(domain.KindBackendUnavailable, "update memory", err)
	}
	if err := tx.Commit(); err != nil {
		return false, domain.Wrap(domain.KindBackendUnavailable, "commit update_memory transaction", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteMemory removes a Memory; relationships with either endpoint equal to
// id cascade via the foreign key, per invariant 3.
func (b *Backend) DeleteMemory(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, domain.Wrap(domain.KindBackendUnavailable, "begin delete_memory transaction", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ? AND label = ?`, id, memoryLabel)
	if err != nil {
		tx.Rollback()
		return false, domain.Wrap(domain.KindBackendUnavailable, "delete memory", err)
	}
	if err := tx.Commit(); err != nil {
		return false, domain.Wrap(domain.KindBackendUnavailable, "commit delete_memory transaction", err)
	}
	n, _ := res.RowsAffected()

	b.adjMu.Lock()
	if b.adj != nil {
		b.adj.removeNode(id)
	}
	b.adjMu.Unlock()

	return n > 0, nil
}

// GetMemoryStatistics computes {total_memories, memories_by_type,
// total_relationships, avg_importance, avg_confidence}.
func (b *Backend) GetMemoryStatistics(ctx context.Context) (backend.Statistics, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := backend.Statistics{MemoriesByType: make(map[domain.MemoryType]int)}

	rows, err := b.db.QueryContext(ctx, `
		SELECT json_extract(properties, '$.type') AS t, COUNT(*),
		       AVG(json_extract(properties, '$.importance')),
		       AVG(json_extract(properties, '$.confidence'))
		FROM nodes WHERE label = ? GROUP BY t
	`, memoryLabel)
	if err != nil {
		return stats, domain.Wrap(domain.KindBackendUnavailable, "get memory statistics", err)
	}
	defer rows.Close()

	var totalImportance, totalConfidence float64
	for rows.Next() {
		var t string
		var count int
		var avgImp, avgConf sql.NullFloat64
		if err := rows.Scan(&t, &count, &avgImp, &avgConf); err != nil {
			return stats, domain.Wrap(domain.KindBackendUnavailable, "scan memory statistics", err)
		}
		stats.MemoriesByType[domain.MemoryType(t)] = count
		stats.TotalMemories += count
		totalImportance += avgImp.Float64 * float64(count)
		totalConfidence += avgConf.Float64 * float64(count)
	}
	if stats.TotalMemories > 0 {
		stats.AvgImportance = totalImportance / float64(stats.TotalMemories)
		stats.AvgConfidence = totalConfidence / float64(stats.TotalMemories)
	}

	row := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`)
	if err := row.Scan(&stats.TotalRelationships); err != nil {
		return stats, domain.Wrap(domain.KindBackendUnavailable, "count relationships", err)
	}
	return stats, nil
}
