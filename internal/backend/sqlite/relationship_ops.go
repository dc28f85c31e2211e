package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
)

// CreateRelationship validates both endpoints exist and persists the edge.
// For bidirectional types only one row is stored; the adjacency index is
// populated in both directions (invariant 7).
func (b *Backend) CreateRelationship(ctx context.Context, r *domain.Relationship) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	r.Prepare(true)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := b.getMemoryLocked(ctx, r.FromMemoryID)
	if err != nil {
		return "", err
	}
	if from == nil {
		return "", domain.NewError(domain.KindRelationshipError, "from endpoint does not exist", map[string]interface{}{"id": r.FromMemoryID})
	}
	to, err := b.getMemoryLocked(ctx, r.ToMemoryID)
	if err != nil {
		return "", err
	}
	if to == nil {
		return "", domain.NewError(domain.KindRelationshipError, "to endpoint does not exist", map[string]interface{}{"id": r.ToMemoryID})
	}

	props, err := toRelProperties(r.Properties)
	if err != nil {
		return "", domain.Wrap(domain.KindValidation, "serialize relationship properties", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return "", domain.Wrap(domain.KindBackendUnavailable, "begin create_relationship transaction", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO relationships (id, from_id, to_id, rel_type, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, rel_type) DO UPDATE SET properties = excluded.properties
	`, r.ID, r.FromMemoryID, r.ToMemoryID, string(r.Type), string(props), r.Properties.CreatedAt)
	if err != nil {
		tx.Rollback()
		return "", domain.Wrap(domain.KindBackendUnavailable, "create relationship", err)
	}
	if err := tx.Commit(); err != nil {
		return "", domain.Wrap(domain.KindBackendUnavailable, "commit create_relationship transaction", err)
	}

	b.adjMu.Lock()
	if b.adj != nil {
		b.adj.addEdge(r.FromMemoryID, r.ToMemoryID, r.Type, r.ID)
	}
	b.adjMu.Unlock()

	return r.ID, nil
}

// UpdateRelationshipProperties replaces the property bag field-by-field; the
// single legal mutation of a Relationship (§4.5.4).
func (b *Backend) UpdateRelationshipProperties(ctx context.Context, from, to string, relType domain.RelationshipType, props domain.RelationshipProperties) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := toRelProperties(props)
	if err != nil {
		return false, domain.Wrap(domain.KindValidation, "serialize relationship properties", err)
	}
	res, err := b.db.ExecContext(ctx, `
		UPDATE relationships SET properties = ? WHERE from_id = ? AND to_id = ? AND rel_type = ?
	`, string(raw), from, to, string(relType))
	if err != nil {
		return false, domain.Wrap(domain.KindBackendUnavailable, "update relationship properties", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type relRow struct {
	id        string
	fromID    string
	toID      string
	relType   string
	props     string
	createdAt time.Time
}

func scanRelRow(rows *sql.Rows) (relRow, error) {
	var rr relRow
	err := rows.Scan(&rr.id, &rr.fromID, &rr.toID, &rr.relType, &rr.props, &rr.createdAt)
	return rr, err
}

func (rr relRow) toDomain() (*domain.Relationship, error) {
	props, err := fromRelProperties(rr.createdAt, []byte(rr.props))
	if err != nil {
		return nil, err
	}
	return &domain.Relationship{
		ID:           rr.id,
		FromMemoryID: rr.fromID,
		ToMemoryID:   rr.toID,
		Type:         domain.RelationshipType(rr.relType),
		Properties:   props,
	}, nil
}

// GetRelatedMemories computes the 1-hop neighbourhood of id (maxDepth beyond
// 1 is handled by the traversal kernel, C6; the backend contract only
// guarantees 1-hop), deduplicated by neighbour id, sorted by (strength desc,
// importance desc), capped at 20 (§4.5.4, §8 boundary behaviour).
func (b *Backend) GetRelatedMemories(ctx context.Context, id string, types []domain.RelationshipType, maxDepth int) ([]backend.RelatedMemory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typeFilter := ""
	args := []interface{}{id, id}
	if len(types) > 0 {
		typeFilter = " AND rel_type IN ("
		for i, t := range types {
			if i > 0 {
				typeFilter += ","
			}
			typeFilter += "?"
			args = append(args, string(t))
		}
		typeFilter += ")"
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, rel_type, properties, created_at FROM relationships
		WHERE (from_id = ? OR to_id = ?)`+typeFilter, args...)
	if err != nil {
		return nil, domain.Wrap(domain.KindBackendUnavailable, "get related memories", err)
	}
	defer rows.Close()

	seen := make(map[string]backend.RelatedMemory)
	for rows.Next() {
		rr, err := scanRelRow(rows)
		if err != nil {
			return nil, domain.Wrap(domain.KindBackendUnavailable, "scan relationship row", err)
		}
		rel, err := rr.toDomain()
		if err != nil {
			return nil, domain.Wrap(domain.KindBackendUnavailable, "decode relationship properties", err)
		}

		var neighbourID string
		switch {
		case rel.FromMemoryID == id:
			neighbourID = rel.ToMemoryID
		case rel.ToMemoryID == id:
			neighbourID = rel.FromMemoryID
		default:
			continue
		}
		if _, dup := seen[neighbourID]; dup {
			continue
		}
		neighbour, err := b.getMemoryLocked(ctx, neighbourID)
		if err != nil {
			return nil, err
		}
		if neighbour == nil {
			continue
		}
		seen[neighbourID] = backend.RelatedMemory{Memory: *neighbour, Relationship: *rel}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]backend.RelatedMemory, 0, len(seen))
	for _, rm := range seen {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relationship.Properties.Strength != out[j].Relationship.Properties.Strength {
			return out[i].Relationship.Properties.Strength > out[j].Relationship.Properties.Strength
		}
		return out[i].Memory.Importance > out[j].Memory.Importance
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, nil
}
