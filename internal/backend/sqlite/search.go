package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
)

// buildConditions composes the conjunctive predicate clauses of §4.5.3 other
// than the term-matching clause, each column qualified by prefix (empty when
// querying nodes directly, "n." when nodes is joined in as an alias under the
// FTS path). includeTerms additionally appends the LIKE-based term clause
// used by the non-FTS fallback; the FTS path matches terms via nodes_fts
// MATCH instead and passes includeTerms=false.
func buildConditions(f backend.MemoryFilters, prefix string, includeTerms bool) (string, []interface{}) {
	clauses := []string{prefix + "label = ?"}
	args := []interface{}{memoryLabel}

	if includeTerms && len(f.Terms) > 0 {
		var termClauses []string
		for _, term := range f.Terms {
			fieldClause := fmt.Sprintf(`(json_extract(%[1]sproperties,'$.title') LIKE ? OR
				json_extract(%[1]sproperties,'$.content') LIKE ? OR
				json_extract(%[1]sproperties,'$.summary') LIKE ?)`, prefix)
			termClauses = append(termClauses, fieldClause)
			args = append(args, term, term, term)
		}
		joiner := " OR "
		if f.MatchAll {
			joiner = " AND "
		}
		clauses = append(clauses, "("+strings.Join(termClauses, joiner)+")")
	}

	if len(f.MemoryTypes) > 0 {
		placeholders := make([]string, len(f.MemoryTypes))
		for i, t := range f.MemoryTypes {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		clauses = append(clauses, fmt.Sprintf("json_extract(%sproperties,'$.type') IN (%s)", prefix, strings.Join(placeholders, ",")))
	}

	if len(f.Tags) > 0 {
		var tagClauses []string
		for _, tag := range f.Tags {
			tagClauses = append(tagClauses, fmt.Sprintf("json_extract(%sproperties,'$.tags') LIKE ?", prefix))
			args = append(args, "%\""+tag+"\"%")
		}
		clauses = append(clauses, "("+strings.Join(tagClauses, " OR ")+")")
	}

	if f.ProjectPath != "" {
		clauses = append(clauses, fmt.Sprintf("json_extract(%sproperties,'$.context_project_path') = ?", prefix))
		args = append(args, f.ProjectPath)
	}

	if f.MinImportance != nil {
		clauses = append(clauses, fmt.Sprintf("json_extract(%sproperties,'$.importance') >= ?", prefix))
		args = append(args, *f.MinImportance)
	}
	if f.MinConfidence != nil {
		clauses = append(clauses, fmt.Sprintf("json_extract(%sproperties,'$.confidence') >= ?", prefix))
		args = append(args, *f.MinConfidence)
	}
	if f.CreatedAfter != nil {
		clauses = append(clauses, prefix+"created_at >= ?")
		args = append(args, *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		clauses = append(clauses, prefix+"created_at <= ?")
		args = append(args, *f.CreatedBefore)
	}

	return strings.Join(clauses, " AND "), args
}

// buildWhere is buildConditions for the plain-nodes LIKE fallback used when
// the FTS5 index is unavailable (or no terms were given at all).
func buildWhere(f backend.MemoryFilters) (string, []interface{}) {
	return buildConditions(f, "", true)
}

// ftsMatchQuery turns the fuzzy matcher's LIKE templates ("%token%") into an
// FTS5 MATCH query: each template's token becomes a prefix term (quoted as a
// phrase if it contains whitespace), joined with the same any/all semantics
// as the LIKE fallback.
func ftsMatchQuery(terms []string, matchAll bool) string {
	joiner := " OR "
	if matchAll {
		joiner = " AND "
	}
	var clauses []string
	for _, t := range terms {
		token := strings.Trim(t, "%")
		if token == "" {
			continue
		}
		token = strings.ReplaceAll(token, `"`, `""`)
		if strings.ContainsAny(token, " \t") {
			clauses = append(clauses, fmt.Sprintf(`"%s"*`, token))
		} else {
			clauses = append(clauses, token+"*")
		}
	}
	return strings.Join(clauses, joiner)
}

// searchQuery builds the SELECT and COUNT statements (sharing one arg list,
// select-only LIMIT/OFFSET appended by the caller) for f, routing through the
// FTS5 index when it is available and the query actually has terms to match.
func (b *Backend) searchQuery(f backend.MemoryFilters) (selectSQL, countSQL string, args []interface{}) {
	matchQuery := ftsMatchQuery(f.Terms, f.MatchAll)
	if b.ftsEnabled && matchQuery != "" {
		conditions, condArgs := buildConditions(f, "n.", false)
		where := "ft.nodes_fts MATCH ? AND " + conditions
		args = append([]interface{}{matchQuery}, condArgs...)

		selectSQL = fmt.Sprintf(`
			SELECT n.id, n.properties, n.created_at, n.updated_at
			FROM nodes_fts ft JOIN nodes n ON n.rowid = ft.rowid
			WHERE %s
			ORDER BY json_extract(n.properties,'$.importance') DESC, n.created_at DESC
		`, where)
		countSQL = fmt.Sprintf(`
			SELECT COUNT(*) FROM nodes_fts ft JOIN nodes n ON n.rowid = ft.rowid
			WHERE %s
		`, where)
		return selectSQL, countSQL, args
	}

	where, whereArgs := buildWhere(f)
	selectSQL = fmt.Sprintf(`
		SELECT id, properties, created_at, updated_at FROM nodes
		WHERE %s
		ORDER BY json_extract(properties,'$.importance') DESC, created_at DESC
	`, where)
	countSQL = fmt.Sprintf(`SELECT COUNT(*) FROM nodes WHERE %s`, where)
	return selectSQL, countSQL, whereArgs
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SearchMemories returns Memories matching f, ordered importance DESC,
// created_at DESC, per §4.5.3.
func (b *Backend) SearchMemories(ctx context.Context, f backend.MemoryFilters) ([]domain.Memory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.searchMemoriesLocked(ctx, f)
}

func (b *Backend) searchMemoriesLocked(ctx context.Context, f backend.MemoryFilters) ([]domain.Memory, error) {
	limit, offset := normalizeLimitOffset(f.Limit, f.Offset)
	selectSQL, _, args := b.searchQuery(f)
	q := selectSQL + " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := b.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Wrap(domain.KindBackendUnavailable, "search memories", err)
	}
	defer rows.Close()

	var out []domain.Memory
	for rows.Next() {
		var id, props string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &props, &createdAt, &updatedAt); err != nil {
			return nil, domain.Wrap(domain.KindBackendUnavailable, "scan memory row", err)
		}
		m, err := fromProperties(id, createdAt, updatedAt, []byte(props))
		if err != nil {
			return nil, domain.Wrap(domain.KindBackendUnavailable, "decode memory properties", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// SearchMemoriesPaginated additionally issues a COUNT(*) under the same
// WHERE (and, when the FTS5 path is taken, the same MATCH) and derives
// has_more/next_offset, per §4.5.3.
func (b *Backend) SearchMemoriesPaginated(ctx context.Context, f backend.MemoryFilters) (backend.PaginatedMemories, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit, offset := normalizeLimitOffset(f.Limit, f.Offset)
	_, countSQL, args := b.searchQuery(f)

	var total int
	if err := b.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return backend.PaginatedMemories{}, domain.Wrap(domain.KindBackendUnavailable, "count search results", err)
	}

	f2 := f
	f2.Limit = limit
	f2.Offset = offset
	results, err := b.searchMemoriesLocked(ctx, f2)
	if err != nil {
		return backend.PaginatedMemories{}, err
	}

	hasMore := offset+limit < total
	var nextOffset *int
	if hasMore {
		n := offset + limit
		nextOffset = &n
	}
	return backend.PaginatedMemories{
		Results:    results,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    hasMore,
		NextOffset: nextOffset,
	}, nil
}
