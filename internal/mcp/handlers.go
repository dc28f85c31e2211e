package mcp

import (
	"context"
	"sort"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/fuzzy"
	"github.com/kgstore/kgstore/internal/logging"
	"github.com/kgstore/kgstore/internal/repository"
)

var log = logging.GetLogger("mcp")

// handlerFunc is the single dispatch table's entry shape (§4.7): coerce
// arguments, call the repository, return a JSON-serializable result.
type handlerFunc func(ctx context.Context, repo *repository.Repository, args map[string]interface{}) (interface{}, error)

// handlerTable builds the name → handler map for every tool in every
// registry; profile filtering happens separately in tools.go so that the
// advanced/migration groups can exist without being reachable yet.
func handlerTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		"recall_memories":                  handleRecallMemories,
		"store_memory":                     handleStoreMemory,
		"get_memory":                       handleGetMemory,
		"search_memories":                  handleSearchMemories,
		"update_memory":                    handleUpdateMemory,
		"delete_memory":                    handleDeleteMemory,
		"create_relationship":              handleCreateRelationship,
		"get_related_memories":             handleGetRelatedMemories,
		"get_recent_activity":              handleGetRecentActivity,
		"get_memory_statistics":            handleGetMemoryStatistics,
		"search_relationships_by_context":  handleSearchRelationshipsByContext,
	}
}

func handleRecallMemories(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a recallMemoriesArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	project := resolveProject(a.Project)
	result, err := repo.SearchMemories(ctx, repository.SearchOptions{
		Query:       a.Query,
		ProjectPath: project,
		Limit:       a.Limit,
		Mode:        fuzzy.ModeFuzzy,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func handleStoreMemory(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a storeMemoryArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	m := &domain.Memory{
		Type:       domain.MemoryType(a.Type),
		Title:      a.Title,
		Content:    a.Content,
		Summary:    a.Summary,
		Tags:       a.Tags,
		Importance: floatOr(a.Importance, domain.DefaultImportance),
		Confidence: floatOr(a.Confidence, domain.DefaultConfidence),
	}
	if project := resolveProject(a.Project); project != "" {
		m.Context = &domain.Context{ProjectPath: project}
	}
	id, err := repo.StoreMemory(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

func handleGetMemory(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a getMemoryArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	m, err := repo.GetMemory(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.NewError(domain.KindMemoryNotFound, "memory not found: "+a.ID, nil)
	}
	return m, nil
}

func parseTimeOrNil(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func handleSearchMemories(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a searchMemoriesArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	opts := repository.SearchOptions{
		Query:                a.Query,
		Terms:                a.Terms,
		MatchAll:             a.MatchAll,
		MemoryTypes:          memoryTypesOf(a.MemoryTypes),
		Tags:                 a.Tags,
		ProjectPath:          resolveProject(a.Project),
		MinImportance:        a.MinImportance,
		MinConfidence:        a.MinConfidence,
		CreatedAfter:         parseTimeOrNil(a.CreatedAfter),
		CreatedBefore:        parseTimeOrNil(a.CreatedBefore),
		Limit:                a.Limit,
		Offset:               a.Offset,
		Mode:                 fuzzy.ModeStrict,
		IncludeRelationships: a.IncludeRelationships,
		RelationshipFilter:   relationshipTypesOf(a.RelationshipTypes),
	}
	return repo.SearchMemories(ctx, opts)
}

func handleUpdateMemory(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a updateMemoryArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	existing, err := repo.GetMemory(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.NewError(domain.KindMemoryNotFound, "memory not found: "+a.ID, nil)
	}
	if a.Title != nil {
		existing.Title = *a.Title
	}
	if a.Content != nil {
		existing.Content = *a.Content
	}
	if a.Summary != nil {
		existing.Summary = *a.Summary
	}
	if a.Tags != nil {
		existing.Tags = a.Tags
	}
	if a.Importance != nil {
		existing.Importance = *a.Importance
	}
	if a.Confidence != nil {
		existing.Confidence = *a.Confidence
	}
	ok, err := repo.UpdateMemory(ctx, existing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewError(domain.KindMemoryNotFound, "memory not found: "+a.ID, nil)
	}
	return existing, nil
}

func handleDeleteMemory(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a deleteMemoryArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	ok, err := repo.DeleteMemory(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": ok, "id": a.ID}, nil
}

func handleCreateRelationship(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a createRelationshipArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	rel := &domain.Relationship{
		FromMemoryID: a.From,
		ToMemoryID:   a.To,
		Type:         domain.RelationshipType(a.Type),
		Properties: domain.RelationshipProperties{
			Strength:   a.Strength,
			Confidence: a.Confidence,
			Context:    a.Context,
		},
	}
	rel.Prepare(true)
	id, err := repo.CreateRelationship(ctx, rel)
	if err != nil {
		return nil, err
	}
	rel.ID = id
	return rel, nil
}

func handleGetRelatedMemories(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a getRelatedMemoriesArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	depth := a.MaxDepth
	if depth <= 0 {
		depth = 1
	}
	related, err := repo.GetRelatedMemories(ctx, a.ID, relationshipTypesOf(a.RelationshipTypes), depth)
	if err != nil {
		return nil, err
	}
	return related, nil
}

func handleGetRecentActivity(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a getRecentActivityArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	days := a.Days
	if days <= 0 {
		days = 7
	}
	return repo.GetRecentActivity(ctx, days, resolveProject(a.Project))
}

func handleGetMemoryStatistics(ctx context.Context, repo *repository.Repository, _ map[string]interface{}) (interface{}, error) {
	return repo.Backend().GetMemoryStatistics(ctx)
}

// contextScanLimit bounds the full-store scan search_relationships_by_context
// falls back to when no memory_id scopes the candidate set; this mirrors the
// paginated scan the export algorithm (C8) performs, capped to avoid an
// unbounded traversal over every memory in the store.
const contextScanLimit = 500

func handleSearchRelationshipsByContext(ctx context.Context, repo *repository.Repository, raw map[string]interface{}) (interface{}, error) {
	var a searchRelationshipsByContextArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}

	candidates, err := gatherContextCandidates(ctx, repo, a.MemoryID)
	if err != nil {
		return nil, err
	}

	filter := repository.ContextFilter{
		Scope:      a.Scope,
		Conditions: a.Conditions,
		Evidence:   a.Evidence,
		Components: a.Components,
		Temporal:   a.Temporal,
		Limit:      a.Limit,
	}
	return repo.SearchRelationshipsByContext(ctx, candidates, filter), nil
}

// gatherContextCandidates scopes the candidate relationship set to a single
// memory's incident edges when memory_id is given; otherwise it scans up to
// contextScanLimit memories (logging if the store is larger than that) and
// collects their one-hop edges, deduplicating by (from, to, type) the same
// way the export algorithm does (internal/transfer).
func gatherContextCandidates(ctx context.Context, repo *repository.Repository, memoryID string) ([]domain.Relationship, error) {
	if memoryID != "" {
		related, err := repo.GetRelatedMemories(ctx, memoryID, nil, 1)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Relationship, len(related))
		for i, rm := range related {
			out[i] = rm.Relationship
		}
		return out, nil
	}

	page, err := repo.Backend().SearchMemoriesPaginated(ctx, backend.MemoryFilters{Limit: contextScanLimit})
	if err != nil {
		return nil, err
	}
	if page.TotalCount > contextScanLimit {
		log.Warn("search_relationships_by_context: scan truncated", "scanned", contextScanLimit, "total", page.TotalCount)
	}

	type key struct {
		from, to string
		typ      domain.RelationshipType
	}
	seen := make(map[key]domain.Relationship)
	for _, m := range page.Results {
		related, err := repo.GetRelatedMemories(ctx, m.ID, nil, 1)
		if err != nil {
			return nil, err
		}
		for _, rm := range related {
			k := key{from: rm.Relationship.FromMemoryID, to: rm.Relationship.ToMemoryID, typ: rm.Relationship.Type}
			seen[k] = rm.Relationship
		}
	}
	out := make([]domain.Relationship, 0, len(seen))
	for _, rel := range seen {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Properties.Strength > out[j].Properties.Strength })
	return out, nil
}
