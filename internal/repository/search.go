package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/fuzzy"
	"github.com/kgstore/kgstore/internal/metrics"
)

// SearchOptions is the full set of predicates and behaviour switches for
// search_memories / recall_memories (§4.5.3).
type SearchOptions struct {
	Query        string
	Terms        []string
	MatchAll     bool
	MemoryTypes  []domain.MemoryType
	Tags         []string
	ProjectPath  string
	MinImportance *float64
	MinConfidence *float64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	// Limit is a pointer so the repository can distinguish "unset" (apply
	// the default of 20) from an explicit 0 (return empty), per §8's
	// boundary behaviour.
	Limit  *int
	Offset int

	Mode                 fuzzy.Mode
	IncludeRelationships bool
	RelationshipFilter   []domain.RelationshipType
}

// MatchInfo records which fields matched and which query terms were found,
// plus a quality label, per §4.5.3.
type MatchInfo struct {
	MatchedFields []string
	MatchedTerms  []string
	MatchQuality  string // low, medium, high
}

// EnrichedMemory is a search result augmented with one-hop relationship
// groupings, match diagnostics, and a synthesized context summary.
type EnrichedMemory struct {
	Memory               domain.Memory
	RelatedByType        map[domain.RelationshipType][]string // neighbour titles
	MatchInfo            *MatchInfo
	ContextSummary       string
}

// SearchResult is the outcome of SearchMemories.
type SearchResult struct {
	Results    []EnrichedMemory
	TotalCount int
	Limit      int
	Offset     int
	HasMore    bool
	NextOffset *int
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 1000
)

// resolveLimit implements the §8 boundary behaviour: limit=0 explicit returns
// empty, limit>1000 is rejected, unset applies the default of 20.
func resolveLimit(limit *int) (int, bool, error) {
	if limit == nil {
		return defaultSearchLimit, false, nil
	}
	if *limit == 0 {
		return 0, true, nil
	}
	if *limit > maxSearchLimit {
		return 0, false, domain.NewError(domain.KindValidation, fmt.Sprintf("limit %d exceeds maximum of %d", *limit, maxSearchLimit), nil)
	}
	if *limit < 0 {
		return 0, false, domain.NewError(domain.KindValidation, "limit must not be negative", nil)
	}
	return *limit, false, nil
}

func buildPatterns(opts SearchOptions) []string {
	queries := opts.Terms
	if len(queries) == 0 && opts.Query != "" {
		queries = []string{opts.Query}
	}
	var templates []string
	seen := make(map[string]struct{})
	for _, q := range queries {
		for _, p := range fuzzy.GeneratePatterns(q, opts.Mode) {
			if _, ok := seen[p.Template]; ok {
				continue
			}
			seen[p.Template] = struct{}{}
			templates = append(templates, p.Template)
		}
	}
	return templates
}

// SearchMemories composes the conjunctive WHERE of §4.5.3 via the backend,
// then enriches each result when requested.
func (r *Repository) SearchMemories(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	limit, empty, err := resolveLimit(opts.Limit)
	if err != nil {
		return SearchResult{}, err
	}
	if empty {
		return SearchResult{Results: []EnrichedMemory{}, Limit: 0, Offset: opts.Offset}, nil
	}

	f := backend.MemoryFilters{
		Terms:         buildPatterns(opts),
		MatchAll:      opts.MatchAll,
		MemoryTypes:   opts.MemoryTypes,
		Tags:          opts.Tags,
		ProjectPath:   opts.ProjectPath,
		MinImportance: opts.MinImportance,
		MinConfidence: opts.MinConfidence,
		CreatedAfter:  opts.CreatedAfter,
		CreatedBefore: opts.CreatedBefore,
		Limit:         limit,
		Offset:        opts.Offset,
	}

	page, err := r.backend.SearchMemoriesPaginated(ctx, f)
	if err != nil {
		return SearchResult{}, err
	}

	enriched := make([]EnrichedMemory, 0, len(page.Results))
	queryTerms := opts.Terms
	if len(queryTerms) == 0 && opts.Query != "" {
		queryTerms = []string{opts.Query}
	}
	for _, m := range page.Results {
		em := EnrichedMemory{Memory: m}
		em.MatchInfo = computeMatchInfo(m, queryTerms)
		if opts.IncludeRelationships {
			related, err := r.backend.GetRelatedMemories(ctx, m.ID, nil, 1)
			if err != nil {
				return SearchResult{}, err
			}
			em.RelatedByType = groupByType(related)
			em.ContextSummary = synthesizeContextSummary(m, related)
		}
		enriched = append(enriched, em)
	}

	if len(opts.RelationshipFilter) > 0 {
		enriched = r.applyRelationshipFilter(ctx, enriched, opts.RelationshipFilter)
	}

	return SearchResult{
		Results:    enriched,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
		NextOffset: page.NextOffset,
	}, nil
}

// applyRelationshipFilter keeps only memories that have at least one of the
// specified relationship types on some incident edge.
func (r *Repository) applyRelationshipFilter(ctx context.Context, in []EnrichedMemory, types []domain.RelationshipType) []EnrichedMemory {
	out := make([]EnrichedMemory, 0, len(in))
	for _, em := range in {
		related, err := r.backend.GetRelatedMemories(ctx, em.Memory.ID, types, 1)
		if err != nil || len(related) == 0 {
			continue
		}
		out = append(out, em)
	}
	return out
}

func computeMatchInfo(m domain.Memory, terms []string) *MatchInfo {
	if len(terms) == 0 {
		return nil
	}
	mi := &MatchInfo{MatchQuality: "low"}
	fieldSeen := make(map[string]struct{})
	termSeen := make(map[string]struct{})
	lowerTitle := strings.ToLower(m.Title)
	lowerContent := strings.ToLower(m.Content)
	lowerSummary := strings.ToLower(m.Summary)

	for _, term := range terms {
		lt := strings.ToLower(term)
		matchedAny := false
		if strings.Contains(lowerTitle, lt) {
			fieldSeen["title"] = struct{}{}
			matchedAny = true
		}
		if strings.Contains(lowerContent, lt) {
			fieldSeen["content"] = struct{}{}
			matchedAny = true
		}
		if strings.Contains(lowerSummary, lt) {
			fieldSeen["summary"] = struct{}{}
			matchedAny = true
		}
		if matchedAny {
			termSeen[term] = struct{}{}
		}
	}

	for f := range fieldSeen {
		mi.MatchedFields = append(mi.MatchedFields, f)
	}
	sort.Strings(mi.MatchedFields)
	for t := range termSeen {
		mi.MatchedTerms = append(mi.MatchedTerms, t)
	}
	sort.Strings(mi.MatchedTerms)

	if _, ok := fieldSeen["title"]; ok {
		mi.MatchQuality = "high"
	} else if _, ok := fieldSeen["content"]; ok {
		mi.MatchQuality = "medium"
	} else if _, ok := fieldSeen["summary"]; ok {
		mi.MatchQuality = "medium"
	}
	return mi
}

func groupByType(related []backend.RelatedMemory) map[domain.RelationshipType][]string {
	out := make(map[domain.RelationshipType][]string)
	for _, rm := range related {
		out[rm.Relationship.Type] = append(out[rm.Relationship.Type], rm.Memory.Title)
	}
	return out
}

// synthesizeContextSummary builds the one-liner of §4.5.3: memory type
// label, then SOLVES targets (up to two), else the first SOLVED_BY source,
// else the first USED_IN project, truncated to 100 chars.
func synthesizeContextSummary(m domain.Memory, related []backend.RelatedMemory) string {
	parts := []string{string(m.Type)}

	var solvesTargets []string
	var solvedBySource string
	var usedInProject string
	for _, rm := range related {
		switch rm.Relationship.Type {
		case domain.RelSolves:
			if rm.Relationship.FromMemoryID == m.ID && len(solvesTargets) < 2 {
				solvesTargets = append(solvesTargets, rm.Memory.Title)
			} else if rm.Relationship.ToMemoryID == m.ID && solvedBySource == "" {
				solvedBySource = rm.Memory.Title
			}
		case domain.RelUsedIn:
			if usedInProject == "" {
				usedInProject = rm.Memory.Title
			}
		}
	}

	if len(solvesTargets) > 0 {
		parts = append(parts, "solves "+strings.Join(solvesTargets, ", "))
	} else if solvedBySource != "" {
		parts = append(parts, "solved by "+solvedBySource)
	} else if usedInProject != "" {
		parts = append(parts, "used in "+usedInProject)
	}

	summary := strings.Join(parts, ": ")
	if len(summary) > 100 {
		summary = summary[:100]
	}
	return summary
}
