package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
)

// ContextFilter is the structured filter over a Relationship's semi-
// structured context string (§4.5.7): all-OR within a field, AND across
// fields, case-insensitive substring matching.
type ContextFilter struct {
	Scope      string
	Conditions []string
	Evidence   []string
	Components []string
	Temporal   string
	Limit      int
}

func containsAny(haystack string, needles []string) bool {
	if len(needles) == 0 {
		return true
	}
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func matchesFilter(pc domain.ParsedContext, f ContextFilter) bool {
	if f.Scope != "" && !strings.Contains(strings.ToLower(pc.Scope), strings.ToLower(f.Scope)) {
		return false
	}
	if len(f.Conditions) > 0 && !containsAny(strings.Join(pc.Conditions, " "), f.Conditions) {
		return false
	}
	if len(f.Evidence) > 0 && !containsAny(strings.Join(pc.Evidence, " "), f.Evidence) {
		return false
	}
	if len(f.Components) > 0 && !containsAny(strings.Join(pc.Components, " "), f.Components) {
		return false
	}
	if f.Temporal != "" && !strings.Contains(strings.ToLower(pc.Temporal), strings.ToLower(f.Temporal)) {
		return false
	}
	return true
}

// SearchRelationshipsByContext implements §4.5.7: parse each candidate
// relationship's context string, keep those matching the structured filter,
// order by strength desc, and truncate by limit (default 20).
func (r *Repository) SearchRelationshipsByContext(ctx context.Context, candidates []domain.Relationship, f ContextFilter) []domain.Relationship {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var out []domain.Relationship
	for _, rel := range candidates {
		pc := domain.ParseContext(rel.Properties.Context)
		if matchesFilter(pc, f) {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Properties.Strength > out[j].Properties.Strength })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// relatedToRelationships projects backend.RelatedMemory pairs down to their
// Relationship half, a convenience for callers assembling candidate sets for
// SearchRelationshipsByContext from GetRelatedMemories results.
func relatedToRelationships(related []backend.RelatedMemory) []domain.Relationship {
	out := make([]domain.Relationship, len(related))
	for i, rm := range related {
		out[i] = rm.Relationship
	}
	return out
}
