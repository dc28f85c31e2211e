package repository

import (
	"context"
	"sort"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
)

const (
	activityRecentLimit    = 20
	activityUnsolvedLimit  = 10
)

// ActivitySummary is the result of get_recent_activity (§4.5.6).
type ActivitySummary struct {
	Cutoff             time.Time
	TotalCount         int
	CountsByType       map[domain.MemoryType]int
	Recent             []domain.Memory
	UnsolvedProblems   []domain.Memory
}

// GetRecentActivity implements §4.5.6: cutoff = now - days, count and group
// matching Memories, take the 20 most recent, and identify up to 10 unsolved
// problems sorted by importance desc.
func (r *Repository) GetRecentActivity(ctx context.Context, days int, project string) (ActivitySummary, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	f := backend.MemoryFilters{
		ProjectPath:  project,
		CreatedAfter: &cutoff,
		Limit:        maxSearchLimit,
		Offset:       0,
	}
	page, err := r.backend.SearchMemoriesPaginated(ctx, f)
	if err != nil {
		return ActivitySummary{}, err
	}

	summary := ActivitySummary{
		Cutoff:       cutoff,
		TotalCount:   page.TotalCount,
		CountsByType: make(map[domain.MemoryType]int),
	}
	for _, m := range page.Results {
		summary.CountsByType[m.Type]++
	}
	byRecency := append([]domain.Memory{}, page.Results...)
	sort.Slice(byRecency, func(i, j int) bool { return byRecency[i].CreatedAt.After(byRecency[j].CreatedAt) })
	if len(byRecency) > activityRecentLimit {
		summary.Recent = byRecency[:activityRecentLimit]
	} else {
		summary.Recent = byRecency
	}

	unsolved, err := r.findUnsolvedProblems(ctx, page.Results)
	if err != nil {
		return ActivitySummary{}, err
	}
	summary.UnsolvedProblems = unsolved
	return summary, nil
}

// findUnsolvedProblems identifies Memories of type problem/error with no
// incoming SOLVES/ADDRESSES edge, sorted by importance desc, capped at 10.
func (r *Repository) findUnsolvedProblems(ctx context.Context, candidates []domain.Memory) ([]domain.Memory, error) {
	var problems []domain.Memory
	for _, m := range candidates {
		if m.Type != domain.MemoryTypeProblem && m.Type != domain.MemoryTypeError {
			continue
		}
		related, err := r.backend.GetRelatedMemories(ctx, m.ID, []domain.RelationshipType{domain.RelSolves, domain.RelAddresses}, 1)
		if err != nil {
			return nil, err
		}
		solved := false
		for _, rm := range related {
			if rm.Relationship.ToMemoryID == m.ID && domain.Solving[rm.Relationship.Type] {
				solved = true
				break
			}
		}
		if !solved {
			problems = append(problems, m)
		}
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Importance > problems[j].Importance })
	if len(problems) > activityUnsolvedLimit {
		problems = problems[:activityUnsolvedLimit]
	}
	return problems, nil
}
