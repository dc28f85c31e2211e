package repository

import (
	"context"
	"math"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/graph"
	"github.com/kgstore/kgstore/internal/metrics"
)

// reinforcement deltas, per §4.5.4.
const (
	strengthDelta   = 0.05
	confidenceDelta = 0.03
	reinforceMin    = 0.1
	reinforceMax    = 1.0
)

// CreateRelationship validates endpoints and type, clamps numeric
// properties, assigns an id, and persists (§4.5.4).
func (r *Repository) CreateRelationship(ctx context.Context, rel *domain.Relationship) (string, error) {
	if err := rel.Validate(); err != nil {
		return "", err
	}
	return r.backend.CreateRelationship(ctx, rel)
}

// GetRelatedMemories computes the 1..maxDepth undirected neighbourhood of id.
// For maxDepth == 1 this is exactly the backend's native operation; for
// maxDepth > 1 the backend contract (§4.1) only guarantees a single hop, so
// the repository expands the frontier itself one backend call per level,
// assembles the discovered edges into a traversal-kernel snapshot (C6), and
// lets graph.Neighbourhood do the depth-bounded BFS and dedup.
func (r *Repository) GetRelatedMemories(ctx context.Context, id string, types []domain.RelationshipType, maxDepth int) ([]backend.RelatedMemory, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	if maxDepth == 1 {
		return r.backend.GetRelatedMemories(ctx, id, types, maxDepth)
	}
	return r.multiHopRelated(ctx, id, types, maxDepth)
}

// multiHopRelated expands the neighbourhood level by level via the
// backend's 1-hop primitive, feeding every edge discovered along the way
// into a graph.Snapshot so the kernel's own BFS (rather than a second
// hand-rolled one) produces the final depth-bounded, deduplicated result.
func (r *Repository) multiHopRelated(ctx context.Context, id string, types []domain.RelationshipType, maxDepth int) ([]backend.RelatedMemory, error) {
	memories := map[string]domain.Memory{}
	var edges []graph.Edge
	edgeSeen := map[[3]string]struct{}{}
	nodeSeen := map[string]struct{}{id: {}}
	frontier := []string{id}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			hop, err := r.backend.GetRelatedMemories(ctx, node, types, 1)
			if err != nil {
				return nil, err
			}
			for _, rm := range hop {
				memories[rm.Memory.ID] = rm.Memory
				key := [3]string{rm.Relationship.FromMemoryID, rm.Relationship.ToMemoryID, string(rm.Relationship.Type)}
				if _, ok := edgeSeen[key]; !ok {
					edgeSeen[key] = struct{}{}
					edges = append(edges, graph.Edge{
						From:       rm.Relationship.FromMemoryID,
						To:         rm.Relationship.ToMemoryID,
						Type:       rm.Relationship.Type,
						Strength:   rm.Relationship.Properties.Strength,
						Confidence: rm.Relationship.Properties.Confidence,
					})
				}
				if _, ok := nodeSeen[rm.Memory.ID]; !ok {
					nodeSeen[rm.Memory.ID] = struct{}{}
					next = append(next, rm.Memory.ID)
				}
			}
		}
		frontier = next
	}

	nodes := make([]string, 0, len(nodeSeen))
	for n := range nodeSeen {
		nodes = append(nodes, n)
	}
	snapshot := graph.Build(nodes, edges)
	levels := snapshot.Neighbourhood(id, maxDepth, graph.NeighbourhoodFilter{RelationshipTypes: types})
	metrics.TraversalNodesVisited.Add(ctx, int64(len(levels)))

	out := make([]backend.RelatedMemory, 0, len(levels))
	for _, lv := range levels {
		m, ok := memories[lv.Neighbour]
		if !ok {
			continue
		}
		out = append(out, backend.RelatedMemory{
			Memory: m,
			Relationship: domain.Relationship{
				FromMemoryID: lv.Edge.From,
				ToMemoryID:   lv.Edge.To,
				Type:         lv.Edge.Type,
				Properties:   domain.RelationshipProperties{Strength: lv.Edge.Strength, Confidence: lv.Edge.Confidence},
			},
		})
	}
	return out, nil
}

func clampReinforced(v float64) float64 {
	if v < reinforceMin {
		return reinforceMin
	}
	if v > reinforceMax {
		return reinforceMax
	}
	return v
}

// Reinforce applies the monotone update of §4.5.4 given a success flag and
// returns the new property bag; the caller persists it via
// UpdateRelationshipProperties.
func Reinforce(props domain.RelationshipProperties, success bool) domain.RelationshipProperties {
	out := props
	out.EvidenceCount = props.EvidenceCount + 1
	if success {
		out.ValidationCount = props.ValidationCount + 1
	} else {
		out.CounterEvidenceCount = props.CounterEvidenceCount + 1
	}
	denom := out.ValidationCount + out.CounterEvidenceCount
	if denom > 0 {
		sr := float64(out.ValidationCount) / float64(denom)
		out.SuccessRate = &sr
	}
	if success {
		out.Strength = clampReinforced(props.Strength + strengthDelta)
		out.Confidence = clampReinforced(props.Confidence + confidenceDelta)
	} else {
		out.Strength = clampReinforced(props.Strength - strengthDelta/2)
		out.Confidence = clampReinforced(props.Confidence - confidenceDelta/2)
	}
	now := time.Now().UTC()
	out.LastValidated = &now
	return out
}

// ReinforceRelationship loads nothing itself: callers supply the current
// properties (typically obtained via a prior lookup) and the success flag;
// the repository computes and persists the new bag.
func (r *Repository) ReinforceRelationship(ctx context.Context, from, to string, relType domain.RelationshipType, current domain.RelationshipProperties, success bool) (domain.RelationshipProperties, error) {
	updated := Reinforce(current, success)
	ok, err := r.backend.UpdateRelationshipProperties(ctx, from, to, relType, updated)
	if err != nil {
		return domain.RelationshipProperties{}, err
	}
	if !ok {
		return domain.RelationshipProperties{}, domain.NewError(domain.KindRelationshipError, "relationship not found", nil)
	}
	return updated, nil
}

// UpdateRelationshipProperties replaces the property bag field-by-field; the
// single legal mutation of a Relationship (§4.5.4).
func (r *Repository) UpdateRelationshipProperties(ctx context.Context, from, to string, relType domain.RelationshipType, props domain.RelationshipProperties) (bool, error) {
	return r.backend.UpdateRelationshipProperties(ctx, from, to, relType, props)
}

// effectiveStrengthDecayRate is the default daily decay rate of §4.5.5.
const effectiveStrengthDecayRate = 0.01

// EffectiveStrength computes the derived ranking scalar of §4.5.5 from a
// relationship's current properties and its age in days.
func EffectiveStrength(props domain.RelationshipProperties, ageDays float64) float64 {
	s0 := props.Strength
	s1 := s0
	if props.EvidenceCount > 1 {
		s1 = math.Min(s0+math.Min(0.2, 0.05*math.Sqrt(float64(props.EvidenceCount-1))), 1.0)
	}
	s2 := s1
	if props.SuccessRate != nil {
		s2 = s1 * (0.5 + 0.5**props.SuccessRate)
	}
	s3 := s2
	if ageDays > 0 {
		s3 = s2 * math.Max(0.5, 1-effectiveStrengthDecayRate*ageDays)
	}
	return clamp01Local(s3)
}

func clamp01Local(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
