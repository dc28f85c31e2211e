// Package graph implements the traversal & analytics kernel (C6): path
// finding, neighbourhood expansion, clustering, bridge detection and graph
// metrics, operating on in-memory snapshots the repository assembles from
// paginated memory and relationship fetches (§4.5.8).
package graph

import (
	"github.com/kgstore/kgstore/internal/domain"
)

// Edge is a relationship projected for kernel consumption.
type Edge struct {
	From       string
	To         string
	Type       domain.RelationshipType
	Strength   float64
	Confidence float64
}

// Snapshot is the in-memory graph the kernel operates on: every node id
// known to the caller, plus the edge set.
type Snapshot struct {
	Nodes []string
	Edges []Edge

	adjacency map[string][]neighbourEdge
	index     map[[3]string]Edge // (from,to,type) -> edge, for exact lookups
}

type neighbourEdge struct {
	neighbour string
	edge      Edge
}

// Build constructs the adjacency map described in §4.5.8: for each edge both
// directions are added to an adjacency map keyed by node id, and a
// relationship map keys (from,to) -> edge, with bidirectional types also
// keyed (to,from) -> same edge.
func Build(nodes []string, edges []Edge) *Snapshot {
	s := &Snapshot{
		Nodes:     nodes,
		Edges:     edges,
		adjacency: make(map[string][]neighbourEdge),
		index:     make(map[[3]string]Edge),
	}
	for _, e := range edges {
		s.adjacency[e.From] = append(s.adjacency[e.From], neighbourEdge{e.To, e})
		s.adjacency[e.To] = append(s.adjacency[e.To], neighbourEdge{e.From, e})
		s.index[[3]string{e.From, e.To, string(e.Type)}] = e
		if domain.IsBidirectional(e.Type) {
			s.index[[3]string{e.To, e.From, string(e.Type)}] = e
		}
	}
	return s
}

func allowedType(e Edge, allow map[domain.RelationshipType]struct{}) bool {
	if len(allow) == 0 {
		return true
	}
	_, ok := allow[e.Type]
	return ok
}

func typeSet(types []domain.RelationshipType) map[domain.RelationshipType]struct{} {
	if len(types) == 0 {
		return nil
	}
	m := make(map[domain.RelationshipType]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return m
}
