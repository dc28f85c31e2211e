package graph

import "github.com/kgstore/kgstore/internal/domain"

// LevelEntry is a single neighbour discovered at a given BFS depth, along
// with the incoming edge that reached it.
type LevelEntry struct {
	Neighbour string
	Edge      Edge
	Depth     int
}

// NeighbourhoodFilter restricts which edges participate in the expansion.
type NeighbourhoodFilter struct {
	RelationshipTypes []domain.RelationshipType
	Categories        []domain.RelationshipCategory
	MinStrength       float64
}

func (f NeighbourhoodFilter) matches(e Edge) bool {
	if f.MinStrength > 0 && e.Strength < f.MinStrength {
		return false
	}
	if len(f.RelationshipTypes) > 0 {
		ok := false
		for _, t := range f.RelationshipTypes {
			if e.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Categories) > 0 {
		ok := false
		cat := domain.CategoryOf(e.Type)
		for _, c := range f.Categories {
			if cat == c {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Neighbourhood performs a BFS-by-depth-level expansion from start out to
// maxDepth, recording (neighbour, incoming edge) at each level (§4.5.8).
func (s *Snapshot) Neighbourhood(start string, maxDepth int, filter NeighbourhoodFilter) []LevelEntry {
	visited := map[string]bool{start: true}
	var out []LevelEntry
	frontier := []string{start}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			for _, ne := range s.adjacency[node] {
				if visited[ne.neighbour] || !filter.matches(ne.edge) {
					continue
				}
				visited[ne.neighbour] = true
				out = append(out, LevelEntry{Neighbour: ne.neighbour, Edge: ne.edge, Depth: depth})
				next = append(next, ne.neighbour)
			}
		}
		frontier = next
	}
	return out
}
