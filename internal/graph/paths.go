package graph

import (
	"sort"

	"github.com/kgstore/kgstore/internal/domain"
)

// Path is a sequence of node ids connected by edges, with the accumulated
// strength (sum of edge strengths along the path).
type Path struct {
	Nodes          []string
	Edges          []Edge
	TotalStrength  float64
}

// ShortestPath runs a breadth-first search from start to target, cut off at
// maxDepth, honouring an optional relationship-type allow-list. Returns nil
// when no path exists within the depth bound (§4.5.8).
func (s *Snapshot) ShortestPath(start, target string, maxDepth int, relTypes []domain.RelationshipType) *Path {
	if start == target {
		return &Path{Nodes: []string{start}}
	}
	allow := typeSet(relTypes)

	type frame struct {
		node string
		path *Path
	}
	visited := map[string]bool{start: true}
	queue := []frame{{start, &Path{Nodes: []string{start}}}}

	for depth := 0; len(queue) > 0 && depth < maxDepth; depth++ {
		var next []frame
		for _, f := range queue {
			for _, ne := range s.adjacency[f.node] {
				if !allowedType(ne.edge, allow) {
					continue
				}
				if visited[ne.neighbour] {
					continue
				}
				newNodes := append(append([]string{}, f.path.Nodes...), ne.neighbour)
				newEdges := append(append([]Edge{}, f.path.Edges...), ne.edge)
				newPath := &Path{Nodes: newNodes, Edges: newEdges, TotalStrength: f.path.TotalStrength + ne.edge.Strength}
				if ne.neighbour == target {
					return newPath
				}
				visited[ne.neighbour] = true
				next = append(next, frame{ne.neighbour, newPath})
			}
		}
		queue = next
	}
	return nil
}

// AllPaths enumerates paths from start to target via depth-first search,
// bounded by maxDepth and maxPaths (defaults 4 and 10), sorted by total
// strength descending (§4.5.8).
func (s *Snapshot) AllPaths(start, target string, maxDepth, maxPaths int) []Path {
	if maxDepth <= 0 {
		maxDepth = 4
	}
	if maxPaths <= 0 {
		maxPaths = 10
	}
	var results []Path
	visited := map[string]bool{start: true}
	var dfs func(node string, nodes []string, edges []Edge, strength float64)
	dfs = func(node string, nodes []string, edges []Edge, strength float64) {
		if len(results) >= maxPaths {
			return
		}
		if node == target && len(nodes) > 1 {
			results = append(results, Path{
				Nodes:         append([]string{}, nodes...),
				Edges:         append([]Edge{}, edges...),
				TotalStrength: strength,
			})
			return
		}
		if len(nodes)-1 >= maxDepth {
			return
		}
		for _, ne := range s.adjacency[node] {
			if visited[ne.neighbour] {
				continue
			}
			visited[ne.neighbour] = true
			dfs(ne.neighbour, append(nodes, ne.neighbour), append(edges, ne.edge), strength+ne.edge.Strength)
			visited[ne.neighbour] = false
			if len(results) >= maxPaths {
				return
			}
		}
	}
	dfs(start, []string{start}, nil, 0)

	sort.Slice(results, func(i, j int) bool { return results[i].TotalStrength > results[j].TotalStrength })
	if len(results) > maxPaths {
		results = results[:maxPaths]
	}
	return results
}
