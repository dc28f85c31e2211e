package graph

import (
	"sort"

	"github.com/kgstore/kgstore/internal/domain"
)

// Cluster is a connected component of the undirected projection meeting the
// minimum size and density thresholds (§4.5.8).
type Cluster struct {
	Nodes        []string
	AvgStrength  float64
	Categories   map[domain.RelationshipCategory]struct{}
	Density      float64
}

// Clusters computes the connected components of the undirected projection;
// only components of size >= minSize (default 3) with density >= minDensity
// (default 0.3) are retained, sorted by (size desc, density desc).
func (s *Snapshot) Clusters(minSize int, minDensity float64) []Cluster {
	if minSize <= 0 {
		minSize = 3
	}
	if minDensity <= 0 {
		minDensity = 0.3
	}

	visited := make(map[string]bool)
	var clusters []Cluster

	for _, n := range s.Nodes {
		if visited[n] {
			continue
		}
		var component []string
		queue := []string{n}
		visited[n] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for _, ne := range s.adjacency[cur] {
				if !visited[ne.neighbour] {
					visited[ne.neighbour] = true
					queue = append(queue, ne.neighbour)
				}
			}
		}
		if len(component) < minSize {
			continue
		}

		memberSet := make(map[string]struct{}, len(component))
		for _, m := range component {
			memberSet[m] = struct{}{}
		}

		edgeSet := make(map[[2]string]Edge)
		var totalStrength float64
		categories := make(map[domain.RelationshipCategory]struct{})
		for _, e := range s.Edges {
			_, fromIn := memberSet[e.From]
			_, toIn := memberSet[e.To]
			if !fromIn || !toIn {
				continue
			}
			key := [2]string{e.From, e.To}
			if e.From > e.To {
				key = [2]string{e.To, e.From}
			}
			if _, dup := edgeSet[key]; dup {
				continue
			}
			edgeSet[key] = e
			totalStrength += e.Strength
			categories[domain.CategoryOf(e.Type)] = struct{}{}
		}

		nn := len(component)
		maxEdges := nn * (nn - 1) / 2
		density := 0.0
		if maxEdges > 0 {
			density = float64(len(edgeSet)) / float64(maxEdges)
		}
		if density < minDensity {
			continue
		}
		avgStrength := 0.0
		if len(edgeSet) > 0 {
			avgStrength = totalStrength / float64(len(edgeSet))
		}

		clusters = append(clusters, Cluster{
			Nodes:       component,
			AvgStrength: avgStrength,
			Categories:  categories,
			Density:     density,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Nodes) != len(clusters[j].Nodes) {
			return len(clusters[i].Nodes) > len(clusters[j].Nodes)
		}
		return clusters[i].Density > clusters[j].Density
	})
	return clusters
}

// Bridge is a node reachable from two or more distinct clusters by a single
// edge.
type Bridge struct {
	Node           string
	ClusterCount   int
	BridgeStrength float64
}

// Bridges assigns every node to at most one cluster, then for each node
// counts the distinct clusters reachable by a single edge from it; nodes
// with count >= 2 are bridges, with bridge_strength = min(1.0, (k/5) *
// mean_incident_strength), sorted descending (§4.5.8).
func (s *Snapshot) Bridges(clusters []Cluster) []Bridge {
	clusterOf := make(map[string]int)
	for idx, c := range clusters {
		for _, n := range c.Nodes {
			if _, already := clusterOf[n]; !already {
				clusterOf[n] = idx
			}
		}
	}

	var bridges []Bridge
	for _, n := range s.Nodes {
		reached := make(map[int]struct{})
		var strengthSum float64
		var count int
		for _, ne := range s.adjacency[n] {
			if cIdx, ok := clusterOf[ne.neighbour]; ok {
				reached[cIdx] = struct{}{}
			}
			strengthSum += ne.edge.Strength
			count++
		}
		if len(reached) < 2 {
			continue
		}
		mean := 0.0
		if count > 0 {
			mean = strengthSum / float64(count)
		}
		strength := (float64(len(reached)) / 5.0) * mean
		if strength > 1.0 {
			strength = 1.0
		}
		bridges = append(bridges, Bridge{Node: n, ClusterCount: len(reached), BridgeStrength: strength})
	}

	sort.Slice(bridges, func(i, j int) bool { return bridges[i].BridgeStrength > bridges[j].BridgeStrength })
	return bridges
}
