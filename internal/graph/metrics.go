package graph

import "github.com/kgstore/kgstore/internal/domain"

// Metrics is the aggregate graph summary of §4.5.8.
type Metrics struct {
	NodeCount           int
	EdgeCount           int
	AvgDegree           float64
	Density             float64
	AvgStrength         float64
	CategoryDistribution map[domain.RelationshipCategory]int
	TypeDistribution     map[domain.RelationshipType]int
}

// Metrics computes {node_count, edge_count, avg_degree, density,
// avg_strength, category_distribution, type_distribution}.
func (s *Snapshot) Metrics() Metrics {
	m := Metrics{
		NodeCount:            len(s.Nodes),
		EdgeCount:            len(s.Edges),
		CategoryDistribution: make(map[domain.RelationshipCategory]int),
		TypeDistribution:     make(map[domain.RelationshipType]int),
	}

	var totalStrength float64
	for _, e := range s.Edges {
		totalStrength += e.Strength
		m.CategoryDistribution[domain.CategoryOf(e.Type)]++
		m.TypeDistribution[e.Type]++
	}
	if m.EdgeCount > 0 {
		m.AvgStrength = totalStrength / float64(m.EdgeCount)
	}

	totalDegree := 0
	for _, n := range s.Nodes {
		totalDegree += len(s.adjacency[n])
	}
	if m.NodeCount > 0 {
		m.AvgDegree = float64(totalDegree) / float64(m.NodeCount)
	}
	if m.NodeCount > 1 {
		maxEdges := m.NodeCount * (m.NodeCount - 1) / 2
		m.Density = float64(m.EdgeCount) / float64(maxEdges)
	}
	return m
}
