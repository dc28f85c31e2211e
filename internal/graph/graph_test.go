package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgstore/kgstore/internal/domain"
)

func sampleSnapshot() *Snapshot {
	nodes := []string{"a", "b", "c", "d"}
	edges := []Edge{
		{From: "a", To: "b", Type: domain.RelSolves, Strength: 0.9},
		{From: "b", To: "c", Type: domain.RelRelatedTo, Strength: 0.5},
		{From: "c", To: "d", Type: domain.RelCauses, Strength: 0.3},
	}
	return Build(nodes, edges)
}

func TestShortestPath(t *testing.T) {
	s := sampleSnapshot()
	p := s.ShortestPath("a", "d", 5, nil)
	require.NotNil(t, p)
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Nodes)
}

func TestShortestPathUnreachableWithinDepth(t *testing.T) {
	s := sampleSnapshot()
	p := s.ShortestPath("a", "d", 1, nil)
	assert.Nil(t, p)
}

func TestAllPathsSortedByStrength(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	edges := []Edge{
		{From: "a", To: "b", Type: domain.RelSolves, Strength: 0.2},
		{From: "a", To: "c", Type: domain.RelSolves, Strength: 0.1},
		{From: "b", To: "c", Type: domain.RelSolves, Strength: 0.9},
	}
	s := Build(nodes, edges)
	paths := s.AllPaths("a", "c", 4, 10)
	require.NotEmpty(t, paths)
	assert.GreaterOrEqual(t, paths[0].TotalStrength, paths[len(paths)-1].TotalStrength)
}

func TestMetrics(t *testing.T) {
	s := sampleSnapshot()
	m := s.Metrics()
	assert.Equal(t, 4, m.NodeCount)
	assert.Equal(t, 3, m.EdgeCount)
}

func TestClustersRespectMinSize(t *testing.T) {
	s := sampleSnapshot()
	clusters := s.Clusters(10, 0)
	assert.Empty(t, clusters)
}
