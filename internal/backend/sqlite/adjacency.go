package sqlite

import (
	"context"

	"github.com/kgstore/kgstore/internal/domain"
)

// adjacencyIndex is the advisory in-memory directed adjacency structure
// described in §4.3's "Graph index" paragraph. It is rebuilt wholesale on
// connect and kept incrementally in sync by the write paths; all
// authoritative reads still go to the SQL tables.
type adjacencyIndex struct {
	// neighbors maps a node id to the ids of nodes reachable by a single
	// edge in either direction: every edge, directed or bidirectional, is
	// added both ways, matching the undirected traversal shortcut the index
	// exists to serve.
	neighbors map[string]map[string]struct{}
	// edges maps (from,to) -> relationship id, and for bidirectional types
	// also (to,from) -> the same id, per invariant 7.
	edges map[[2]string]string
}

func newAdjacencyIndex() *adjacencyIndex {
	return &adjacencyIndex{
		neighbors: make(map[string]map[string]struct{}),
		edges:     make(map[[2]string]string),
	}
}

func (a *adjacencyIndex) addEdge(from, to string, relType domain.RelationshipType, relID string) {
	if a.neighbors[from] == nil {
		a.neighbors[from] = make(map[string]struct{})
	}
	if a.neighbors[to] == nil {
		a.neighbors[to] = make(map[string]struct{})
	}
	a.neighbors[from][to] = struct{}{}
	a.neighbors[to][from] = struct{}{}
	a.edges[[2]string{from, to}] = relID
	if domain.IsBidirectional(relType) {
		a.edges[[2]string{to, from}] = relID
	}
}

func (a *adjacencyIndex) removeNode(id string) {
	for n := range a.neighbors[id] {
		delete(a.neighbors[n], id)
	}
	delete(a.neighbors, id)
	for k := range a.edges {
		if k[0] == id || k[1] == id {
			delete(a.edges, k)
		}
	}
}

// rebuildAdjacency loads the complete set of nodes and edges from the
// authoritative tables into a fresh adjacency index.
func (b *Backend) rebuildAdjacency(ctx context.Context) error {
	idx := newAdjacencyIndex()

	rows, err := b.db.QueryContext(ctx, `SELECT from_id, to_id, rel_type, id FROM relationships`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var from, to, relType, id string
		if err := rows.Scan(&from, &to, &relType, &id); err != nil {
			return err
		}
		idx.addEdge(from, to, domain.RelationshipType(relType), id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	b.adjMu.Lock()
	b.adj = idx
	b.adjMu.Unlock()
	return nil
}
