package cypher

import (
	"context"
	"strings"
	"sync"

	"github.com/kgstore/kgstore/internal/domain"
)

// memDriver is a minimal in-process stand-in for a real Bolt/Cypher driver,
// used only to exercise the adapter's statement-building and pooling logic
// in tests; it understands just enough of the canonical dialect's shape
// (MERGE/MATCH/SET/DELETE on a node-by-id, and relationship creation) to
// round-trip the adapter's own statements.
type memDriver struct {
	mu    sync.Mutex
	nodes map[string]map[string]interface{}
	edges []map[string]interface{}
}

func newMemDriver() *memDriver {
	return &memDriver{nodes: map[string]map[string]interface{}{}}
}

func (d *memDriver) Dial(ctx context.Context, dsn, user, pass string) (Session, error) {
	return &memSession{d: d}, nil
}

type memSession struct{ d *memDriver }

func (s *memSession) Ping(ctx context.Context) error  { return nil }
func (s *memSession) Close(ctx context.Context) error { return nil }

func (s *memSession) Run(ctx context.Context, stmt string, params map[string]interface{}, write bool) ([]map[string]interface{}, error) {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case strings.HasPrefix(stmt, "CREATE CONSTRAINT"), strings.HasPrefix(stmt, "CREATE INDEX"):
		return nil, nil
	case strings.HasPrefix(stmt, "CALL db.index.fulltext"):
		return nil, domain.NewError(domain.KindUnsupportedQuery, "full-text index not supported", nil)
	case strings.HasPrefix(stmt, "MERGE") && strings.Contains(stmt, "Memory {id: $id})"):
		id, _ := params["id"].(string)
		props, _ := params["props"].(map[string]interface{})
		node := map[string]interface{}{"id": id}
		for k, v := range props {
			node[k] = v
		}
		d.nodes[id] = node
		return []map[string]interface{}{{"n": node}}, nil
	case strings.HasPrefix(stmt, "MATCH") && strings.Contains(stmt, "SET n += $props"):
		id, _ := params["id"].(string)
		node, ok := d.nodes[id]
		if !ok {
			return nil, nil
		}
		props, _ := params["props"].(map[string]interface{})
		for k, v := range props {
			node[k] = v
		}
		return []map[string]interface{}{{"n": node}}, nil
	case strings.HasPrefix(stmt, "MATCH") && strings.Contains(stmt, "RETURN n") && !strings.Contains(stmt, "SKIP"):
		id, _ := params["id"].(string)
		node, ok := d.nodes[id]
		if !ok {
			return nil, nil
		}
		return []map[string]interface{}{{"n": node}}, nil
	case strings.HasPrefix(stmt, "MATCH") && strings.Contains(stmt, "DETACH DELETE n") && !strings.Contains(stmt, "(n)"):
		id, _ := params["id"].(string)
		delete(d.nodes, id)
		return nil, nil
	case strings.HasPrefix(stmt, "MATCH (n) DETACH DELETE n"):
		d.nodes = map[string]map[string]interface{}{}
		d.edges = nil
		return nil, nil
	case strings.HasPrefix(stmt, "MATCH") && strings.Contains(stmt, "SET r += $props") && !strings.Contains(stmt, "MERGE"):
		from, _ := params["from"].(string)
		to, _ := params["to"].(string)
		props, _ := params["props"].(map[string]interface{})
		typ := statementEdgeType(stmt)
		for _, e := range d.edges {
			if e["from_id"] == from && e["to_id"] == to && e["type"] == typ {
				for k, v := range props {
					e[k] = v
				}
				return []map[string]interface{}{{"r": e}}, nil
			}
		}
		return nil, nil
	case strings.HasPrefix(stmt, "MATCH") && strings.Contains(stmt, "MERGE (a)-[r:"):
		from, _ := params["from"].(string)
		to, _ := params["to"].(string)
		props, _ := params["props"].(map[string]interface{})
		typ := statementEdgeType(stmt)
		edge := map[string]interface{}{"from_id": from, "to_id": to, "type": typ}
		for k, v := range props {
			edge[k] = v
		}
		d.edges = append(d.edges, edge)
		return []map[string]interface{}{{"r": edge}}, nil
	case strings.HasPrefix(stmt, "MATCH") && strings.Contains(stmt, "*1.."):
		id, _ := params["id"].(string)
		var rows []map[string]interface{}
		for _, e := range d.edges {
			var otherID string
			switch id {
			case e["from_id"]:
				otherID = e["to_id"].(string)
			case e["to_id"]:
				otherID = e["from_id"].(string)
			default:
				continue
			}
			if node, ok := d.nodes[otherID]; ok {
				rows = append(rows, map[string]interface{}{"r": e, "m": node})
			}
		}
		return rows, nil
	case strings.Contains(stmt, "RETURN COUNT(n)"):
		total := len(d.nodes)
		var sumImp, sumConf float64
		for _, n := range d.nodes {
			sumImp += asFloat(n["importance"])
			sumConf += asFloat(n["confidence"])
		}
		avgImp, avgConf := 0.0, 0.0
		if total > 0 {
			avgImp = sumImp / float64(total)
			avgConf = sumConf / float64(total)
		}
		return []map[string]interface{}{{"total": int64(total), "avg_importance": avgImp, "avg_confidence": avgConf}}, nil
	case strings.Contains(stmt, "RETURN COUNT(r)"):
		return []map[string]interface{}{{"total": int64(len(d.edges))}}, nil
	case strings.Contains(stmt, "ORDER BY n.importance"):
		var out []map[string]interface{}
		for _, n := range d.nodes {
			out = append(out, map[string]interface{}{"n": n})
		}
		return out, nil
	}
	return nil, nil
}

func statementEdgeType(stmt string) string {
	i := strings.Index(stmt, "-[r:")
	if i < 0 {
		return ""
	}
	rest := stmt[i+len("-[r:"):]
	j := strings.Index(rest, "]")
	if j < 0 {
		return ""
	}
	return rest[:j]
}
