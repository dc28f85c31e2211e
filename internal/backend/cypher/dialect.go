package cypher

import (
	"fmt"
	"strings"

	"github.com/kgstore/kgstore/internal/domain"
)

// memoryLabel and relationship direction are fixed by the data model (§3):
// every Memory is a single-labeled node; relationships are directed edges
// typed by one of the 35 fixed values.
const memoryLabel = "Memory"

// typeNameOrDie validates a relationship type against the fixed 35-value
// enum before it is ever interpolated into a statement string. The canonical
// dialect has no parameter position for an edge's type name, so this check
// is the only thing standing between a caller-supplied string and a Cypher
// injection; callers MUST reject invalid types before reaching here, but the
// adapter checks again as the last line of defense.
func typeNameOrDie(t domain.RelationshipType) (string, error) {
	if !domain.IsValidRelationshipType(string(t)) {
		return "", domain.NewError(domain.KindValidation, "unknown relationship type", map[string]interface{}{"type": string(t)})
	}
	return string(t), nil
}

// buildMatchByID renders `MATCH (n:Memory {id: $id}) RETURN n`, the simplest
// canonical-dialect statement: node match by label and id (§4.2).
func buildMatchByID(id string) (string, map[string]interface{}) {
	return fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN n", memoryLabel),
		map[string]interface{}{"id": id}
}

// buildCreateMemory renders a MERGE-by-id upsert with the full property map
// set in one clause, matching the adapter's duty to be idempotent under
// retry (a retried write must not create a duplicate node).
func buildCreateMemory(id string, props map[string]interface{}) (string, map[string]interface{}) {
	stmt := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $props RETURN n", memoryLabel)
	return stmt, map[string]interface{}{"id": id, "props": props}
}

func buildUpdateMemory(id string, props map[string]interface{}) (string, map[string]interface{}) {
	stmt := fmt.Sprintf("MATCH (n:%s {id: $id}) SET n += $props RETURN n", memoryLabel)
	return stmt, map[string]interface{}{"id": id, "props": props}
}

func buildDeleteMemory(id string) (string, map[string]interface{}) {
	stmt := fmt.Sprintf("MATCH (n:%s {id: $id}) DETACH DELETE n", memoryLabel)
	return stmt, map[string]interface{}{"id": id}
}

// buildCreateRelationship renders `MATCH ... MERGE (a)-[r:TYPE]->(b) SET
// r += $props`. The type name is validated and interpolated (canonical
// dialect has no parameter slot for edge labels); properties stay
// parameterized.
func buildCreateRelationship(from, to string, relType domain.RelationshipType, props map[string]interface{}) (string, map[string]interface{}, error) {
	name, err := typeNameOrDie(relType)
	if err != nil {
		return "", nil, err
	}
	stmt := fmt.Sprintf(
		"MATCH (a:%s {id: $from}), (b:%s {id: $to}) MERGE (a)-[r:%s]->(b) SET r += $props RETURN r",
		memoryLabel, memoryLabel, name,
	)
	return stmt, map[string]interface{}{"from": from, "to": to, "props": props}, nil
}

func buildUpdateRelationshipProperties(from, to string, relType domain.RelationshipType, props map[string]interface{}) (string, map[string]interface{}, error) {
	name, err := typeNameOrDie(relType)
	if err != nil {
		return "", nil, err
	}
	stmt := fmt.Sprintf(
		"MATCH (a:%s {id: $from})-[r:%s]->(b:%s {id: $to}) SET r += $props RETURN r",
		memoryLabel, name, memoryLabel,
	)
	return stmt, map[string]interface{}{"from": from, "to": to, "props": props}, nil
}

// buildRelatedMemories renders the 1..depth variable-length expansion with an
// optional type filter (§4.2): `MATCH (n)-[r:T1|T2*1..depth]-(m) RETURN r, m`.
// Direction is undirected per the "related" contract; callers distinguish
// the edge's own from/to fields on the returned relationship.
func buildRelatedMemories(id string, types []domain.RelationshipType, depth int) (string, map[string]interface{}, error) {
	if depth < 1 {
		depth = 1
	}
	typeFilter := ""
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			name, err := typeNameOrDie(t)
			if err != nil {
				return "", nil, err
			}
			names = append(names, name)
		}
		typeFilter = ":" + strings.Join(names, "|")
	}
	stmt := fmt.Sprintf(
		"MATCH (n:%s {id: $id})-[r%s*1..%d]-(m:%s) RETURN r, m",
		memoryLabel, typeFilter, depth, memoryLabel,
	)
	return stmt, map[string]interface{}{"id": id}, nil
}

// filterBuilder renders the conjunctive WHERE clause for a MemoryFilters
// predicate set, using CONTAINS for substring matching and the IN operator
// for list membership, per §4.2's dialect surface.
type filterBuilder struct {
	clauses []string
	params  map[string]interface{}
	n       int
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{params: map[string]interface{}{}}
}

func (fb *filterBuilder) param(v interface{}) string {
	fb.n++
	key := fmt.Sprintf("p%d", fb.n)
	fb.params[key] = v
	return "$" + key
}

func (fb *filterBuilder) add(clause string) { fb.clauses = append(fb.clauses, clause) }

func (fb *filterBuilder) where() string {
	if len(fb.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(fb.clauses, " AND ")
}

// buildSearchMemories renders the canonical search statement: a label match
// plus a conjunctive WHERE over project path, tag membership (ANY/IN), and
// term containment, ordered by importance desc then created_at desc, with
// LIMIT/SKIP for pagination.
func buildSearchMemories(projectPath string, tags []string, terms []string, limit, offset int) (string, map[string]interface{}) {
	fb := newFilterBuilder()
	if projectPath != "" {
		fb.add("n.context_project_path = " + fb.param(projectPath))
	}
	if len(tags) > 0 {
		fb.add("ANY(t IN $tags WHERE t IN n.tags)")
		fb.params["tags"] = tags
	}
	for _, term := range terms {
		fb.add(fmt.Sprintf("(n.title CONTAINS %[1]s OR n.content CONTAINS %[1]s)", fb.param(term)))
	}
	stmt := fmt.Sprintf(
		"MATCH (n:%s)%s RETURN n ORDER BY n.importance DESC, n.created_at DESC SKIP %d LIMIT %d",
		memoryLabel, fb.where(), offset, limit,
	)
	return stmt, fb.params
}

// buildStatistics renders the aggregate statement used by
// get_memory_statistics: COUNT/AVG over the node set.
func buildStatistics() string {
	return fmt.Sprintf(
		"MATCH (n:%s) RETURN COUNT(n) AS total, AVG(n.importance) AS avg_importance, AVG(n.confidence) AS avg_confidence",
		memoryLabel,
	)
}

func buildRelationshipCount() string {
	return "MATCH ()-[r]->() RETURN COUNT(r) AS total"
}

// schemaStatements are the dialect's idempotent startup DDL. A full-text
// index statement with no equivalent on a given server is rewritten to a
// no-op (§4.4 point 3); constraint creation failures are demoted to warnings
// by the caller rather than treated here, since that decision depends on the
// specific error text a given server returns.
var schemaStatements = []string{
	fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", memoryLabel),
	fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.context_project_path)", memoryLabel),
}

// fulltextIndexStatement is rewritten to a no-op when the target server
// lacks full-text index DDL (§4.4 point 3): InitializeSchema treats any
// error from this statement as non-fatal, logs a warning, and continues.
const fulltextIndexStatement = "CALL db.index.fulltext.createNodeIndex('memoryFulltext', ['Memory'], ['title', 'content'])"

// idempotentStartupError reports whether err text looks like the
// "already exists" / "not supported" shape that startup treats as a warning
// rather than a fatal error, matching §4.4 point 3's idempotency rule.
func idempotentStartupError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "not supported") || strings.Contains(msg, "unsupported")
}
