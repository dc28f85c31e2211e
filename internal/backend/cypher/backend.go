// Package cypher implements the Cypher-capable backend adapter (C4): it maps
// the common backend contract (§4.1) onto a remote graph server speaking the
// canonical dialect (§4.2) over pooled, Bolt-style sessions, wrapped in a
// circuit breaker and retry policy (§5, §7).
package cypher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/circuitbreaker"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/logging"
)

var log = logging.GetLogger("backend.cypher")

// requestTimeout is the per-request deadline of §5: "the cloud-adapter
// backend enforces per-request timeouts (default 30s)".
const requestTimeout = 30 * time.Second

// Config holds the connection parameters for a remote Cypher-capable server.
type Config struct {
	DSN      string
	Username string
	Password string
	Pool     PoolConfig
}

// Backend adapts a Driver to the common backend.Backend contract.
type Backend struct {
	driver Driver
	cfg    Config
	pool   *pool
	cb     *circuitbreaker.Breaker
}

// New constructs an unconnected adapter around the given Driver
// implementation (a real Bolt/Cypher client wired in by the host
// application; see driver.go).
func New(driver Driver, cfg Config) *Backend {
	if cfg.Pool.MaxSize == 0 {
		cfg.Pool = DefaultPoolConfig()
	}
	return &Backend{
		driver: driver,
		cfg:    cfg,
		cb:     circuitbreaker.New(circuitbreaker.DefaultConfig("cypher-backend")),
	}
}

func (b *Backend) Name() string { return "cypher" }

func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{SupportsFulltextSearch: true, SupportsTransactions: true, IsCypherCapable: true}
}

// Connect verifies connectivity eagerly (§4.4 point 1) and initializes the
// connection pool; the pool itself dials lazily on first acquisition.
func (b *Backend) Connect(ctx context.Context) error {
	b.pool = newPool(b.driver, b.cfg.DSN, b.cfg.Username, b.cfg.Password, b.cfg.Pool)
	ps, err := b.pool.acquire(ctx)
	if err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "verify connectivity to remote graph server", err)
	}
	defer b.pool.release(ctx, ps, false)
	if err := ps.session.Ping(ctx); err != nil {
		return domain.Wrap(domain.KindBackendUnavailable, "ping remote graph server", err)
	}
	return b.InitializeSchema(ctx)
}

func (b *Backend) Disconnect(ctx context.Context) error {
	if b.pool != nil {
		b.pool.closeAll(ctx)
	}
	return nil
}

// InitializeSchema applies constraints idempotently, demoting "already
// exists"/"not supported" failures to warnings, then attempts the full-text
// index, treating an unsupported-DDL response as a no-op (§4.4 point 3).
func (b *Backend) InitializeSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := b.run(ctx, stmt, nil, true); err != nil {
			if idempotentStartupError(err) {
				log.Warn("schema statement not applied, continuing", "statement", stmt, "error", err)
				continue
			}
			return domain.Wrap(domain.KindSchemaError, "apply schema constraint", err)
		}
	}
	if _, err := b.run(ctx, fulltextIndexStatement, nil, true); err != nil {
		log.Warn("full-text index DDL unsupported by remote server, treating as no-op", "error", err)
	}
	return nil
}

func (b *Backend) HealthCheck(ctx context.Context) (backend.HealthStatus, error) {
	if b.pool == nil {
		return backend.HealthStatus{Connected: false, BackendName: b.Name()}, nil
	}
	ps, err := b.pool.acquire(ctx)
	if err != nil {
		return backend.HealthStatus{Connected: false, BackendName: b.Name()}, nil
	}
	pingErr := ps.session.Ping(ctx)
	b.pool.release(ctx, ps, pingErr != nil)
	if pingErr != nil {
		return backend.HealthStatus{Connected: false, BackendName: b.Name()}, nil
	}
	stats, err := b.GetMemoryStatistics(ctx)
	if err != nil {
		return backend.HealthStatus{Connected: true, BackendName: b.Name()}, nil
	}
	return backend.HealthStatus{
		Connected:   true,
		BackendName: b.Name(),
		Statistics: map[string]interface{}{
			"memory_count":       stats.TotalMemories,
			"relationship_count": stats.TotalRelationships,
		},
	}, nil
}

// run executes one statement through the pool, the circuit breaker, and the
// retry policy, enforcing the per-request timeout. Every backend call is
// cancellable per §5; a context cancellation surfaces as a transient error
// and never leaves a session checked out of the pool.
func (b *Backend) run(ctx context.Context, stmt string, params map[string]interface{}, write bool) ([]map[string]interface{}, error) {
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	result, err := b.cb.Call(rctx, func(ctx context.Context) (interface{}, error) {
		ps, err := b.pool.acquire(ctx)
		if err != nil {
			return nil, err
		}
		rows, runErr := ps.session.Run(ctx, stmt, params, write)
		broken := runErr != nil
		b.pool.release(ctx, ps, broken)
		if runErr != nil {
			return nil, domain.Wrap(domain.KindBackendUnavailable, "execute statement against remote graph server", runErr)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows, _ := result.([]map[string]interface{})
	return rows, nil
}

func (b *Backend) ExecuteQuery(ctx context.Context, q backend.Query) ([]backend.Record, error) {
	rows, err := b.run(ctx, q.Text, q.Parameters, q.Write)
	if err != nil {
		return nil, err
	}
	out := make([]backend.Record, len(rows))
	for i, r := range rows {
		out[i] = backend.Record(r)
	}
	return out, nil
}

func (b *Backend) StoreMemory(ctx context.Context, m *domain.Memory) (string, error) {
	m.Prepare(true)
	if err := m.Validate(); err != nil {
		return "", err
	}
	stmt, params := buildCreateMemory(m.ID, memoryToProps(m))
	if _, err := b.run(ctx, stmt, params, true); err != nil {
		return "", err
	}
	return m.ID, nil
}

func (b *Backend) GetMemory(ctx context.Context, id string) (*domain.Memory, error) {
	stmt, params := buildMatchByID(id)
	rows, err := b.run(ctx, stmt, params, false)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	node, _ := rows[0]["n"].(map[string]interface{})
	return memoryFromNode(node), nil
}

func (b *Backend) UpdateMemory(ctx context.Context, m *domain.Memory) (bool, error) {
	m.Prepare(false)
	if err := m.Validate(); err != nil {
		return false, err
	}
	stmt, params := buildUpdateMemory(m.ID, memoryToProps(m))
	rows, err := b.run(ctx, stmt, params, true)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (b *Backend) DeleteMemory(ctx context.Context, id string) (bool, error) {
	existing, err := b.GetMemory(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	stmt, params := buildDeleteMemory(id)
	if _, err := b.run(ctx, stmt, params, true); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) CreateRelationship(ctx context.Context, r *domain.Relationship) (string, error) {
	r.Prepare(true)
	if err := r.Validate(); err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	props := relPropsToMap(r.Properties)
	props["id"] = r.ID
	stmt, params, err := buildCreateRelationship(r.FromMemoryID, r.ToMemoryID, r.Type, props)
	if err != nil {
		return "", err
	}
	if _, err := b.run(ctx, stmt, params, true); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (b *Backend) UpdateRelationshipProperties(ctx context.Context, from, to string, relType domain.RelationshipType, props domain.RelationshipProperties) (bool, error) {
	stmt, params, err := buildUpdateRelationshipProperties(from, to, relType, relPropsToMap(props))
	if err != nil {
		return false, err
	}
	rows, err := b.run(ctx, stmt, params, true)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (b *Backend) GetRelatedMemories(ctx context.Context, id string, types []domain.RelationshipType, maxDepth int) ([]backend.RelatedMemory, error) {
	stmt, params, err := buildRelatedMemories(id, types, maxDepth)
	if err != nil {
		return nil, err
	}
	rows, err := b.run(ctx, stmt, params, false)
	if err != nil {
		return nil, err
	}
	out := make([]backend.RelatedMemory, 0, len(rows))
	for _, row := range rows {
		node, _ := row["m"].(map[string]interface{})
		edge, _ := row["r"].(map[string]interface{})
		if node == nil || edge == nil {
			continue
		}
		rel := domain.Relationship{
			ID:           asString(edge["id"]),
			FromMemoryID: asString(edge["from_id"]),
			ToMemoryID:   asString(edge["to_id"]),
			Type:         domain.RelationshipType(asString(edge["type"])),
			Properties:   relPropsFromMap(edge),
		}
		out = append(out, backend.RelatedMemory{Memory: *memoryFromNode(node), Relationship: rel})
	}
	return out, nil
}

func (b *Backend) SearchMemories(ctx context.Context, f backend.MemoryFilters) ([]domain.Memory, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	stmt, params := buildSearchMemories(f.ProjectPath, f.Tags, f.Terms, limit, f.Offset)
	rows, err := b.run(ctx, stmt, params, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Memory, 0, len(rows))
	for _, row := range rows {
		node, _ := row["n"].(map[string]interface{})
		if node == nil {
			continue
		}
		out = append(out, *memoryFromNode(node))
	}
	return out, nil
}

func (b *Backend) SearchMemoriesPaginated(ctx context.Context, f backend.MemoryFilters) (backend.PaginatedMemories, error) {
	results, err := b.SearchMemories(ctx, f)
	if err != nil {
		return backend.PaginatedMemories{}, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	hasMore := len(results) == limit
	page := backend.PaginatedMemories{Results: results, Limit: limit, Offset: f.Offset, HasMore: hasMore}
	if hasMore {
		next := f.Offset + limit
		page.NextOffset = &next
	}
	return page, nil
}

func (b *Backend) GetMemoryStatistics(ctx context.Context) (backend.Statistics, error) {
	rows, err := b.run(ctx, buildStatistics(), nil, false)
	if err != nil {
		return backend.Statistics{}, err
	}
	stats := backend.Statistics{MemoriesByType: map[domain.MemoryType]int{}}
	if len(rows) > 0 {
		stats.TotalMemories = asInt(rows[0]["total"])
		stats.AvgImportance = asFloat(rows[0]["avg_importance"])
		stats.AvgConfidence = asFloat(rows[0]["avg_confidence"])
	}
	relRows, err := b.run(ctx, buildRelationshipCount(), nil, false)
	if err != nil {
		return backend.Statistics{}, err
	}
	if len(relRows) > 0 {
		stats.TotalRelationships = asInt(relRows[0]["total"])
	}
	return stats, nil
}

func (b *Backend) ClearAllData(ctx context.Context) error {
	_, err := b.run(ctx, "MATCH (n) DETACH DELETE n", nil, true)
	return err
}
