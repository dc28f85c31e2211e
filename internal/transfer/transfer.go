// Package transfer implements the universal export/import format and the
// backend-to-backend migration manager (C8): format version 2.0 (§4.6),
// paginated dedup export, validated import, a Markdown export sibling, and a
// six-phase migration manager with verification and rollback.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/logging"
	"github.com/kgstore/kgstore/internal/repository"
)

var log = logging.GetLogger("transfer")

const formatVersion = "2.0"

const exportPageSize = 1000

// MemoryRecord is one memory in the export envelope.
type MemoryRecord struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Summary       string          `json:"summary,omitempty"`
	Tags          []string        `json:"tags"`
	Importance    float64         `json:"importance"`
	Confidence    float64         `json:"confidence"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Context       *domain.Context `json:"context,omitempty"`
}

// RelationshipRecord is one relationship in the export envelope.
type RelationshipRecord struct {
	FromMemoryID string                         `json:"from_memory_id"`
	ToMemoryID   string                         `json:"to_memory_id"`
	Type         string                         `json:"type"`
	Properties   domain.RelationshipProperties  `json:"properties"`
}

// Envelope is the universal export format, version 2.0 (§4.6/§6.1).
type Envelope struct {
	FormatVersion      string                `json:"format_version"`
	ExportDate         time.Time             `json:"export_date"`
	BackendType        string                `json:"backend_type"`
	MemoryCount        int                   `json:"memory_count"`
	RelationshipCount  int                   `json:"relationship_count"`
	Memories           []MemoryRecord        `json:"memories"`
	Relationships      []RelationshipRecord  `json:"relationships"`
}

func toMemoryRecord(m domain.Memory) MemoryRecord {
	return MemoryRecord{
		ID: m.ID, Type: string(m.Type), Title: m.Title, Content: m.Content, Summary: m.Summary,
		Tags: m.Tags, Importance: m.Importance, Confidence: m.Confidence,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Context: m.Context,
	}
}

func fromMemoryRecord(r MemoryRecord) *domain.Memory {
	return &domain.Memory{
		ID: r.ID, Type: domain.MemoryType(r.Type), Title: r.Title, Content: r.Content, Summary: r.Summary,
		Tags: r.Tags, Importance: r.Importance, Confidence: r.Confidence,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Context: r.Context,
	}
}

type relKey struct {
	from, to string
	typ      domain.RelationshipType
}

// Export streams every memory in pages of 1000 via paginated search, then
// collects relationships by calling get_related_memories(id, max_depth=1)
// per memory (fetched with bounded parallelism via errgroup), deduplicating
// by (from, to, type) (§4.6's export algorithm).
func Export(ctx context.Context, repo *repository.Repository, backendType string) (*Envelope, error) {
	var memories []domain.Memory
	offset := 0
	for {
		page, err := repo.Backend().SearchMemoriesPaginated(ctx, backend.MemoryFilters{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("export: fetch memory page at offset %d: %w", offset, err)
		}
		memories = append(memories, page.Results...)
		if len(page.Results) == 0 || !page.HasMore {
			break
		}
		offset = *page.NextOffset
	}

	relByKey := make(map[relKey]domain.Relationship)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, m := range memories {
		m := m
		g.Go(func() error {
			related, err := repo.Backend().GetRelatedMemories(gctx, m.ID, nil, 1)
			if err != nil {
				return fmt.Errorf("export: related memories for %s: %w", m.ID, err)
			}
			mu.Lock()
			for _, rm := range related {
				key := relKey{from: rm.Relationship.FromMemoryID, to: rm.Relationship.ToMemoryID, typ: rm.Relationship.Type}
				relByKey[key] = rm.Relationship
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	env := &Envelope{
		FormatVersion: formatVersion,
		ExportDate:    time.Now().UTC(),
		BackendType:   backendType,
		MemoryCount:   len(memories),
	}
	for _, m := range memories {
		env.Memories = append(env.Memories, toMemoryRecord(m))
	}
	for _, rel := range relByKey {
		env.Relationships = append(env.Relationships, RelationshipRecord{
			FromMemoryID: rel.FromMemoryID, ToMemoryID: rel.ToMemoryID, Type: string(rel.Type), Properties: rel.Properties,
		})
	}
	env.RelationshipCount = len(env.Relationships)
	return env, nil
}

// WriteTo writes the envelope to a temp file in dir and atomically renames
// it into place at path, per §4.6's "write-once to a temporary file,
// atomically moved into place".
func WriteTo(env *Envelope, dir, path string) error {
	tmp, err := os.CreateTemp(dir, "export-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpPath := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write export envelope: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp export file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("move export file into place: %w", err)
	}
	return nil
}

// ReadFrom loads and JSON-decodes an envelope from path.
func ReadFrom(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse export file: %w", err)
	}
	return &env, nil
}

// ValidateEnvelope checks the envelope has the required fields and version
// information present, and that there are no duplicate memory ids; a
// relationship endpoint missing from the document is a warning, not an
// error (§4.6's import algorithm, validation step).
func ValidateEnvelope(env *Envelope) (warnings []string, err error) {
	if env.FormatVersion == "" {
		return nil, domain.NewError(domain.KindValidation, "missing format_version", nil)
	}
	if env.MemoryCount < 0 {
		return nil, domain.NewError(domain.KindValidation, "memory_count must be non-negative", nil)
	}
	seen := make(map[string]struct{}, len(env.Memories))
	for _, m := range env.Memories {
		if m.ID == "" {
			return nil, domain.NewError(domain.KindValidation, "memory record missing id", nil)
		}
		if _, ok := seen[m.ID]; ok {
			return nil, domain.NewError(domain.KindValidation, "duplicate memory id in export document: "+m.ID, nil)
		}
		seen[m.ID] = struct{}{}
	}
	for _, r := range env.Relationships {
		if _, ok := seen[r.FromMemoryID]; !ok {
			warnings = append(warnings, fmt.Sprintf("relationship endpoint %s not present in document", r.FromMemoryID))
		}
		if _, ok := seen[r.ToMemoryID]; !ok {
			warnings = append(warnings, fmt.Sprintf("relationship endpoint %s not present in document", r.ToMemoryID))
		}
	}
	return warnings, nil
}

// ImportOptions controls the import algorithm's duplicate handling.
type ImportOptions struct {
	SkipDuplicates bool
}

// ImportResult reports what Import actually did.
type ImportResult struct {
	MemoriesInserted      int
	MemoriesSkipped       int
	RelationshipsInserted int
	RelationshipsSkipped  int
}

// Import inserts memories first, then relationships only after both
// endpoints exist in the target; a missing endpoint skips that one
// relationship with a log line rather than failing the whole import
// (§4.6's import algorithm).
func Import(ctx context.Context, repo *repository.Repository, env *Envelope, opts ImportOptions) (ImportResult, error) {
	var result ImportResult
	present := make(map[string]bool, len(env.Memories))

	for _, mr := range env.Memories {
		if opts.SkipDuplicates {
			existing, err := repo.GetMemory(ctx, mr.ID)
			if err != nil {
				return result, fmt.Errorf("import: check existing memory %s: %w", mr.ID, err)
			}
			if existing != nil {
				result.MemoriesSkipped++
				present[mr.ID] = true
				continue
			}
		}
		m := fromMemoryRecord(mr)
		if _, err := repo.Backend().StoreMemory(ctx, m); err != nil {
			return result, fmt.Errorf("import: store memory %s: %w", mr.ID, err)
		}
		present[mr.ID] = true
		result.MemoriesInserted++
	}

	for _, rr := range env.Relationships {
		if !present[rr.FromMemoryID] || !present[rr.ToMemoryID] {
			log.Warn("skipping relationship with missing endpoint", "from", rr.FromMemoryID, "to", rr.ToMemoryID, "type", rr.Type)
			result.RelationshipsSkipped++
			continue
		}
		rel := &domain.Relationship{
			FromMemoryID: rr.FromMemoryID, ToMemoryID: rr.ToMemoryID,
			Type: domain.RelationshipType(rr.Type), Properties: rr.Properties,
		}
		if _, err := repo.CreateRelationship(ctx, rel); err != nil {
			log.Warn("skipping relationship that failed to create", "from", rr.FromMemoryID, "to", rr.ToMemoryID, "error", err)
			result.RelationshipsSkipped++
			continue
		}
		result.RelationshipsInserted++
	}
	return result, nil
}

// tempExportDir creates a fresh temp directory under the OS default
// location, for callers (the migration manager) that need an isolated
// export destination.
func tempExportDir() (string, error) {
	return os.MkdirTemp("", "kgstore-migration-*")
}

func exportFilePath(dir string) string {
	return filepath.Join(dir, "export.json")
}
