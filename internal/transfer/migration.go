package transfer

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/repository"
)

// MigrationOptions controls optional phases of Migrate.
type MigrationOptions struct {
	DryRun            bool
	Verify            bool
	RollbackOnFailure bool
	Verbose           bool
	SampleSize        int // defaults to 10
}

// MigrationResult summarizes the outcome of a migration run.
type MigrationResult struct {
	ExportedMemories      int
	ExportedRelationships int
	Imported              ImportResult
	Warnings              []string
	RolledBack            bool
}

// progress reports (current, total) when verbose, per §4.6's migration
// manager wording.
func progress(verbose bool, current, total int, phase string) {
	if verbose {
		log.Info("migration progress", "phase", phase, "current", current, "total", total)
	}
}

// Migrate runs the six-phase migration manager (§4.6): validate source,
// validate target, check compatibility, export, validate export, import
// (skipped under dry_run), then an optional verify-with-rollback phase, and
// cleanup. Each phase aborts the overall operation on a fatal error.
func Migrate(ctx context.Context, source, target *repository.Repository, opts MigrationOptions) (MigrationResult, error) {
	var result MigrationResult
	if opts.SampleSize <= 0 {
		opts.SampleSize = 10
	}

	// Phase 1: validate source.
	progress(opts.Verbose, 1, 8, "validate source")
	srcHealth, err := source.Backend().HealthCheck(ctx)
	if err != nil || !srcHealth.Connected {
		return result, domain.NewError(domain.KindBackendUnavailable, "source backend is not healthy", nil)
	}
	srcStats, err := source.Backend().GetMemoryStatistics(ctx)
	if err != nil {
		return result, fmt.Errorf("migration: read source statistics: %w", err)
	}
	if srcStats.TotalMemories == 0 {
		result.Warnings = append(result.Warnings, "source is empty")
		log.Warn("migration source is empty")
	}

	// Phase 2: validate target.
	progress(opts.Verbose, 2, 8, "validate target")
	tgtHealth, err := target.Backend().HealthCheck(ctx)
	if err != nil || !tgtHealth.Connected {
		return result, domain.NewError(domain.KindBackendUnavailable, "target backend is not reachable", nil)
	}
	tgtStats, err := target.Backend().GetMemoryStatistics(ctx)
	if err != nil {
		return result, fmt.Errorf("migration: read target statistics: %w", err)
	}
	if tgtStats.TotalMemories > 0 {
		result.Warnings = append(result.Warnings, "target already has data; migration is additive")
		log.Warn("migration target already has data, proceeding additively")
	}

	// Phase 3: check compatibility. Every backend implements the same
	// contract (§4.1); the only warning is identical source/target types.
	progress(opts.Verbose, 3, 8, "check compatibility")
	if source.Backend().Name() == target.Backend().Name() {
		result.Warnings = append(result.Warnings, "source and target backend types are identical")
	}

	// Phase 4: export.
	progress(opts.Verbose, 4, 8, "export")
	dir, err := tempExportDir()
	if err != nil {
		return result, fmt.Errorf("migration: create temp export directory: %w", err)
	}
	defer cleanup(dir)

	env, err := Export(ctx, source, source.Backend().Name())
	if err != nil {
		return result, fmt.Errorf("migration: export failed: %w", err)
	}
	exportPath := exportFilePath(dir)
	if err := WriteTo(env, dir, exportPath); err != nil {
		return result, fmt.Errorf("migration: write export: %w", err)
	}
	result.ExportedMemories = env.MemoryCount
	result.ExportedRelationships = env.RelationshipCount

	// Phase 5: validate export.
	progress(opts.Verbose, 5, 8, "validate export")
	reloaded, err := ReadFrom(exportPath)
	if err != nil {
		return result, fmt.Errorf("migration: validate export: re-read failed: %w", err)
	}
	warnings, err := ValidateEnvelope(reloaded)
	if err != nil {
		return result, fmt.Errorf("migration: export validation failed: %w", err)
	}
	result.Warnings = append(result.Warnings, warnings...)

	if opts.DryRun {
		return result, nil
	}

	// Phase 6: import.
	progress(opts.Verbose, 6, 8, "import")
	importResult, err := Import(ctx, target, reloaded, ImportOptions{SkipDuplicates: true})
	if err != nil {
		return result, fmt.Errorf("migration: import failed: %w", err)
	}
	result.Imported = importResult

	// Phase 7: verify (optional), with rollback on mismatch.
	if opts.Verify {
		progress(opts.Verbose, 7, 8, "verify")
		if err := verify(ctx, source, target, env, opts.SampleSize); err != nil {
			if opts.RollbackOnFailure {
				log.Warn("migration verification failed, rolling back target", "error", err)
				if rbErr := rollback(ctx, target, env); rbErr != nil {
					return result, fmt.Errorf("migration: verification failed (%v) and rollback failed: %w", err, rbErr)
				}
				result.RolledBack = true
			}
			return result, fmt.Errorf("migration: verification failed: %w", err)
		}
	}

	// Phase 8: cleanup.
	progress(opts.Verbose, 8, 8, "cleanup")
	return result, nil
}

// verify compares counts and a random sample of up to sampleSize memories
// by content equality between source and target.
func verify(ctx context.Context, source, target *repository.Repository, env *Envelope, sampleSize int) error {
	srcStats, err := source.Backend().GetMemoryStatistics(ctx)
	if err != nil {
		return fmt.Errorf("read source statistics: %w", err)
	}
	tgtStats, err := target.Backend().GetMemoryStatistics(ctx)
	if err != nil {
		return fmt.Errorf("read target statistics: %w", err)
	}
	if tgtStats.TotalMemories < srcStats.TotalMemories {
		return fmt.Errorf("memory count mismatch: source has at least %d, target has %d", srcStats.TotalMemories, tgtStats.TotalMemories)
	}

	ids := sampleIDs(env.Memories, sampleSize)
	for _, id := range ids {
		srcMem, err := source.GetMemory(ctx, id)
		if err != nil {
			return fmt.Errorf("read source memory %s: %w", id, err)
		}
		tgtMem, err := target.GetMemory(ctx, id)
		if err != nil {
			return fmt.Errorf("read target memory %s: %w", id, err)
		}
		if srcMem == nil || tgtMem == nil {
			return fmt.Errorf("memory %s missing from source or target after migration", id)
		}
		if srcMem.Title != tgtMem.Title || srcMem.Content != tgtMem.Content {
			return fmt.Errorf("content mismatch for memory %s", id)
		}
	}
	return nil
}

func sampleIDs(memories []MemoryRecord, n int) []string {
	if len(memories) <= n {
		ids := make([]string, len(memories))
		for i, m := range memories {
			ids[i] = m.ID
		}
		return ids
	}
	idx := rand.Perm(len(memories))[:n]
	ids := make([]string, n)
	for i, j := range idx {
		ids[i] = memories[j].ID
	}
	return ids
}

// rollback calls the target backend's clear_all_data if available; if the
// backend signals UnsupportedQuery instead, every memory fetched from the
// target export is deleted individually (relationships cascade), per §4.6
// step 7.
func rollback(ctx context.Context, target *repository.Repository, env *Envelope) error {
	err := target.Backend().ClearAllData(ctx)
	if err == nil {
		return nil
	}
	if !domain.IsKind(err, domain.KindUnsupportedQuery) {
		return err
	}
	for _, m := range env.Memories {
		if _, delErr := target.DeleteMemory(ctx, m.ID); delErr != nil {
			return fmt.Errorf("rollback: delete memory %s: %w", m.ID, delErr)
		}
	}
	return nil
}

func cleanup(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.Remove(dir + string(os.PathSeparator) + e.Name())
	}
	os.Remove(dir)
}
