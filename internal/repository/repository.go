// Package repository implements the memory repository (C5): the
// backend-agnostic CRUD, search, enrichment, and activity-summary layer the
// tool dispatcher calls into. It delegates persistence to whichever backend
// (C3 or C4) the factory constructed, and calls the fuzzy matcher (C7) and
// traversal kernel (C6) synchronously for text and graph queries.
package repository

import (
	"context"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/logging"
)

var log = logging.GetLogger("repository")

// Repository is the backend-agnostic facade over a Backend (§4.5).
type Repository struct {
	backend backend.Backend
}

// New constructs a Repository over an already-connected backend.
func New(b backend.Backend) *Repository {
	return &Repository{backend: b}
}

// Backend exposes the underlying backend for callers (migration, health
// checks) that need it directly.
func (r *Repository) Backend() backend.Backend { return r.backend }

// GetMemory returns the Memory with the given id, or nil if absent.
func (r *Repository) GetMemory(ctx context.Context, id string) (*domain.Memory, error) {
	if id == "" {
		return nil, domain.NewError(domain.KindValidation, "id is required", nil)
	}
	return r.backend.GetMemory(ctx, id)
}

// DeleteMemory removes a Memory; relationships with either endpoint equal to
// id cascade (invariant 3).
func (r *Repository) DeleteMemory(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, domain.NewError(domain.KindValidation, "id is required", nil)
	}
	return r.backend.DeleteMemory(ctx, id)
}
