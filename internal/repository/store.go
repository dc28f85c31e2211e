package repository

import (
	"context"

	"github.com/kgstore/kgstore/internal/domain"
)

// StoreMemory checks that title and content are present and the type is
// valid, then persists via the backend's upsert (§4.5.1), whose Prepare and
// Validate assign an id if missing, refresh updated_at, normalize tags and
// clamp numeric fields. Checking here lets the repository fail fast before
// the backend is reached.
func (r *Repository) StoreMemory(ctx context.Context, m *domain.Memory) (string, error) {
	if m.Title == "" {
		return "", domain.NewError(domain.KindValidation, "title is required", nil)
	}
	if m.Content == "" {
		return "", domain.NewError(domain.KindValidation, "content is required", nil)
	}
	if !domain.IsValidMemoryType(string(m.Type)) {
		return "", domain.NewError(domain.KindValidation, "invalid memory type: "+string(m.Type), nil)
	}
	return r.backend.StoreMemory(ctx, m)
}

// UpdateMemory updates an existing Memory; returns false when absent.
func (r *Repository) UpdateMemory(ctx context.Context, m *domain.Memory) (bool, error) {
	if m.ID == "" {
		return false, domain.NewError(domain.KindValidation, "id is required for update", nil)
	}
	return r.backend.UpdateMemory(ctx, m)
}
