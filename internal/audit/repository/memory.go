package repository

import (
	"context"
	"sort"
	"sync"

	"session-lifecycle-manager/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	cp := *a
	r.mu.Lock()
	r.entries = append(r.entries, &cp)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range r.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
