package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"session-lifecycle-manager/internal/session/domain"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.Session
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.IsActive && existing.UserID == s.UserID && existing.CredentialHash == s.CredentialHash {
			existing.RefreshCredentialHash = s.RefreshCredentialHash
			existing.Device = s.Device
			existing.IsRemembered = s.IsRemembered
			existing.ExpiresAt = s.ExpiresAt
			existing.LastActivityAt = s.LastActivityAt
			return copySession(existing), nil
		}
	}
	stored := copySession(s)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.IsActive = true
	stored.RevokedAt = nil
	r.byID[stored.ID] = stored
	return copySession(stored), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (r *MemoryRepository) FindActiveByUserAndCredentialHash(ctx context.Context, userID, credentialHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.IsActive && s.UserID == userID && s.CredentialHash == credentialHash {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Session, 0)
	for _, s := range r.byID {
		if s.IsActive && s.UserID == userID {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok && s.IsActive {
		s.LastActivityAt = at
	}
	return nil
}

func (r *MemoryRepository) MarkInactive(ctx context.Context, id, userID string, revokedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.UserID != userID || !s.IsActive {
		return false, nil
	}
	deactivate(s, revokedAt)
	return true, nil
}

func (r *MemoryRepository) MarkAllInactiveForUser(ctx context.Context, userID, exceptID string, revokedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.byID {
		if s.UserID != userID || !s.IsActive || (exceptID != "" && s.ID == exceptID) {
			continue
		}
		deactivate(s, revokedAt)
		n++
	}
	return n, nil
}

func (r *MemoryRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.byID {
		if s.IsActive && s.ExpiredAt(now) {
			deactivate(s, now)
			n++
		}
	}
	return n, nil
}

func deactivate(s *domain.Session, at time.Time) {
	t := at
	s.IsActive = false
	s.RevokedAt = &t
}

func copySession(s *domain.Session) *domain.Session {
	c := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}
