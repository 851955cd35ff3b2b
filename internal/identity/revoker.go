package identity

import (
	"context"
	"sync"
	"time"
)

// Revoker keeps token ids (jti) that must be refused until the token would have expired anyway.
type Revoker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// NoOpRevoker never revokes anything.
type NoOpRevoker struct{}

func (NoOpRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) { return false, nil }

func (NoOpRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error { return nil }

// MemoryRevoker is an in-process Revoker. Entries are dropped lazily once expired.
type MemoryRevoker struct {
	mu   sync.Mutex
	m    map[string]time.Time
	nowF func() time.Time
}

// NewMemoryRevoker returns an empty MemoryRevoker.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{m: make(map[string]time.Time), nowF: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.m[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(r.nowF()) {
		delete(r.m, jti)
		return false, nil
	}
	return true, nil
}

func (r *MemoryRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" || !expiresAt.After(r.nowF()) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[jti] = expiresAt
	return nil
}
