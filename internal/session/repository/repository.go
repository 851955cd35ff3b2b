package repository

import (
	"context"
	"time"

	"session-lifecycle-manager/internal/session/domain"
)

// Repository defines persistence for sessions. Every state transition is a conditional
// update on is_active so that concurrent sweeps and revocations commute.
type Repository interface {
	// Upsert inserts s, or updates the active row with the same (user_id, credential_hash).
	// Inactive rows are terminal and never reactivated; a new row is inserted instead.
	// Returns the stored row (its ID is the existing one on update).
	Upsert(ctx context.Context, s *domain.Session) (*domain.Session, error)
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindActiveByUserAndCredentialHash returns the active session for the credential, or nil.
	FindActiveByUserAndCredentialHash(ctx context.Context, userID, credentialHash string) (*domain.Session, error)
	// ListActiveByUser returns active sessions for the user ordered by last activity, newest first.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// UpdateLastActivity sets last_activity_at for an active session.
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
	// MarkInactive deactivates the session if it belongs to userID and is active.
	// Returns true only when this call performed the transition.
	MarkInactive(ctx context.Context, id, userID string, revokedAt time.Time) (bool, error)
	// MarkAllInactiveForUser deactivates all active sessions of userID except exceptID (if non-empty)
	// in one statement. Returns the number of rows transitioned.
	MarkAllInactiveForUser(ctx context.Context, userID, exceptID string, revokedAt time.Time) (int64, error)
	// SweepExpired deactivates every active session with expires_at <= now, setting revoked_at = now.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
