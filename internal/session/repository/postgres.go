package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"session-lifecycle-manager/internal/session/domain"
)

const sessionColumns = `id, user_id, credential_hash, refresh_credential_hash, user_agent, ip_address,
	device_type, browser, os, is_remembered, expires_at, last_activity_at, created_at, revoked_at, is_active`

// PostgresRepository persists sessions in Postgres through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns a session repository that uses pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert inserts the session or refreshes the active row for the same credential.
func (r *PostgresRepository) Upsert(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL, TRUE)
		ON CONFLICT (user_id, credential_hash) WHERE is_active
		DO UPDATE SET
			refresh_credential_hash = EXCLUDED.refresh_credential_hash,
			user_agent = EXCLUDED.user_agent,
			ip_address = EXCLUDED.ip_address,
			device_type = EXCLUDED.device_type,
			browser = EXCLUDED.browser,
			os = EXCLUDED.os,
			is_remembered = EXCLUDED.is_remembered,
			expires_at = EXCLUDED.expires_at,
			last_activity_at = EXCLUDED.last_activity_at
		RETURNING `+sessionColumns,
		id, s.UserID, s.CredentialHash, s.RefreshCredentialHash, s.Device.UserAgent, s.Device.IPAddress,
		string(s.Device.DeviceType), s.Device.Browser, s.Device.OS, s.IsRemembered,
		s.ExpiresAt, s.LastActivityAt, s.CreatedAt,
	)
	return scanSession(row)
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// FindActiveByUserAndCredentialHash returns the active session for the credential hash, or nil.
func (r *PostgresRepository) FindActiveByUserAndCredentialHash(ctx context.Context, userID, credentialHash string) (*domain.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND credential_hash = $2 AND is_active`,
		userID, credentialHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListActiveByUser returns active sessions for the user, most recently active first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND is_active ORDER BY last_activity_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateLastActivity sets last_activity_at on an active session. Inactive rows are left untouched.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_activity_at = $2 WHERE id = $1 AND is_active`, id, at)
	return err
}

// MarkInactive revokes the session only if it is active and owned by userID.
func (r *PostgresRepository) MarkInactive(ctx context.Context, id, userID string, revokedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE, revoked_at = $3 WHERE id = $1 AND user_id = $2 AND is_active`,
		id, userID, revokedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkAllInactiveForUser revokes every active session of the user except exceptID, atomically.
func (r *PostgresRepository) MarkAllInactiveForUser(ctx context.Context, userID, exceptID string, revokedAt time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE, revoked_at = $3 WHERE user_id = $1 AND is_active AND ($2 = '' OR id <> $2)`,
		userID, exceptID, revokedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SweepExpired marks every active session past its absolute expiry as inactive.
func (r *PostgresRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE, revoked_at = $1 WHERE is_active AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var deviceType string
	err := row.Scan(
		&s.ID, &s.UserID, &s.CredentialHash, &s.RefreshCredentialHash,
		&s.Device.UserAgent, &s.Device.IPAddress, &deviceType, &s.Device.Browser, &s.Device.OS,
		&s.IsRemembered, &s.ExpiresAt, &s.LastActivityAt, &s.CreatedAt, &s.RevokedAt, &s.IsActive,
	)
	if err != nil {
		return nil, err
	}
	s.Device.DeviceType = domain.DeviceType(deviceType)
	return &s, nil
}
