package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"session-lifecycle-manager/internal/audit/domain"
)

// PostgresRepository persists audit logs in the audit_logs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an audit log repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, session_id, action, ip, metadata, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7)`,
		a.ID, a.UserID, a.SessionID, a.Action, a.IP, a.Metadata, a.CreatedAt)
	return err
}

// ListByUser returns up to limit entries for userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(user_id, ''), COALESCE(session_id, ''), action, ip, COALESCE(metadata, ''), created_at
		FROM audit_logs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditLog, error) {
		var a domain.AuditLog
		err := row.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt)
		return &a, err
	})
}
