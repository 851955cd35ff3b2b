package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"session-lifecycle-manager/internal/session/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	credential_hash         TEXT NOT NULL,
	refresh_credential_hash TEXT NOT NULL DEFAULT '',
	user_agent              TEXT NOT NULL DEFAULT '',
	ip_address              TEXT NOT NULL DEFAULT '',
	device_type             TEXT NOT NULL DEFAULT 'desktop',
	browser                 TEXT NOT NULL DEFAULT '',
	os                      TEXT NOT NULL DEFAULT '',
	is_remembered           INTEGER NOT NULL DEFAULT 0,
	expires_at              INTEGER NOT NULL,
	last_activity_at        INTEGER NOT NULL,
	created_at              INTEGER NOT NULL,
	revoked_at              INTEGER,
	is_active               INTEGER NOT NULL DEFAULT 1
);
CREATE UNIQUE INDEX IF NOT EXISTS sessions_active_credential_idx ON sessions (user_id, credential_hash) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS sessions_user_activity_idx ON sessions (user_id, last_activity_at);
CREATE INDEX IF NOT EXISTS sessions_expires_idx ON sessions (expires_at);
`

// SQLiteRepository persists sessions in a local SQLite database. Timestamps are stored as
// Unix nanoseconds so that range comparisons in SQL are exact.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping verifies the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 1)
		ON CONFLICT (user_id, credential_hash) WHERE is_active = 1
		DO UPDATE SET
			refresh_credential_hash = excluded.refresh_credential_hash,
			user_agent = excluded.user_agent,
			ip_address = excluded.ip_address,
			device_type = excluded.device_type,
			browser = excluded.browser,
			os = excluded.os,
			is_remembered = excluded.is_remembered,
			expires_at = excluded.expires_at,
			last_activity_at = excluded.last_activity_at
		RETURNING `+sessionColumns,
		id, s.UserID, s.CredentialHash, s.RefreshCredentialHash, s.Device.UserAgent, s.Device.IPAddress,
		string(s.Device.DeviceType), s.Device.Browser, s.Device.OS, s.IsRemembered,
		s.ExpiresAt.UnixNano(), s.LastActivityAt.UnixNano(), s.CreatedAt.UnixNano(),
	)
	return scanSQLiteSession(row)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSQLiteSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SQLiteRepository) FindActiveByUserAndCredentialHash(ctx context.Context, userID, credentialHash string) (*domain.Session, error) {
	s, err := scanSQLiteSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND credential_hash = ? AND is_active = 1`,
		userID, credentialHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SQLiteRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND is_active = 1 ORDER BY last_activity_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_activity_at = ? WHERE id = ? AND is_active = 1`, at.UnixNano(), id)
	return err
}

func (r *SQLiteRepository) MarkInactive(ctx context.Context, id, userID string, revokedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = 0, revoked_at = ? WHERE id = ? AND user_id = ? AND is_active = 1`,
		revokedAt.UnixNano(), id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *SQLiteRepository) MarkAllInactiveForUser(ctx context.Context, userID, exceptID string, revokedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = 0, revoked_at = ? WHERE user_id = ? AND is_active = 1 AND (? = '' OR id <> ?)`,
		revokedAt.UnixNano(), userID, exceptID, exceptID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n := now.UnixNano()
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = 0, revoked_at = ? WHERE is_active = 1 AND expires_at <= ?`, n, n)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row sqlScanner) (*domain.Session, error) {
	var s domain.Session
	var deviceType string
	var expiresAt, lastActivityAt, createdAt int64
	var revokedAt sql.NullInt64
	err := row.Scan(
		&s.ID, &s.UserID, &s.CredentialHash, &s.RefreshCredentialHash,
		&s.Device.UserAgent, &s.Device.IPAddress, &deviceType, &s.Device.Browser, &s.Device.OS,
		&s.IsRemembered, &expiresAt, &lastActivityAt, &createdAt, &revokedAt, &s.IsActive,
	)
	if err != nil {
		return nil, err
	}
	s.Device.DeviceType = domain.DeviceType(deviceType)
	s.ExpiresAt = fromUnixNano(expiresAt)
	s.LastActivityAt = fromUnixNano(lastActivityAt)
	s.CreatedAt = fromUnixNano(createdAt)
	if revokedAt.Valid {
		t := fromUnixNano(revokedAt.Int64)
		s.RevokedAt = &t
	}
	return &s, nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
