package domain

import "time"

// Session lifecycle actions recorded in the audit trail.
const (
	ActionSessionCreated  = "session_created"
	ActionSessionRevoked  = "session_revoked"
	ActionSessionsRevoked = "sessions_revoked"
	ActionSessionExpired  = "session_expired"
	// ActionLogout carries the reason (explicit, inactivity, ...) in its metadata.
	ActionLogout = "logout"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	UserID    string
	SessionID string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
