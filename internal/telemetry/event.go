package telemetry

import "time"

// Session lifecycle event types.
const (
	EventSessionCreated   = "session.created"
	EventSessionRevoked   = "session.revoked"
	EventSessionsRevoked  = "session.revoked_others"
	EventSessionExpired   = "session.expired"
	EventLogout           = "session.logout"
	EventRememberRestored = "session.remember_restored"
	EventRememberStale    = "session.remember_stale"
)

// Event is one session lifecycle event.
type Event struct {
	Type      string
	UserID    string
	SessionID string
	Source    string
	// Metadata is an optional JSON document.
	Metadata  []byte
	CreatedAt time.Time
}
