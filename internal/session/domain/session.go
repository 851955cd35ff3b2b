package domain

import "time"

// DeviceType is the coarse device class derived from a user agent.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
)

// DeviceInfo describes the device/browser context a session was created from.
// Stored for display and audit only; never used for enforcement.
type DeviceInfo struct {
	UserAgent  string
	IPAddress  string
	DeviceType DeviceType
	Browser    string
	OS         string
}

// Session is one authenticated device/browser context for one user.
type Session struct {
	ID                    string
	UserID                string
	CredentialHash        string // SHA-256 of the access credential; never the raw token
	RefreshCredentialHash string // SHA-256 of the refresh credential
	Device                DeviceInfo
	IsRemembered          bool
	ExpiresAt             time.Time // fixed at creation; activity never moves it
	LastActivityAt        time.Time
	CreatedAt             time.Time
	RevokedAt             *time.Time // nil while active
	IsActive              bool
}

// State is the lifecycle state of a session.
type State string

const (
	StateMonitored  State = "active_monitored"
	StateRemembered State = "active_remembered"
	StateExpired    State = "expired"
	StateRevoked    State = "revoked"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateRevoked
}

// ExpiredAt reports whether the absolute expiry has been reached at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// State returns the lifecycle state at now. An inactive row whose revocation happened at or after
// its expiry is reported as expired; otherwise as revoked. An active row past its expiry is expired
// even before the sweep has marked it.
func (s *Session) State(now time.Time) State {
	if !s.IsActive {
		if s.RevokedAt != nil && !s.RevokedAt.Before(s.ExpiresAt) {
			return StateExpired
		}
		return StateRevoked
	}
	if s.ExpiredAt(now) {
		return StateExpired
	}
	if s.IsRemembered {
		return StateRemembered
	}
	return StateMonitored
}

// ComputeExpiry returns the absolute expiry for a session created at now.
func ComputeExpiry(now time.Time, remember bool, sessionDuration, extendedDuration time.Duration) time.Time {
	if remember {
		return now.Add(extendedDuration)
	}
	return now.Add(sessionDuration)
}

// SessionInfo is the caller-facing view of a session. Credential hashes are never included.
type SessionInfo struct {
	ID             string
	UserID         string
	Device         DeviceInfo
	IsRemembered   bool
	IsCurrent      bool
	ExpiresAt      time.Time
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// Info returns the redacted view of s.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:             s.ID,
		UserID:         s.UserID,
		Device:         s.Device,
		IsRemembered:   s.IsRemembered,
		ExpiresAt:      s.ExpiresAt,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
	}
}
