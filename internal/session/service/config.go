package service

import (
	"time"

	"session-lifecycle-manager/internal/policy/engine"
)

// Config holds the manager's timing parameters.
type Config struct {
	// SessionDuration and ExtendedDuration are the lifetimes used when InitOptions leaves them zero.
	SessionDuration  time.Duration
	ExtendedDuration time.Duration
	// InactivityTimeout is the idle window after which a non-remembered session is logged out.
	InactivityTimeout time.Duration
	// SweepInterval is the cadence of CleanupExpiredSessions.
	SweepInterval time.Duration
	// RememberStaleAfter is the maximum gap since the last recorded activity for a remembered session to resume.
	RememberStaleAfter time.Duration
	// ActivityWriteInterval bounds store writes from UpdateActivity to one per interval. Zero writes every call.
	ActivityWriteInterval time.Duration
	// CallbackTimeout bounds the work done by a single timer callback.
	CallbackTimeout time.Duration
}

// DefaultConfig returns the standard lifetimes: 480 minutes, 30 days, 30 minutes idle,
// 5 minute sweep, 30 day remember staleness.
func DefaultConfig() Config {
	return Config{
		SessionDuration:       engine.DefaultSessionDuration,
		ExtendedDuration:      engine.DefaultExtendedDuration,
		InactivityTimeout:     engine.DefaultInactivityTimeout,
		SweepInterval:         5 * time.Minute,
		RememberStaleAfter:    30 * 24 * time.Hour,
		ActivityWriteInterval: time.Second,
		CallbackTimeout:       30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SessionDuration <= 0 {
		c.SessionDuration = d.SessionDuration
	}
	if c.ExtendedDuration <= 0 {
		c.ExtendedDuration = d.ExtendedDuration
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = d.InactivityTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.RememberStaleAfter <= 0 {
		c.RememberStaleAfter = d.RememberStaleAfter
	}
	if c.ActivityWriteInterval < 0 {
		c.ActivityWriteInterval = 0
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = d.CallbackTimeout
	}
	return c
}

// InitOptions are the inputs of InitializeSession.
type InitOptions struct {
	RememberMe bool
	// SessionDurationMinutes defaults to Config.SessionDuration when <= 0.
	SessionDurationMinutes int
	// ExtendedDurationDays defaults to Config.ExtendedDuration when <= 0.
	ExtendedDurationDays int
	UserAgent            string
	IPAddress            string
}
