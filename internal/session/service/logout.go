package service

import (
	"context"
	"errors"
	"fmt"

	auditdomain "session-lifecycle-manager/internal/audit/domain"
	"session-lifecycle-manager/internal/localstore"
	"session-lifecycle-manager/internal/telemetry"
)

const (
	reasonExplicit   = "explicit"
	reasonInactivity = "inactivity"
	reasonStale      = "stale_remembered"
	reasonInvalid    = "invalid_remembered"
)

// SecureLogout tears the session down in order: revoke the user's other sessions (when
// revokeAllSessions), revoke the current session, clear remembered state, stop both timers,
// then invalidate the credential with the identity provider. The local steps always run;
// a failure of the last step is returned wrapped in ErrCredentialInvalidation.
func (m *Manager) SecureLogout(ctx context.Context, revokeAllSessions bool) error {
	return m.secureLogout(ctx, revokeAllSessions, reasonExplicit)
}

// errLogoutSkipped is returned by secureLogoutIf when its guard no longer holds.
var errLogoutSkipped = errors.New("logout skipped")

func (m *Manager) secureLogout(ctx context.Context, revokeAll bool, reason string) error {
	return m.secureLogoutIf(ctx, revokeAll, reason, nil)
}

// secureLogoutIf runs the logout only if guard (evaluated under m.mu) still holds.
func (m *Manager) secureLogoutIf(ctx context.Context, revokeAll bool, reason string, guard func() bool) error {
	m.mu.Lock()
	if guard != nil && !guard() {
		m.mu.Unlock()
		return errLogoutSkipped
	}
	cur := m.current
	idle := m.clock.Now().Sub(m.lastActivity)
	m.mu.Unlock()
	if cur != nil && reason == reasonInactivity {
		m.log.Info().Str("session_id", cur.ID).Dur("idle", idle).Msg("inactivity timeout, logging out")
	}
	if cur == nil {
		// Not tracked in memory (e.g. after a restart); fall back to the credential.
		if s, err := m.lookupCurrent(ctx); err == nil {
			cur = s
		}
	}

	if cur != nil {
		if revokeAll && !m.RevokeOtherSessions(ctx, cur.UserID, cur.ID) {
			m.log.Warn().Str("user_id", cur.UserID).Msg("logout: revoking other sessions failed")
		}
		if !m.RevokeSession(ctx, cur.ID, cur.UserID) {
			m.log.Warn().Str("session_id", cur.ID).Msg("logout: revoking current session failed")
		}
	}

	if err := localstore.ClearRemember(ctx, m.local); err != nil {
		m.log.Warn().Err(err).Msg("logout: clearing remembered state failed")
	}

	m.mu.Lock()
	m.stopTimersLocked()
	m.current = nil
	m.remembered = false
	m.mu.Unlock()

	m.metrics.Logout(ctx, reason)
	userID, sessionID := "", ""
	if cur != nil {
		userID, sessionID = cur.UserID, cur.ID
	}
	m.record(ctx, userID, sessionID, auditdomain.ActionLogout, telemetry.EventLogout, fmt.Sprintf(`{"reason":%q}`, reason))

	if err := m.identity.InvalidateCredential(ctx); err != nil {
		m.log.Warn().Err(err).Str("reason", reason).Msg("logout: credential invalidation failed")
		return fmt.Errorf("%w: %w", ErrCredentialInvalidation, err)
	}
	m.log.Info().Str("session_id", sessionID).Str("reason", reason).Msg("logged out")
	return nil
}

// RestoreOutcome is the result of RestoreRememberedSession.
type RestoreOutcome string

const (
	// RestoreNone: nothing was remembered on this host.
	RestoreNone RestoreOutcome = "none"
	// RestoreResumed: the remembered session is still active and was resumed.
	RestoreResumed RestoreOutcome = "resumed"
	// RestoreStale: last activity was too long ago; remembered state cleared and signed out.
	RestoreStale RestoreOutcome = "stale"
	// RestoreInvalid: no active session matches the current credential; signed out.
	RestoreInvalid RestoreOutcome = "invalid"
)

// Err returns the taxonomy error describing the outcome, or nil for none and resumed.
func (o RestoreOutcome) Err() error {
	switch o {
	case RestoreStale:
		return ErrStaleRememberedSession
	case RestoreInvalid:
		return ErrInvalidSession
	}
	return nil
}

// RestoreRememberedSession runs the startup check for a remembered session. If the recorded
// last activity is older than RememberStaleAfter, remembered state is cleared and the
// credential signed out; otherwise the session is resumed and its activity refreshed.
// The returned error is non-nil only when the local store cannot be read or the sign-out
// could not invalidate the credential.
func (m *Manager) RestoreRememberedSession(ctx context.Context) (RestoreOutcome, error) {
	st, err := localstore.LoadRemember(ctx, m.local)
	if err != nil {
		return RestoreNone, fmt.Errorf("load remembered state: %w", err)
	}
	if !st.Remembered {
		return RestoreNone, nil
	}
	now := m.clock.Now()
	last := st.LastActivity
	if last.IsZero() {
		last = st.SessionStart
	}
	if last.IsZero() || now.Sub(last) > m.cfg.RememberStaleAfter {
		m.log.Info().Err(ErrStaleRememberedSession).Time("last_activity", last).Msg("remembered session is stale, signing out")
		telemetry.EmitAsync(m.events, ctx, &telemetry.Event{Type: telemetry.EventRememberStale, Source: eventSource, CreatedAt: now})
		return RestoreStale, m.secureLogout(ctx, false, reasonStale)
	}

	s, err := m.lookupCurrent(ctx)
	if err != nil {
		m.log.Info().Err(err).Msg("remembered session no longer valid, signing out")
		if errors.Is(err, ErrStoreUnavailable) {
			// Cannot tell; keep remembered state for the next start.
			return RestoreNone, err
		}
		return RestoreInvalid, m.secureLogout(ctx, false, reasonInvalid)
	}
	if s.ExpiredAt(now) {
		m.IsSessionValid(ctx)
		return RestoreInvalid, m.secureLogout(ctx, false, reasonInvalid)
	}

	m.mu.Lock()
	m.stopTimersLocked()
	m.current = s
	m.remembered = s.IsRemembered
	m.lastActivity = now
	m.writeLimiter = newWriteLimiter(m.cfg.ActivityWriteInterval)
	m.startSweepLocked()
	if !s.IsRemembered {
		m.armInactivityLocked()
	}
	m.mu.Unlock()

	if err := m.store.UpdateLastActivity(ctx, s.ID, now); err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Msg("restore: activity refresh failed")
	}
	if err := localstore.TouchActivity(ctx, m.local, now); err != nil {
		m.log.Warn().Err(err).Msg("restore: local persistence failed")
	}
	m.log.Info().Str("session_id", s.ID).Msg("remembered session resumed")
	telemetry.EmitAsync(m.events, ctx, &telemetry.Event{
		Type: telemetry.EventRememberRestored, UserID: s.UserID, SessionID: s.ID, Source: eventSource, CreatedAt: now,
	})
	return RestoreResumed, nil
}

// Run starts the periodic sweep and blocks until ctx is done, then stops all timers.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.startSweepLocked()
	m.mu.Unlock()
	<-ctx.Done()
	m.Close()
	return nil
}

// Close stops both timers. The manager can be initialized again afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimersLocked()
}
