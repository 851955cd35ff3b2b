// Package service implements the session manager: session creation, activity tracking,
// revocation, expiry sweeps, inactivity logout and "remember me" continuity.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"session-lifecycle-manager/internal/audit"
	auditdomain "session-lifecycle-manager/internal/audit/domain"
	"session-lifecycle-manager/internal/device"
	"session-lifecycle-manager/internal/identity"
	"session-lifecycle-manager/internal/localstore"
	"session-lifecycle-manager/internal/platform/clock"
	"session-lifecycle-manager/internal/policy/engine"
	"session-lifecycle-manager/internal/security"
	"session-lifecycle-manager/internal/session/domain"
	"session-lifecycle-manager/internal/session/repository"
	"session-lifecycle-manager/internal/telemetry"
)

const eventSource = "session-manager"

// Deps are the collaborators of a Manager. Store and Identity are required.
type Deps struct {
	Store    repository.Repository
	Identity identity.Provider
	// Local defaults to an in-memory store.
	Local localstore.Store
	// Policy defaults to engine.Static.
	Policy engine.Evaluator
	// Clock defaults to clock.Real.
	Clock   clock.Clock
	Logger  zerolog.Logger
	Metrics *telemetry.SessionMetrics
	Events  telemetry.EventEmitter
	Audit   audit.AuditLogger
}

// Manager coordinates the lifecycle of the current process's session. It owns two timers:
// the periodic expiry sweep and the inactivity timeout. Each timer arm captures a generation
// number; a callback whose generation has been superseded does nothing.
//
// The mutex guards only in-memory state and is never held across store or identity calls.
type Manager struct {
	store    repository.Repository
	identity identity.Provider
	local    localstore.Store
	policy   engine.Evaluator
	clock    clock.Clock
	log      zerolog.Logger
	metrics  *telemetry.SessionMetrics
	events   telemetry.EventEmitter
	audit    audit.AuditLogger
	cfg      Config

	mu                sync.Mutex
	current           *domain.Session
	remembered        bool
	lastActivity      time.Time
	inactivityTimeout time.Duration
	writeLimiter      *rate.Limiter
	inactivityTimer   clock.Timer
	inactivityGen     uint64
	sweepTimer        clock.Timer
	sweepGen          uint64
}

// NewManager returns a Manager. It starts no timers until InitializeSession, RestoreRememberedSession or Run.
func NewManager(deps Deps, cfg Config) (*Manager, error) {
	if deps.Store == nil {
		return nil, errors.New("session manager: store is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("session manager: identity provider is required")
	}
	if deps.Local == nil {
		deps.Local = localstore.NewMemoryStore()
	}
	if deps.Policy == nil {
		deps.Policy = engine.Static{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	cfg = cfg.withDefaults()
	return &Manager{
		store:             deps.Store,
		identity:          deps.Identity,
		local:             deps.Local,
		policy:            deps.Policy,
		clock:             deps.Clock,
		log:               deps.Logger.With().Str("component", "session").Logger(),
		metrics:           deps.Metrics,
		events:            deps.Events,
		audit:             deps.Audit,
		cfg:               cfg,
		inactivityTimeout: cfg.InactivityTimeout,
		writeLimiter:      newWriteLimiter(cfg.ActivityWriteInterval),
	}, nil
}

func newWriteLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// InitializeSession records the session for the credential the identity provider currently
// holds and starts monitoring it. Failures are logged and leave the manager unmonitored;
// they never reach the caller's login flow.
func (m *Manager) InitializeSession(ctx context.Context, opts InitOptions) {
	cred, err := m.identity.GetCurrentCredential(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("initialize session: no current credential")
		return
	}
	now := m.clock.Now()
	info := device.Fingerprint(opts.UserAgent, opts.IPAddress)

	requested := engine.LifetimeInput{
		UserID:            cred.UserID,
		DeviceType:        info.DeviceType,
		Remember:          opts.RememberMe,
		SessionDuration:   m.cfg.SessionDuration,
		ExtendedDuration:  m.cfg.ExtendedDuration,
		InactivityTimeout: m.cfg.InactivityTimeout,
	}
	if opts.SessionDurationMinutes > 0 {
		requested.SessionDuration = time.Duration(opts.SessionDurationMinutes) * time.Minute
	}
	if opts.ExtendedDurationDays > 0 {
		requested.ExtendedDuration = time.Duration(opts.ExtendedDurationDays) * 24 * time.Hour
	}
	lifetime, err := m.policy.EvaluateLifetime(ctx, requested)
	if err != nil {
		m.log.Warn().Err(err).Msg("initialize session: policy evaluation failed, using requested lifetime")
		lifetime, _ = engine.Static{}.EvaluateLifetime(ctx, requested)
	}
	remember := opts.RememberMe && lifetime.RememberAllowed
	if opts.RememberMe && !remember {
		m.log.Info().Str("user_id", cred.UserID).Msg("initialize session: remember me denied by policy")
	}

	stored, err := m.store.Upsert(ctx, &domain.Session{
		UserID:                cred.UserID,
		CredentialHash:        security.HashCredential(cred.AccessToken),
		RefreshCredentialHash: security.HashCredential(cred.RefreshToken),
		Device:                info,
		IsRemembered:          remember,
		ExpiresAt:             domain.ComputeExpiry(now, remember, lifetime.SessionDuration, lifetime.ExtendedDuration),
		LastActivityAt:        now,
		CreatedAt:             now,
		IsActive:              true,
	})
	if err != nil {
		m.log.Error().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Str("user_id", cred.UserID).
			Msg("initialize session: upsert failed, session is not monitored")
		return
	}

	m.mu.Lock()
	m.stopTimersLocked()
	m.current = stored
	m.remembered = remember
	m.lastActivity = now
	m.inactivityTimeout = lifetime.InactivityTimeout
	m.writeLimiter = newWriteLimiter(m.cfg.ActivityWriteInterval)
	m.startSweepLocked()
	if !remember {
		m.armInactivityLocked()
	}
	m.mu.Unlock()

	if remember {
		err = errors.Join(
			localstore.SaveRemember(ctx, m.local, stored.CreatedAt, now),
			localstore.SaveCredential(ctx, m.local, cred.AccessToken, cred.RefreshToken),
		)
	} else {
		err = localstore.ClearRemember(ctx, m.local)
	}
	if err != nil {
		m.log.Warn().Err(err).Bool("remember", remember).Msg("initialize session: local persistence failed")
	}

	m.log.Info().Str("session_id", stored.ID).Str("user_id", stored.UserID).Bool("remember", remember).
		Time("expires_at", stored.ExpiresAt).Msg("session initialized")
	m.metrics.Created(ctx, remember)
	m.record(ctx, stored.UserID, stored.ID, auditdomain.ActionSessionCreated, telemetry.EventSessionCreated, "")
}

// UpdateActivity records user activity for the current session: it always resets the
// inactivity timer, and writes last activity to the store at most once per ActivityWriteInterval.
func (m *Manager) UpdateActivity(ctx context.Context) {
	now := m.clock.Now()
	m.mu.Lock()
	cur := m.current
	if cur == nil {
		m.mu.Unlock()
		return
	}
	m.lastActivity = now
	if !m.remembered {
		m.armInactivityLocked()
	}
	remembered := m.remembered
	write := m.writeLimiter.AllowN(now, 1)
	m.mu.Unlock()

	if !write {
		return
	}
	if err := m.store.UpdateLastActivity(ctx, cur.ID, now); err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Str("session_id", cur.ID).Msg("update activity failed")
	}
	if remembered {
		if err := localstore.TouchActivity(ctx, m.local, now); err != nil {
			m.log.Warn().Err(err).Msg("update activity: local persistence failed")
		}
	}
}

// GetUserSessions lists the user's active sessions, most recently active first, without
// credential hashes. The session this manager is tracking is marked IsCurrent.
func (m *Manager) GetUserSessions(ctx context.Context, userID string) ([]domain.SessionInfo, error) {
	list, err := m.store.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	currentID := m.CurrentSessionID()
	out := make([]domain.SessionInfo, 0, len(list))
	for _, s := range list {
		info := s.Info()
		info.IsCurrent = currentID != "" && s.ID == currentID
		out = append(out, info)
	}
	return out, nil
}

// RevokeSession deactivates sessionID on behalf of userID. It returns false when the session
// does not exist, belongs to someone else, or the store fails; it never reveals which.
// Revoking an already inactive session owned by userID succeeds without changing it.
func (m *Manager) RevokeSession(ctx context.Context, sessionID, userID string) bool {
	s, err := m.store.GetByID(ctx, sessionID)
	if err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Str("session_id", sessionID).Msg("revoke session: lookup failed")
		return false
	}
	if s == nil || s.UserID != userID {
		m.log.Debug().Err(ErrUnauthorizedRevoke).Str("user_id", userID).Msg("revoke session refused")
		return false
	}
	changed, err := m.store.MarkInactive(ctx, sessionID, userID, m.clock.Now())
	if err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Str("session_id", sessionID).Msg("revoke session failed")
		return false
	}
	if changed {
		m.metrics.Revoked(ctx, 1, "single")
		m.record(ctx, userID, sessionID, auditdomain.ActionSessionRevoked, telemetry.EventSessionRevoked, "")
	}
	return true
}

// RevokeOtherSessions deactivates every active session of userID except exceptSessionID in a
// single store statement. An empty exceptSessionID revokes all of them.
func (m *Manager) RevokeOtherSessions(ctx context.Context, userID, exceptSessionID string) bool {
	n, err := m.store.MarkAllInactiveForUser(ctx, userID, exceptSessionID, m.clock.Now())
	if err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Str("user_id", userID).Msg("revoke other sessions failed")
		return false
	}
	if n > 0 {
		m.metrics.Revoked(ctx, n, "others")
		m.record(ctx, userID, exceptSessionID, auditdomain.ActionSessionsRevoked, telemetry.EventSessionsRevoked,
			fmt.Sprintf(`{"count":%d}`, n))
	}
	m.log.Info().Str("user_id", userID).Int64("revoked", n).Msg("revoked other sessions")
	return true
}

// CleanupExpiredSessions deactivates every active session whose expiry has passed.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	now := m.clock.Now()
	n, err := m.store.SweepExpired(ctx, now)
	m.metrics.SweepRun(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if n > 0 {
		m.metrics.Expired(ctx, n)
		m.log.Info().Int64("expired", n).Msg("expired sessions swept")
		telemetry.EmitAsync(m.events, ctx, &telemetry.Event{
			Type:      telemetry.EventSessionExpired,
			Source:    eventSource,
			Metadata:  []byte(fmt.Sprintf(`{"count":%d}`, n)),
			CreatedAt: now,
		})
	}
	return n, nil
}

// IsSessionValid reports whether the current credential maps to an active, unexpired session.
// A session found past its expiry is marked inactive before returning false.
func (m *Manager) IsSessionValid(ctx context.Context) bool {
	s, err := m.lookupCurrent(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			m.log.Warn().Err(err).Msg("session validity check failed")
		} else {
			m.log.Debug().Err(err).Msg("session not valid")
		}
		return false
	}
	now := m.clock.Now()
	if !s.ExpiredAt(now) {
		return true
	}
	changed, err := m.store.MarkInactive(ctx, s.ID, s.UserID, now)
	if err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %w", ErrStoreUnavailable, err)).Str("session_id", s.ID).Msg("expire session failed")
		return false
	}
	if changed {
		m.metrics.Expired(ctx, 1)
		m.record(ctx, s.UserID, s.ID, auditdomain.ActionSessionExpired, telemetry.EventSessionExpired, "")
	}
	return false
}

// lookupCurrent finds the active row for the identity provider's current credential.
func (m *Manager) lookupCurrent(ctx context.Context) (*domain.Session, error) {
	cred, err := m.identity.GetCurrentCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	s, err := m.store.FindActiveByUserAndCredentialHash(ctx, cred.UserID, security.HashCredential(cred.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if s == nil {
		return nil, ErrInvalidSession
	}
	return s, nil
}

// CurrentSessionID returns the id of the session this manager tracks, or "".
func (m *Manager) CurrentSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.ID
}

// record writes the audit entry and emits the lifecycle event for one transition.
func (m *Manager) record(ctx context.Context, userID, sessionID, action, eventType, metadata string) {
	m.audit.LogEvent(ctx, userID, sessionID, action, metadata)
	ev := &telemetry.Event{
		Type:      eventType,
		UserID:    userID,
		SessionID: sessionID,
		Source:    eventSource,
		CreatedAt: m.clock.Now(),
	}
	if metadata != "" {
		ev.Metadata = []byte(metadata)
	}
	telemetry.EmitAsync(m.events, ctx, ev)
}
