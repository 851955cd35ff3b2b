package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"session-lifecycle-manager/internal/audit/domain"
	auditrepo "session-lifecycle-manager/internal/audit/repository"
)

// IPExtractor returns the client IP for the current call, if known.
type IPExtractor func(context.Context) string

// AuditLogger records one session lifecycle event. LogEvent is best-effort:
// failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, sessionID, action, metadata string)
}

// Logger implements AuditLogger on top of an audit repository.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         zerolog.Logger
	nowF        func() time.Time
}

// NewLogger returns a Logger that persists to repo. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log, nowF: func() time.Time { return time.Now().UTC() }}
}

// LogEvent writes one audit log entry.
func (l *Logger) LogEvent(ctx context.Context, userID, sessionID, action, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.nowF(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn().Err(err).Str("action", action).Str("session_id", sessionID).Msg("audit: failed to log event")
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) LogEvent(ctx context.Context, userID, sessionID, action, metadata string) {}
