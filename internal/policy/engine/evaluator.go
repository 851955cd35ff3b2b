package engine

import (
	"context"
	"time"

	"session-lifecycle-manager/internal/session/domain"
)

// LifetimeInput is what a session lifetime policy decides on.
type LifetimeInput struct {
	UserID     string
	DeviceType domain.DeviceType
	Remember   bool
	// Requested values; zero means "use the policy default".
	SessionDuration   time.Duration
	ExtendedDuration  time.Duration
	InactivityTimeout time.Duration
}

// Lifetime is the policy decision for one session.
type Lifetime struct {
	RememberAllowed   bool
	SessionDuration   time.Duration
	ExtendedDuration  time.Duration
	InactivityTimeout time.Duration
}

// Default lifetimes applied when no policy decides otherwise.
const (
	DefaultSessionDuration   = 480 * time.Minute
	DefaultExtendedDuration  = 30 * 24 * time.Hour
	DefaultInactivityTimeout = 30 * time.Minute
)

// Evaluator decides session lifetimes.
type Evaluator interface {
	EvaluateLifetime(ctx context.Context, in LifetimeInput) (Lifetime, error)
}

// Static is an Evaluator that returns the requested values, substituting defaults for zeros.
type Static struct{}

func (Static) EvaluateLifetime(ctx context.Context, in LifetimeInput) (Lifetime, error) {
	return defaultLifetime(in), nil
}

func defaultLifetime(in LifetimeInput) Lifetime {
	out := Lifetime{
		RememberAllowed:   true,
		SessionDuration:   DefaultSessionDuration,
		ExtendedDuration:  DefaultExtendedDuration,
		InactivityTimeout: DefaultInactivityTimeout,
	}
	if in.SessionDuration > 0 {
		out.SessionDuration = in.SessionDuration
	}
	if in.ExtendedDuration > 0 {
		out.ExtendedDuration = in.ExtendedDuration
	}
	if in.InactivityTimeout > 0 {
		out.InactivityTimeout = in.InactivityTimeout
	}
	return out
}
