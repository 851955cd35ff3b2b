package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SessionMetrics counts session lifecycle transitions. A nil *SessionMetrics is a no-op.
type SessionMetrics struct {
	created   metric.Int64Counter
	revoked   metric.Int64Counter
	expired   metric.Int64Counter
	logout    metric.Int64Counter
	sweepRuns metric.Int64Counter
}

// NewSessionMetrics registers the session counters on meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	var (
		m   SessionMetrics
		err error
	)
	if m.created, err = meter.Int64Counter("sessions.created", metric.WithDescription("Sessions initialized")); err != nil {
		return nil, err
	}
	if m.revoked, err = meter.Int64Counter("sessions.revoked", metric.WithDescription("Sessions revoked explicitly")); err != nil {
		return nil, err
	}
	if m.expired, err = meter.Int64Counter("sessions.expired", metric.WithDescription("Sessions deactivated by expiry")); err != nil {
		return nil, err
	}
	if m.logout, err = meter.Int64Counter("sessions.logout", metric.WithDescription("Secure logouts performed")); err != nil {
		return nil, err
	}
	if m.sweepRuns, err = meter.Int64Counter("sessions.sweep.runs", metric.WithDescription("Expiry sweeps executed")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *SessionMetrics) Created(ctx context.Context, remembered bool) {
	if m == nil {
		return
	}
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.Bool("remembered", remembered)))
}

func (m *SessionMetrics) Revoked(ctx context.Context, n int64, scope string) {
	if m == nil || n <= 0 {
		return
	}
	m.revoked.Add(ctx, n, metric.WithAttributes(attribute.String("scope", scope)))
}

func (m *SessionMetrics) Expired(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(ctx, n)
}

func (m *SessionMetrics) Logout(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.logout.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *SessionMetrics) SweepRun(ctx context.Context) {
	if m == nil {
		return
	}
	m.sweepRuns.Add(ctx, 1)
}
