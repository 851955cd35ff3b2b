package handler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "session.SessionManager"

const defaultCheckTimeout = 2 * time.Second

// Pinger is a dependency that can be probed for readiness (pgxpool.Pool, SQLite store, Redis revoker).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker reports whether the lifetime policy engine can evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency names a Pinger for logging.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// Server implements grpc.health.v1.Health. Check probes every dependency on each call;
// Watch subscribers see the status last computed by Check or Refresh.
type Server struct {
	*health.Server

	deps     []Dependency
	policy   PolicyChecker
	logger   zerolog.Logger
	timeout  time.Duration
	stopping atomic.Bool
}

// NewServer returns a health server over deps. policy may be nil.
func NewServer(logger zerolog.Logger, policy PolicyChecker, deps ...Dependency) *Server {
	s := &Server{
		Server:  health.NewServer(),
		deps:    deps,
		policy:  policy,
		logger:  logger,
		timeout: defaultCheckTimeout,
	}
	s.Server.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Check probes the dependencies and returns the resulting status for "" and ServiceName.
// Any other service name is delegated to the embedded server (NotFound).
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return s.Server.Check(ctx, req)
	}
	return &healthpb.HealthCheckResponse{Status: s.Refresh(ctx)}, nil
}

// Refresh probes the dependencies, publishes the status to watchers and returns it.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := s.evaluate(ctx)
	if !s.stopping.Load() {
		s.Server.SetServingStatus("", status)
		s.Server.SetServingStatus(ServiceName, status)
	}
	return status
}

// WatchDependencies refreshes on interval until ctx is done, so Watch streams observe dependency outages.
func (s *Server) WatchDependencies(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING for every service from now on.
func (s *Server) Shutdown() {
	s.stopping.Store(true)
	s.Server.Shutdown()
}

func (s *Server) evaluate(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if s.stopping.Load() {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for _, d := range s.deps {
		if d.Pinger == nil {
			continue
		}
		if err := d.Pinger.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Str("dependency", d.Name).Msg("health: ping failed")
			return healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health: policy check failed")
			return healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	return healthpb.HealthCheckResponse_SERVING
}
