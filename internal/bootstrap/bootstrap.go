// Package bootstrap assembles a session manager and its collaborators from config.
// It is shared by the daemon and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"session-lifecycle-manager/internal/audit"
	auditrepo "session-lifecycle-manager/internal/audit/repository"
	"session-lifecycle-manager/internal/config"
	"session-lifecycle-manager/internal/db"
	healthhandler "session-lifecycle-manager/internal/health/handler"
	"session-lifecycle-manager/internal/identity"
	"session-lifecycle-manager/internal/localstore"
	"session-lifecycle-manager/internal/policy/engine"
	"session-lifecycle-manager/internal/security"
	"session-lifecycle-manager/internal/session/repository"
	"session-lifecycle-manager/internal/session/service"
	"session-lifecycle-manager/internal/telemetry"
	telemetryotel "session-lifecycle-manager/internal/telemetry/otel"
)

// App is a wired session manager. Close releases everything Build opened, in reverse order.
type App struct {
	Manager *service.Manager
	// Identity is nil when no JWT keys are configured; the manager then runs without a principal.
	Identity *identity.JWTProvider
	Store    repository.Repository
	Audit    auditrepo.Repository
	// Local holds the "remember me" state (and the remembered credential pair).
	Local     localstore.Store
	Health    *healthhandler.Server
	Telemetry *telemetryotel.Providers

	closers []func(context.Context) error
	logger  zerolog.Logger
}

// Option adjusts what Build opens.
type Option func(*options)

type options struct {
	skipLocalStore bool
}

// WithoutLocalStore keeps remember-me state in memory even when LOCAL_STORE_PATH is set.
// Operator tooling uses it so it never contends for the daemon's bbolt file lock.
func WithoutLocalStore() Option {
	return func(o *options) { o.skipLocalStore = true }
}

// Build opens the configured stores, revocation list, policy engine and telemetry, then
// constructs the manager. On error everything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	app := &App{logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	var deps []healthhandler.Dependency

	switch cfg.SessionStore {
	case config.StorePostgres:
		pool, perr := db.OpenPool(ctx, cfg.DatabaseURL)
		if perr != nil {
			return nil, perr
		}
		app.onClose(func(context.Context) error { pool.Close(); return nil })
		app.Store = repository.NewPostgresRepository(pool)
		app.Audit = auditrepo.NewPostgresRepository(pool)
		deps = append(deps, healthhandler.Dependency{Name: "postgres", Pinger: pool})
	case config.StoreSQLite:
		store, serr := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if serr != nil {
			return nil, serr
		}
		app.onClose(func(context.Context) error { return store.Close() })
		app.Store = store
		app.Audit = auditrepo.NewMemoryRepository()
		deps = append(deps, healthhandler.Dependency{Name: "sqlite", Pinger: store})
	case config.StoreMemory:
		app.Store = repository.NewMemoryRepository()
		app.Audit = auditrepo.NewMemoryRepository()
	default:
		return nil, fmt.Errorf("bootstrap: unknown session store %q", cfg.SessionStore)
	}

	var local localstore.Store = localstore.NewMemoryStore()
	if cfg.LocalStorePath != "" && !o.skipLocalStore {
		bolt, berr := localstore.OpenBolt(cfg.LocalStorePath)
		if berr != nil {
			return nil, berr
		}
		app.onClose(func(context.Context) error { return bolt.Close() })
		local = bolt
	}
	app.Local = local

	var revoker identity.Revoker = identity.NewMemoryRevoker()
	if cfg.RedisURL != "" {
		client, rerr := identity.ConnectRedis(ctx, cfg.RedisURL)
		if rerr != nil {
			return nil, rerr
		}
		app.onClose(func(context.Context) error { return client.Close() })
		redisRevoker := identity.NewRedisRevoker(client, "")
		revoker = redisRevoker
		deps = append(deps, healthhandler.Dependency{Name: "redis", Pinger: redisRevoker})
	}

	var principal identity.Provider = identity.Anonymous{}
	if cfg.JWTPrivateKey != "" || cfg.JWTPublicKey != "" {
		tokens, terr := TokenProvider(cfg)
		if terr != nil {
			return nil, terr
		}
		app.Identity = identity.NewJWTProvider(tokens, revoker)
		principal = app.Identity
	}

	policy, err := engine.LoadOPAEvaluator(ctx, logger, cfg.SessionPolicyFile)
	if err != nil {
		return nil, err
	}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, err
	}
	app.onClose(providers.Shutdown)
	app.Telemetry = providers
	metrics, err := telemetry.NewSessionMetrics(providers.Meter())
	if err != nil {
		return nil, err
	}

	app.Manager, err = service.NewManager(service.Deps{
		Store:    app.Store,
		Identity: principal,
		Local:    local,
		Policy:   policy,
		Logger:   logger,
		Metrics:  metrics,
		Events:   telemetryotel.NewEventEmitter(providers.LoggerProvider),
		Audit:    audit.NewLogger(app.Audit, nil, logger),
	}, cfg.ServiceConfig())
	if err != nil {
		return nil, err
	}
	app.onClose(func(context.Context) error { app.Manager.Close(); return nil })

	app.Health = healthhandler.NewServer(logger, policy, deps...)
	return app, nil
}

// TokenProvider builds the JWT provider from the JWT_* settings. At least one key must be set.
func TokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" && cfg.JWTPublicKey == "" {
		return nil, errors.New("bootstrap: JWT_PRIVATE_KEY or JWT_PUBLIC_KEY must be set")
	}
	priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: jwt keys: %w", err)
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL()), nil
}

func (a *App) onClose(f func(context.Context) error) {
	a.closers = append(a.closers, f)
}

// Close runs the registered closers in reverse order and joins their errors.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn().Err(err).Msg("bootstrap: close")
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
