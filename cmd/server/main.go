// server runs the session manager daemon: periodic expiry sweep, inactivity monitoring and a gRPC health endpoint.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"session-lifecycle-manager/internal/activity"
	"session-lifecycle-manager/internal/bootstrap"
	"session-lifecycle-manager/internal/config"
	"session-lifecycle-manager/internal/session/service"
	"session-lifecycle-manager/internal/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	userID := flag.String("user", "", "Sign in as this user and start a session (requires JWT_PRIVATE_KEY)")
	remember := flag.Bool("remember", false, "Start a remembered session (with -user or -refresh-token)")
	accessToken := flag.String("access-token", os.Getenv("SESSION_ACCESS_TOKEN"), "Adopt an externally issued access token (with -refresh-token)")
	refreshToken := flag.String("refresh-token", os.Getenv("SESSION_REFRESH_TOKEN"), "Adopt an externally issued refresh token")
	activityStdin := flag.Bool("activity-stdin", false, "Read activity kinds (pointer_move, key_press, ...) one per line from stdin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap")
	}
	app.Telemetry.SetGlobal()

	host, _ := os.Hostname()
	initOpts := service.InitOptions{RememberMe: *remember, UserAgent: "sessiond/" + host, IPAddress: "127.0.0.1"}
	switch {
	case *refreshToken != "":
		outcome, err := app.AdoptCredential(ctx, *accessToken, *refreshToken, initOpts)
		if err != nil {
			log.Fatal().Err(err).Str("outcome", string(outcome)).Msg("adopt credential")
		}
		log.Info().Str("outcome", string(outcome)).Msg("credential adopted")
	case *userID != "":
		if app.Identity == nil {
			log.Fatal().Msg("signing in requires JWT_PRIVATE_KEY")
		}
		if _, err := app.Identity.SignIn(ctx, *userID); err != nil {
			log.Fatal().Err(err).Msg("sign in")
		}
		app.Manager.InitializeSession(ctx, initOpts)
	default:
		outcome, err := app.RestoreRemembered(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("restore remembered session")
		}
		log.Info().Str("outcome", string(outcome)).Msg("startup restore")
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, app.Health)

	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server listening")
		if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error().Err(err).Msg("serve")
			stop()
		}
	}()
	go app.Health.WatchDependencies(ctx, 15*time.Second)

	var tracker *activity.Tracker
	if *activityStdin {
		tracker = activity.NewTracker(app.Manager)
		go func() { _ = tracker.Run(ctx) }()
		go readActivity(ctx, tracker)
	}

	_ = app.Manager.Run(ctx)

	log.Info().Msg("shutting down")
	if tracker != nil {
		st := tracker.Stats()
		log.Info().Int64("observed", st.Observed).Int64("coalesced", st.Coalesced).Int64("forwarded", st.Forwarded).Msg("activity")
	}
	app.Health.Shutdown()
	s.GracefulStop()

	if cfg.TelemetryEnabled() {
		// Let async lifecycle emits from the final logout reach the exporter.
		time.Sleep(telemetry.ShutdownDrainDuration)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("close")
	}
	log.Info().Msg("stopped")
}

// readActivity forwards one activity kind per stdin line until EOF or ctx is done.
func readActivity(ctx context.Context, tracker *activity.Tracker) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		kind := activity.Kind(strings.TrimSpace(sc.Text()))
		if !kind.Qualifies() {
			log.Debug().Str("kind", string(kind)).Msg("ignoring non-qualifying activity")
			continue
		}
		tracker.Observe(kind)
	}
	if err := sc.Err(); err != nil {
		log.Warn().Err(err).Msg("activity stdin")
	}
}
