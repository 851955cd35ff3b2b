package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"session-lifecycle-manager/internal/bootstrap"
	"session-lifecycle-manager/internal/config"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "Inspect and revoke user sessions",
	Long: `sessionctl operates on the configured session store (SESSION_STORE, DATABASE_URL, SQLITE_PATH).
Revocations are conditional updates, so it is safe to run next to a live daemon.`,
	SilenceUsage: true,
}

// buildApp is replaced in tests.
var buildApp = func(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	return bootstrap.Build(ctx, cfg, logger, bootstrap.WithoutLocalStore())
}

// withApp builds the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()
	return fn(ctx, app)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}
