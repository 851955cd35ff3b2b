package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"session-lifecycle-manager/internal/bootstrap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deactivate every session past its expiry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			n, err := app.Manager.CleanupExpiredSessions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d sessions\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
