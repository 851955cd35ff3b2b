package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"session-lifecycle-manager/internal/bootstrap"
)

var errRevokeRefused = errors.New("revoke refused: session not found for user or store unavailable")

var revokeCmd = &cobra.Command{
	Use:   "revoke <user-id> <session-id>",
	Short: "Revoke one session owned by the user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if !app.Manager.RevokeSession(ctx, args[1], args[0]) {
				return errRevokeRefused
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[1])
			return nil
		})
	},
}

var revokeExcept string

var revokeOthersCmd = &cobra.Command{
	Use:   "revoke-others <user-id>",
	Short: "Revoke every active session of the user except --except (all when empty)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if !app.Manager.RevokeOtherSessions(ctx, args[0], revokeExcept) {
				return errors.New("revoke-others failed; see logs")
			}
			if revokeExcept == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "revoked all sessions of %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "revoked sessions of %s except %s\n", args[0], revokeExcept)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(revokeOthersCmd)
	revokeOthersCmd.Flags().StringVar(&revokeExcept, "except", "", "Session ID to keep")
}
