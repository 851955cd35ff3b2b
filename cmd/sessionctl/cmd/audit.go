package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"session-lifecycle-manager/internal/bootstrap"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit <user-id>",
	Short: "Show the most recent session audit entries for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			entries, err := app.Audit.ListByUser(ctx, args[0], auditLimit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tSESSION\tIP\tMETADATA")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Action, e.SessionID, e.IP, e.Metadata)
			}
			return tw.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of entries")
}
