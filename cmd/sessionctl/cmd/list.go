package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"session-lifecycle-manager/internal/bootstrap"
	"session-lifecycle-manager/internal/session/domain"
)

var listCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List a user's active sessions, most recently active first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			sessions, err := app.Manager.GetUserSessions(ctx, args[0])
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), sessions, jsonOutput)
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type sessionJSON struct {
	ID           string    `json:"id"`
	DeviceType   string    `json:"device_type"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	IPAddress    string    `json:"ip_address"`
	Remembered   bool      `json:"remembered"`
	LastActivity time.Time `json:"last_activity_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func printSessions(w io.Writer, sessions []domain.SessionInfo, asJSON bool) error {
	if asJSON {
		out := make([]sessionJSON, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, sessionJSON{
				ID:           s.ID,
				DeviceType:   string(s.Device.DeviceType),
				Browser:      s.Device.Browser,
				OS:           s.Device.OS,
				IPAddress:    s.Device.IPAddress,
				Remembered:   s.IsRemembered,
				LastActivity: s.LastActivityAt,
				ExpiresAt:    s.ExpiresAt,
				CreatedAt:    s.CreatedAt,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "no active sessions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tBROWSER\tOS\tIP\tREMEMBERED\tLAST ACTIVITY\tEXPIRES")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			s.ID, s.Device.DeviceType, s.Device.Browser, s.Device.OS, s.Device.IPAddress, s.IsRemembered,
			s.LastActivityAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
