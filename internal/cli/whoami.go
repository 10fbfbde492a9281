package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			session := holder.Session()
			if session == nil {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}

			fmt.Fprintf(out, "User:  %s\n", displayName(session))
			fmt.Fprintf(out, "Role:  %s\n", session.Role)
			if exp := session.ExpiresAt(); !exp.IsZero() {
				verb := "expires"
				if exp.Before(time.Now()) {
					verb = "expired"
				}
				fmt.Fprintf(out, "Token: %s %s\n", verb, humanize.Time(exp))
			}
			return nil
		},
	}
}
