package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wake",
		Short: "Send a wake probe to a sleeping backend",
		Long:  "Sends an unauthenticated GET / so a dormant backend instance starts booting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			resp, err := retrier.Wake(cmd.Context())
			elapsed := time.Since(start).Round(time.Millisecond)
			if err != nil {
				return fmt.Errorf("wake probe failed after %s: %w", elapsed, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend answered %d in %s\n", resp.Status, elapsed)
			return nil
		},
	}
}
