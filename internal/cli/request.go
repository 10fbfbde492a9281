package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/startupval/pkg/api"
)

func newRequestCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request to the backend",
		Long:  "Sends METHOD PATH with the saved session's token and the cold-start retry policy, then prints the JSON response.",
		Example: `  startupval request GET /api/ideas
  startupval request POST /api/ideas --data '{"title":"Dog walking app"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.Request{Method: strings.ToUpper(args[0]), Path: args[1]}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				req.Body = json.RawMessage(data)
			}

			resp, err := holder.Send(cmd.Context(), req)
			if err != nil {
				return err
			}

			var pretty bytes.Buffer
			if json.Indent(&pretty, resp.Data, "", "  ") == nil {
				fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), string(resp.Data))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "JSON request body")
	return cmd
}
