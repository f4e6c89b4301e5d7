package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Status          string `json:"status"`
				AvailableModels int    `json:"available_models"`
			}
			if err := getJSON("/health/ready", &resp); err != nil {
				return err
			}

			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "status: %s (%d models available)\n",
				resp.Status, resp.AvailableModels)
			return nil
		},
	}
}
