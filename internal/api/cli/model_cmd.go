package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect registered models",
		Long:  `Inspect the server's registered models, their status, and their performance`,
	}

	cmd.AddCommand(newModelListCmd())
	cmd.AddCommand(newModelStatusCmd())
	cmd.AddCommand(newModelMetricsCmd())
	cmd.AddCommand(newModelRankingCmd())

	return cmd
}

// modelRow carries the list fields the table view shows
type modelRow struct {
	ID           string   `json:"id"`
	Provider     string   `json:"provider"`
	Type         string   `json:"type"`
	ModelName    string   `json:"model_name"`
	Capabilities []string `json:"capabilities"`
}

func newModelListCmd() *cobra.Command {
	var availableOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		Example: `  # List every registered model
  pixelforge model list

  # List only models currently accepting requests
  pixelforge model list --available`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/models"
			if availableOnly {
				path += "?available=true"
			}

			var resp struct {
				Models []modelRow `json:"models"`
				Count  int        `json:"count"`
			}
			if err := getJSON(path, &resp); err != nil {
				return err
			}

			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROVIDER\tTYPE\tMODEL\tCAPABILITIES")
			for _, m := range resp.Models {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					m.ID, m.Provider, m.Type, m.ModelName, len(m.Capabilities))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&availableOnly, "available", false, "only models accepting requests")
	return cmd
}

func newModelStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <model-id>",
		Short: "Show a model's runtime status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status json.RawMessage
			if err := getJSON("/api/v1/models/"+args[0]+"/status", &status); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newModelMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <model-id>",
		Short: "Show a model's performance metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var metrics json.RawMessage
			if err := getJSON("/api/v1/models/"+args[0]+"/metrics", &metrics); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), metrics)
		},
	}
}

func newModelRankingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Show models ranked by composite score",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Ranking []struct {
					ModelID string  `json:"model_id"`
					Score   float64 `json:"score"`
				} `json:"ranking"`
			}
			if err := getJSON("/api/v1/models/ranking", &resp); err != nil {
				return err
			}

			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tMODEL\tSCORE")
			for i, entry := range resp.Ranking {
				fmt.Fprintf(w, "%d\t%s\t%.3f\n", i+1, entry.ModelID, entry.Score)
			}
			return w.Flush()
		},
	}
}
