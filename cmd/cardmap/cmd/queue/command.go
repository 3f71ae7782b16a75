// Package queue provides the queue command for inspecting the annotation
// state.
package queue

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/cmd/output"
)

// NewCommand creates the queue command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queue",
		GroupID: "management",
		Short:   "Inspect the verification queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newStatusCommand(app))
	return cmd
}

func newStatusCommand(app application.Application) *cobra.Command {
	var plan bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and what the next run would schedule",
		Long: `Status reports the stored verified and unverified counts, the dictionary
size, and the queue as the next update would see it after merging the
sources and verifying what it can locally. Nothing is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			format := app.OutputFormat()
			if err := output.Write(w, format, output.StatusData(status), status); err != nil {
				return err
			}
			switch output.DetectFormat(format) {
			case output.FormatJSON, output.FormatYAML:
				return nil
			}
			if plan && len(status.Plan.Selected) > 0 {
				return output.Write(w, format, output.PlanData(status.Plan), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plan, "plan", false, "list the names the next run would submit")

	return cmd
}
