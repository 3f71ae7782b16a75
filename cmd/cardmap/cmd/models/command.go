// Package models provides the models command.
package models

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/cmd/output"
)

// NewCommand creates the models command.
func NewCommand(app application.Application) *cobra.Command {
	var discover bool

	cmd := &cobra.Command{
		Use:     "models",
		GroupID: "management",
		Short:   "List the reading service models in the order they are tried",
		Long: `Models lists the candidate models. Each task tries them in order and moves
to the next on quota, not-found or unsupported errors. With --discover the
models available to the API key are listed from the service and appended.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := app.Models(cmd.Context(), discover)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), output.ModelsData(models), models)
		},
	}

	cmd.Flags().BoolVar(&discover, "discover", false, "append the models available to the API key")

	return cmd
}
