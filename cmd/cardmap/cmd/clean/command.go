// Package clean provides the clean command.
package clean

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/cmd/output"
)

// NewCommand creates the clean command.
func NewCommand(app application.Application) *cobra.Command {
	var dictionary bool

	cmd := &cobra.Command{
		Use:     "clean",
		GroupID: "management",
		Short:   "Remove imported records and exports",
		Long: `Clean removes every imported source and the exported files. The reading
dictionary and the verification queue are kept unless --dictionary is set,
so readings paid for are not lost by accident.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			removed, err := client.Clean(ctx, dictionary)
			if len(removed) > 0 {
				if werr := output.Write(cmd.OutOrStdout(), app.OutputFormat(), output.ListData("Removed", removed), removed); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dictionary, "dictionary", false, "also remove the reading dictionary and verification queue")

	return cmd
}
