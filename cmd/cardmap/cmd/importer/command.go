// Package importer provides the import command, which loads collector
// output into the record store.
package importer

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/cmd/output"
)

// NewCommand creates the import command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "import <file|dir>...",
		GroupID: "core",
		Short:   "Import collector output into the record store",
		Long: `Import loads collector .csv and .json files into the record store. Each
file becomes a source named after the file without its extension, so
re-importing op01.csv replaces the op01 source. Directories are scanned for
.csv and .json files, not recursively.

Rows without a card number or that cannot be read are skipped and
reported; the rest of the file is imported.`,
		Example: `  cardmap import collected/op01.csv collected/op02.csv
  cardmap import collected/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := app.Logger()

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			results, err := client.Import(ctx, args...)
			for _, r := range results {
				for _, p := range r.Problems {
					logger.Warn().Str("source", r.Source).Msg(p)
				}
			}
			if len(results) > 0 {
				if werr := output.Write(cmd.OutOrStdout(), app.OutputFormat(), output.ImportData(results), results); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}
