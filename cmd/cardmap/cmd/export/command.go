// Package export provides the export command.
package export

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/cmd/output"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/update"
)

// NewCommand creates the export command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		formats   []string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "core",
		Short:   "Export the merged catalog with the stored readings",
		Long: `Export merges the imported sources and writes the catalog using the
readings already in the dictionary. The reading service is not called and
the verification queue is left as it is.`,
		Example: `  cardmap export
  cardmap export --format csv,xlsx --output-dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			opts := app.RunOptions()
			if cmd.Flags().Changed("format") {
				parsed, err := save.ParseFormats(formats)
				if err != nil {
					return errors.NewValidationError("format", formats, err.Error())
				}
				opts = append(opts, update.WithFormats(parsed...))
			}
			if outputDir != "" {
				opts = append(opts, update.WithOutputDir(outputDir))
			}

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			result, err := client.Export(ctx, opts...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			return output.Write(w, app.OutputFormat(), exportData(result), result.Exports)
		},
	}

	cmd.Flags().StringSliceVar(&formats, "format", nil, "export formats: json, csv, xlsx (default from config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "export directory (default from config)")

	return cmd
}

func exportData(result *update.Result) output.Data {
	data := output.Data{
		Headers:         []string{"Format", "Path", "Records"},
		ColumnAlignment: []output.Align{output.AlignLeft, output.AlignLeft, output.AlignRight},
	}
	for _, e := range result.Exports {
		data.Rows = append(data.Rows, []string{e.Name, e.Path, strconv.Itoa(e.Records)})
	}
	return data
}
