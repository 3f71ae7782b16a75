// Package update provides the update command: merge, annotate and export.
package update

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/cmd/output"
	pkgupdate "github.com/agentstation/cardmap/pkg/update"
)

// NewCommand creates the update command.
func NewCommand(app application.Application) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:     "update",
		GroupID: "core",
		Short:   "Merge sources, annotate readings and export the catalog",
		Args:    cobra.NoArgs,
		Long: `Update runs the whole pipeline over the imported sources:

1. Merge every source into one catalog, resolving duplicate card numbers
2. Queue card names that have not been seen before
3. Verify names whose reading can be settled locally
4. Ask the reading service for the highest-priority pending names,
   within the run quota, saving progress after every task
5. Export the catalog with the readings known so far

Without an API key (GEMINI_API_KEY or GOOGLE_API_KEY) step 4 is skipped.
An interrupted run keeps every completed task.`,
		Example: `  cardmap update                          # Full run
  cardmap update --quota 60               # Submit at most 60 names
  cardmap update --skip-annotation        # Export with the stored dictionary
  cardmap update --dry-run -o yaml        # Show what would be scheduled
  cardmap update --format json,csv,xlsx   # Write every export`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			opts, err := flags.Options(cmd, app.RunOptions())
			if err != nil {
				return err
			}

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			result, runErr := client.Update(ctx, opts...)
			if result != nil {
				if err := printResult(cmd, app.OutputFormat(), result); err != nil {
					return err
				}
				app.Logger().Info().Str("duration", result.Duration()).Msg(result.Summary())
			}
			return runErr
		},
	}

	flags = addFlags(cmd)

	return cmd
}

// printResult writes the result. Tables show the summary, then the tasks that
// ran, or the plan on a dry run.
func printResult(cmd *cobra.Command, format string, result *pkgupdate.Result) error {
	w := cmd.OutOrStdout()
	if err := output.Write(w, format, output.ResultData(result), result); err != nil {
		return err
	}
	if output.DetectFormat(format) == output.FormatJSON || output.DetectFormat(format) == output.FormatYAML {
		return nil
	}

	switch {
	case result.DryRun && len(result.Plan.Selected) > 0:
		return output.Write(w, format, output.PlanData(result.Plan), nil)
	case len(result.Tasks) > 0:
		return output.Write(w, format, output.TaskData(result.Tasks), nil)
	}
	return nil
}
