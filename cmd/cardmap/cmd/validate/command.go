// Package validate provides the validate command for exported catalogs.
package validate

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/export"
)

// NewCommand creates the validate command.
func NewCommand(app application.Application) *cobra.Command {
	var printSchema bool

	cmd := &cobra.Command{
		Use:     "validate [cards.json]",
		GroupID: "management",
		Short:   "Validate an exported catalog against its schema",
		Long: `Validate checks an exported cards.json: every document must have the
exported fields with the expected types, and unique ids must not repeat.`,
		Example: `  cardmap validate cards.json
  cardmap validate --schema > cards.schema.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := cmd.OutOrStdout().Write(export.Schema())
				return err
			}
			if len(args) == 0 {
				return errors.NewValidationError("file", nil, "a cards.json file is required")
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.WrapIO("read", path, err)
			}
			if err := export.Validate(data); err != nil {
				return err
			}
			app.Logger().Info().Str("file", path).Msg("Catalog is valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&printSchema, "schema", false, "print the JSON schema instead of validating")

	return cmd
}
