package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/cmd/cardmap/cmd/clean"
	"github.com/agentstation/cardmap/cmd/cardmap/cmd/export"
	"github.com/agentstation/cardmap/cmd/cardmap/cmd/importer"
	"github.com/agentstation/cardmap/cmd/cardmap/cmd/models"
	"github.com/agentstation/cardmap/cmd/cardmap/cmd/queue"
	"github.com/agentstation/cardmap/cmd/cardmap/cmd/update"
	"github.com/agentstation/cardmap/cmd/cardmap/cmd/validate"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(importer.NewCommand(a))
	rootCmd.AddCommand(update.NewCommand(a))
	rootCmd.AddCommand(export.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(queue.NewCommand(a))
	rootCmd.AddCommand(models.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))
	rootCmd.AddCommand(clean.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cardmap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
