package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configFile string
	verbose    bool
	quiet      bool
	noColor    bool
	output     string
	logLevel   string
	dataDir    string
	stateDir   string
	backend    string
}

// Execute runs the cardmap CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "cardmap",
		Short:   "Card catalog merger with reading annotation",
		Version: a.version,
		Long: `Cardmap merges card lists collected from several sources into one
catalog, resolves duplicate card numbers, and annotates card names with
their readings (furigana) using a text-generation service.

Readings are kept in a dictionary that can be edited by hand, and a
verification queue makes sure each name is only paid for once. Every run
spends a bounded quota on the names most likely to need a reading.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default is ./.cardmap.yaml or $HOME/.cardmap.yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&flags.output, "output", "o", "", "output format: table, json, yaml, wide")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "record store directory (default from config)")
	pf.StringVar(&flags.stateDir, "state-dir", "", "dictionary and queue directory (default from config)")
	pf.StringVar(&flags.backend, "backend", "", "record store backend: dir, sqlite, memory (default from config)")

	rootCmd.SetVersionTemplate("cardmap {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. An explicit --config
// reloads the configuration before flags are applied.
func (a *App) setupCommand(_ *cobra.Command, flags *globalFlags) error {
	if flags.configFile != "" {
		config, err := LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(flags.verbose, flags.quiet, flags.noColor, flags.output, flags.logLevel)
	if flags.dataDir != "" {
		a.config.DataDir = flags.dataDir
	}
	if flags.stateDir != "" {
		a.config.StateDir = flags.stateDir
	}
	if flags.backend != "" {
		a.config.RecordsBackend = flags.backend
	}
	if err := a.config.Validate(); err != nil {
		return err
	}

	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// ExitOnError prints an error and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
