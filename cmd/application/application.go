// Package application provides the application interface for cardmap
// commands.
//
// Commands accept this interface rather than the concrete App type, so they
// can be tested with the Mock in internal/cmd/application:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := app.Client(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            result, err := client.Update(cmd.Context(), app.RunOptions()...)
//	            // ...
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/cardmap"
	"github.com/agentstation/cardmap/pkg/update"
)

// Application provides what commands need from the running program.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the cardmap client, creating it on first use. The
	// reading service is only contacted when a run annotates.
	Client(ctx context.Context) (cardmap.Client, error)

	// Models returns the candidate models in the order they are tried.
	// With discover, the service's model list is merged in.
	Models(ctx context.Context, discover bool) ([]string, error)

	// RunOptions returns the run options from configuration. Command
	// flags are appended after them and take precedence.
	RunOptions() []update.Option

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
