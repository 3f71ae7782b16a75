// Package app provides the application context and dependency management
// for the cardmap CLI: configuration, logging and the lazily created
// cardmap client.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/cardmap"
	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/internal/providers/google"
	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/reader"
	"github.com/agentstation/cardmap/pkg/scheduler"
	"github.com/agentstation/cardmap/pkg/update"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the cardmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Client instance (lazy-initialized, singleton)
	mu     sync.Mutex
	client cardmap.Client

	// newReaders builds the reader candidates; replaced in tests.
	newReaders func(ctx context.Context) ([]reader.Candidate, error)
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}
	app.newReaders = app.geminiCandidates

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Output
}

// Client returns the cardmap client, creating it on first use.
func (a *App) Client(ctx context.Context) (cardmap.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.clientOptions(ctx)
	if err != nil {
		return nil, err
	}
	client, err := cardmap.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}

	a.client = client
	return client, nil
}

// RunOptions returns the run options from configuration.
func (a *App) RunOptions() []update.Option {
	return []update.Option{
		update.WithSkipAnnotation(a.config.SkipAnnotation),
		update.WithFormats(a.config.ExportFormats()...),
	}
}

// Models returns the candidate models in the order they are tried: the
// configured list, or the defaults, followed by discovered models when
// discover is set.
func (a *App) Models(ctx context.Context, discover bool) ([]string, error) {
	preferred := a.config.Models
	if len(preferred) == 0 {
		preferred = google.DefaultModels
	}
	if !discover {
		return google.MergeModels(preferred, nil), nil
	}

	gc, err := google.NewClient(ctx, a.config.APIKey)
	if err != nil {
		return preferred, err
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DiscoverTimeout)
	defer cancel()

	discovered, err := gc.Discover(ctx)
	if err != nil {
		return preferred, errors.WrapResource("discover", "models", google.ProviderName, err)
	}
	return google.MergeModels(preferred, discovered), nil
}

// Shutdown releases the client.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// clientOptions builds the cardmap options from configuration.
func (a *App) clientOptions(ctx context.Context) ([]cardmap.Option, error) {
	backend, err := records.ParseBackend(a.config.RecordsBackend)
	if err != nil {
		return nil, err
	}

	opts := []cardmap.Option{
		cardmap.WithDataDir(a.config.DataDir),
		cardmap.WithStateDir(a.config.StateDir),
		cardmap.WithOutputDir(a.config.OutputDir),
		cardmap.WithBackend(backend),
		cardmap.WithReaderConfig(reader.Config{
			MaxAttempts: a.config.MaxAttempts,
			BaseDelay:   a.config.BaseDelay,
			MaxDelay:    a.config.MaxDelay,
			TaskDelay:   a.config.TaskDelay,
		}),
		cardmap.WithSchedulerConfig(scheduler.Config{
			Quota:     a.config.Quota,
			BatchSize: a.config.BatchSize,
			Keywords:  a.config.Keywords,
		}),
		cardmap.WithLogger(a.logger),
	}

	if a.config.PromptFile != "" {
		prompt, err := reader.LoadPrompt(a.config.PromptFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cardmap.WithPrompt(prompt))
	}

	candidates, err := a.newReaders(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		opts = append(opts, cardmap.WithCandidates(candidates...))
	}
	return opts, nil
}

// geminiCandidates returns one candidate per model. Without an API key
// there are none and runs export with the stored dictionary. A failed
// discovery falls back to the preferred models.
func (a *App) geminiCandidates(ctx context.Context) ([]reader.Candidate, error) {
	if a.config.APIKey == "" {
		a.logger.Debug().Msg("No API key configured, reader disabled")
		return nil, nil
	}

	gc, err := google.NewClient(ctx, a.config.APIKey, google.WithJSONMode(true))
	if err != nil {
		return nil, err
	}

	models, err := a.Models(ctx, a.config.DiscoverModels)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Model discovery failed, using configured models")
	}
	a.logger.Debug().Strs("models", models).Msg("Reader candidates")
	return gc.Candidates(models), nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(client cardmap.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}

// WithCandidates replaces the Gemini candidates (useful for testing).
func WithCandidates(candidates ...reader.Candidate) Option {
	return func(a *App) error {
		a.newReaders = func(context.Context) ([]reader.Candidate, error) {
			return candidates, nil
		}
		return nil
	}
}
