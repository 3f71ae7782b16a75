package cardmap

import (
	"io"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/reader"
	"github.com/agentstation/cardmap/pkg/scheduler"
)

// options holds the client configuration.
type options struct {
	// locations
	dataDir   string
	stateDir  string
	outputDir string

	// record store
	backend records.Backend
	store   records.Store

	// annotation
	candidates      []reader.Candidate
	readerConfig    reader.Config
	schedulerConfig scheduler.Config
	prompt          *reader.Prompt
	sleeper         reader.Sleeper

	// export
	random io.Reader

	logger *zerolog.Logger
}

// defaults returns the default client options.
func defaults() *options {
	return &options{
		dataDir:         "data",
		stateDir:        ".",
		outputDir:       ".",
		backend:         records.BackendDir,
		readerConfig:    reader.DefaultConfig(),
		schedulerConfig: scheduler.DefaultConfig(),
		prompt:          reader.DefaultPrompt(),
		logger:          logging.Default(),
	}
}

// apply applies the given options and validates the result.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.readerConfig.Validate(); err != nil {
		return nil, err
	}
	if err := o.schedulerConfig.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Option is a function that configures a Client.
type Option func(*options) error

// WithDataDir sets the directory of the record store.
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewValidationError("data_dir", dir, "must not be empty")
		}
		o.dataDir = dir
		return nil
	}
}

// WithStateDir sets the directory of the dictionary, queue and lock files.
func WithStateDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewValidationError("state_dir", dir, "must not be empty")
		}
		o.stateDir = dir
		return nil
	}
}

// WithOutputDir sets the default export directory.
func WithOutputDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewValidationError("output_dir", dir, "must not be empty")
		}
		o.outputDir = dir
		return nil
	}
}

// WithBackend selects the record store backend.
func WithBackend(backend records.Backend) Option {
	return func(o *options) error {
		b, err := records.ParseBackend(string(backend))
		if err != nil {
			return err
		}
		o.backend = b
		return nil
	}
}

// WithStore supplies an open record store. The client does not close it.
func WithStore(store records.Store) Option {
	return func(o *options) error {
		o.store = store
		return nil
	}
}

// WithCandidates sets the ranked reader candidates. Without candidates the
// client never calls the reading service.
func WithCandidates(candidates ...reader.Candidate) Option {
	return func(o *options) error {
		o.candidates = slices.Clone(candidates)
		return nil
	}
}

// WithReaderConfig sets the retry and pacing configuration.
func WithReaderConfig(cfg reader.Config) Option {
	return func(o *options) error {
		o.readerConfig = cfg
		return nil
	}
}

// WithSchedulerConfig sets the quota, batch size and keyword list.
func WithSchedulerConfig(cfg scheduler.Config) Option {
	return func(o *options) error {
		o.schedulerConfig = cfg
		return nil
	}
}

// WithPrompt overrides the reader prompt template.
func WithPrompt(p *reader.Prompt) Option {
	return func(o *options) error {
		if p != nil {
			o.prompt = p
		}
		return nil
	}
}

// WithSleeper overrides how the reader waits between attempts and tasks.
func WithSleeper(s reader.Sleeper) Option {
	return func(o *options) error {
		o.sleeper = s
		return nil
	}
}

// WithRandom sets the random source of fallback export identifiers.
func WithRandom(r io.Reader) Option {
	return func(o *options) error {
		o.random = r
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}
