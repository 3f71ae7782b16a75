// Package reader obtains readings for card names from an external
// text-generation service.
//
// A Client holds a ranked list of model candidates. For each task it walks
// the list: a success stops the walk, a missing or unsupported model moves
// on to the next candidate, a rate limit abandons the walk (candidates share
// one account quota) and any other failure is logged before moving on. When
// no candidate succeeds the whole walk is retried with exponential backoff.
package reader

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
)

// Candidate is one model that can answer a prompt.
type Candidate interface {
	// Name identifies the candidate in logs and results.
	Name() string
	// Generate returns the raw text response for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// CandidateFunc adapts a function to the Candidate interface.
type CandidateFunc struct {
	ID string
	Fn func(ctx context.Context, prompt string) (string, error)
}

// Name implements Candidate.
func (c CandidateFunc) Name() string { return c.ID }

// Generate implements Candidate.
func (c CandidateFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Fn(ctx, prompt)
}

// Config holds the retry and pacing policy.
type Config struct {
	// MaxAttempts is the number of candidate walks per task.
	MaxAttempts int
	// BaseDelay is the wait after the first failed walk; it doubles after
	// every further failure.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// TaskDelay is the pause the pipeline takes after every task.
	TaskDelay time.Duration
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: constants.DefaultMaxAttempts,
		BaseDelay:   constants.DefaultBaseDelay,
		MaxDelay:    constants.DefaultMaxDelay,
		TaskDelay:   constants.DefaultTaskDelay,
	}
}

// Validate checks the policy.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return errors.NewValidationError("max_attempts", c.MaxAttempts, "must be positive")
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 || c.TaskDelay < 0 {
		return errors.NewValidationError("delay", nil, "delays must not be negative")
	}
	return nil
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Result is the outcome of one task.
type Result struct {
	// Readings holds normalized readings for requested names only.
	Readings map[string]string
	// Model names the candidate that answered.
	Model string
	// Attempts is the number of candidate walks used.
	Attempts int
}

// Client reads names through a ranked candidate list.
type Client struct {
	cfg        Config
	candidates []Candidate
	prompt     *Prompt
	sleeper    Sleeper
	logger     *zerolog.Logger

	// unavailable remembers candidates that reported a missing model.
	unavailable map[string]bool
}

// Option customizes the client.
type Option func(*Client)

// WithPrompt overrides the prompt template.
func WithPrompt(p *Prompt) Option {
	return func(c *Client) {
		if p != nil {
			c.prompt = p
		}
	}
}

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client that tries candidates in the given order.
func New(cfg Config, candidates []Candidate, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:         cfg,
		candidates:  slices.Clone(candidates),
		prompt:      DefaultPrompt(),
		sleeper:     sleepContext,
		logger:      logging.Default(),
		unavailable: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Candidates returns the candidate names in order.
func (c *Client) Candidates() []string {
	names := make([]string, len(c.candidates))
	for i, cand := range c.candidates {
		names[i] = cand.Name()
	}
	return names
}

// Read asks the candidates for readings of names. It returns a *TaskError
// matching ErrTaskFailed when every attempt failed, ErrNoCandidates when no
// usable candidate remains, and the context error when ctx ends.
func (c *Client) Read(ctx context.Context, names []string) (*Result, error) {
	if len(names) == 0 {
		return &Result{Readings: map[string]string{}}, nil
	}
	prompt, err := c.prompt.Render(names)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.walk(ctx, prompt, names)
		if err == nil {
			result.Attempts = attempt
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNoCandidates) {
			return nil, err
		}
		lastErr = err

		if attempt == c.cfg.MaxAttempts {
			break
		}
		delay := c.backoffDelay(attempt)
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Annotation attempt failed, backing off")
		if err := c.sleeper(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &TaskError{Names: len(names), Attempts: c.cfg.MaxAttempts, Last: lastErr}
}

// walk tries each candidate once.
func (c *Client) walk(ctx context.Context, prompt string, names []string) (*Result, error) {
	var lastErr error
	tried := 0
	for _, cand := range c.candidates {
		name := cand.Name()
		if c.unavailable[name] {
			continue
		}
		tried++

		text, err := cand.Generate(ctx, prompt)
		if err == nil {
			var parsed map[string]string
			parsed, err = ParseReadings(text, names)
			if err == nil {
				c.logger.Debug().
					Str("candidate", name).
					Int("readings", len(parsed)).
					Msg("Candidate answered")
				return &Result{Readings: parsed, Model: name}, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		switch kind := classify(err); kind {
		case failureRateLimited:
			c.logger.Warn().Err(err).Str("candidate", name).Msg("Rate limited, abandoning candidate list")
			return nil, err
		case failureNotFound:
			c.unavailable[name] = true
			c.logger.Info().Err(err).Str("candidate", name).Msg("Model unavailable, trying next candidate")
		default:
			c.logger.Warn().Err(err).Str("candidate", name).Msg("Candidate failed, trying next candidate")
		}
	}

	if tried == 0 {
		return nil, ErrNoCandidates
	}
	return nil, lastErr
}

// Pause waits the configured inter-task delay.
func (c *Client) Pause(ctx context.Context) error {
	return c.sleeper(ctx, c.cfg.TaskDelay)
}

// backoffDelay returns the wait after failed attempt n (1-based):
// base, base*2, base*4, ... capped by MaxDelay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		if c.cfg.MaxDelay > 0 && delay > c.cfg.MaxDelay/2 {
			delay = c.cfg.MaxDelay
			break
		}
		delay *= 2
	}
	if c.cfg.MaxDelay > 0 && delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
