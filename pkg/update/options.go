// Package update provides the options and result of a catalog update run.
package update

import (
	"time"

	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/save"
)

// Options controls one run of Client.Update or Client.Export.
type Options struct {
	// Orchestration control
	DryRun         bool          // Plan and report without persisting state or writing exports
	SkipAnnotation bool          // Export with the existing dictionary, no external calls
	Reconcile      bool          // Verify names that already have a hand-written reading
	Timeout        time.Duration // Timeout for the whole run (0 means none)

	// Scheduling overrides (0 keeps the client configuration)
	Quota     int
	BatchSize int

	// Output control
	Formats   []save.Format // Export formats (empty means JSON only)
	OutputDir string        // Export directory (empty keeps the client configuration)
}

// Defaults returns the default update options.
func Defaults() *Options {
	return &Options{
		DryRun:         false,
		SkipAnnotation: false,
		Reconcile:      true,
		Timeout:        0,
		Formats:        []save.Format{save.FormatJSON},
	}
}

// Apply applies the given options to the update options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option is a function that configures update Options.
type Option func(*Options)

// Validate checks if the update options are valid.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if o.Quota < 0 {
		return errors.NewValidationError("Quota", o.Quota, "quota must be non-negative")
	}
	if o.BatchSize < 0 {
		return errors.NewValidationError("BatchSize", o.BatchSize, "batch size must be non-negative")
	}
	for _, f := range o.Formats {
		if !f.IsValid() {
			return errors.NewValidationError("Formats", f, "unsupported export format")
		}
	}
	return nil
}

// WithDryRun configures dry run mode.
func WithDryRun(enabled bool) Option {
	return func(o *Options) {
		o.DryRun = enabled
	}
}

// WithSkipAnnotation disables calls to the reading service.
func WithSkipAnnotation(enabled bool) Option {
	return func(o *Options) {
		o.SkipAnnotation = enabled
	}
}

// WithReconcile enables or disables the manual-edit reconcile pass.
func WithReconcile(enabled bool) Option {
	return func(o *Options) {
		o.Reconcile = enabled
	}
}

// WithTimeout configures the run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithQuota overrides the per-run name quota.
func WithQuota(quota int) Option {
	return func(o *Options) {
		o.Quota = quota
	}
}

// WithBatchSize overrides the task batch size.
func WithBatchSize(size int) Option {
	return func(o *Options) {
		o.BatchSize = size
	}
}

// WithFormats sets the export formats.
func WithFormats(formats ...save.Format) Option {
	return func(o *Options) {
		o.Formats = formats
	}
}

// WithOutputDir sets the export directory.
func WithOutputDir(dir string) Option {
	return func(o *Options) {
		o.OutputDir = dir
	}
}
