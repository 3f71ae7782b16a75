package update

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/save"
	pkgupdate "github.com/agentstation/cardmap/pkg/update"
)

// Flags holds the update command flags.
type Flags struct {
	SkipAnnotation bool
	Quota          int
	BatchSize      int
	NoReconcile    bool
	Formats        []string
	DryRun         bool
	OutputDir      string
	Timeout        time.Duration
}

func addFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{}
	f := cmd.Flags()
	f.BoolVar(&flags.SkipAnnotation, "skip-annotation", false, "export with the stored dictionary, no reading service calls")
	f.IntVar(&flags.Quota, "quota", 0, "maximum names submitted this run (default from config)")
	f.IntVar(&flags.BatchSize, "batch-size", 0, "maximum names per task (default from config)")
	f.BoolVar(&flags.NoReconcile, "no-reconcile", false, "do not verify names that already have a hand-written reading")
	f.StringSliceVar(&flags.Formats, "format", nil, "export formats: json, csv, xlsx (default from config)")
	f.BoolVar(&flags.DryRun, "dry-run", false, "plan and report without saving state or writing exports")
	f.StringVar(&flags.OutputDir, "output-dir", "", "export directory (default from config)")
	f.DurationVar(&flags.Timeout, "timeout", 0, "stop the run after this long (0 means no limit)")
	return flags
}

// Options returns base followed by the options for the flags that were
// set, so flags win over configuration.
func (f *Flags) Options(cmd *cobra.Command, base []pkgupdate.Option) ([]pkgupdate.Option, error) {
	opts := append([]pkgupdate.Option{}, base...)
	changed := cmd.Flags().Changed

	if changed("skip-annotation") {
		opts = append(opts, pkgupdate.WithSkipAnnotation(f.SkipAnnotation))
	}
	if changed("quota") {
		if f.Quota <= 0 {
			return nil, errors.NewValidationError("quota", f.Quota, "must be positive")
		}
		opts = append(opts, pkgupdate.WithQuota(f.Quota))
	}
	if changed("batch-size") {
		if f.BatchSize <= 0 {
			return nil, errors.NewValidationError("batch-size", f.BatchSize, "must be positive")
		}
		opts = append(opts, pkgupdate.WithBatchSize(f.BatchSize))
	}
	if f.NoReconcile {
		opts = append(opts, pkgupdate.WithReconcile(false))
	}
	if changed("format") {
		formats, err := save.ParseFormats(f.Formats)
		if err != nil {
			return nil, errors.NewValidationError("format", f.Formats, err.Error())
		}
		opts = append(opts, pkgupdate.WithFormats(formats...))
	}
	if f.DryRun {
		opts = append(opts, pkgupdate.WithDryRun(true))
	}
	if f.OutputDir != "" {
		opts = append(opts, pkgupdate.WithOutputDir(f.OutputDir))
	}
	if f.Timeout != 0 {
		opts = append(opts, pkgupdate.WithTimeout(f.Timeout))
	}
	return opts, nil
}
