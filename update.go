package cardmap

import (
	"context"
	"path/filepath"

	"github.com/agentstation/utc"

	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/reader"
	"github.com/agentstation/cardmap/pkg/readings"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/scheduler"
	"github.com/agentstation/cardmap/pkg/update"
)

// Update runs the full pipeline: merge, queue sync and reconcile, the local
// acceptance pass, scheduling, annotation and export. Dictionary and queue
// are saved after the local passes and after every task.
func (c *client) Update(ctx context.Context, opts ...update.Option) (*update.Result, error) {
	// Step 1: Parse options
	options := update.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Setup context with timeout
	ctx, cancel := withTimeout(c.withLogger(ctx), options)
	defer cancel()
	logger := logging.FromContext(ctx)

	result := &update.Result{
		StartedAt:      utc.Now(),
		DryRun:         options.DryRun,
		SkipAnnotation: options.SkipAnnotation,
	}

	// Step 3: Refuse concurrent runs
	if !options.DryRun {
		lock, err := c.lock()
		if err != nil {
			return nil, err
		}
		defer func() { _ = lock.Release() }()
	}

	// Step 4: Merge every source
	catalog, _, skipped, err := c.merge(ctx)
	if err != nil {
		return nil, err
	}
	result.Merge = catalog.Stats
	result.SkippedSources = skipped

	// Step 5: Sync the queue with the catalog names and settle what can be
	// settled locally
	s := c.loadState()
	result.NewNames = s.queue.Sync(catalog.Names())
	result.Normalized = s.dict.NormalizeAll()
	if options.Reconcile {
		result.Reconciled = s.queue.Reconcile(s.dict)
		c.hooks.triggerNamesVerified(result.Reconciled, ReasonReconciled)
	}
	result.FastVerified = acceptLocally(s)
	c.hooks.triggerNamesVerified(result.FastVerified, ReasonAccepted)

	logger.Info().
		Int("new_names", result.NewNames).
		Int("reconciled", len(result.Reconciled)).
		Int("normalized", result.Normalized).
		Int("accepted", len(result.FastVerified)).
		Int("unverified", s.queue.Counts().Unverified).
		Msg("Queue synchronized")

	if !options.DryRun {
		if err := c.saveState(s); err != nil {
			return nil, err
		}
	}

	// Step 6: Plan the annotation tasks
	sched, err := c.schedulerFor(options)
	if err != nil {
		return nil, err
	}
	result.Plan = sched.Plan(s.queue.Unverified(), s.dict)
	logger.Info().
		Int("tasks", len(result.Plan.Tasks)).
		Int("names", len(result.Plan.Selected)).
		Int("deferred", result.Plan.Deferred).
		Msg("Annotation planned")

	// Step 7: Annotate
	var runErr error
	switch {
	case options.DryRun:
		logger.Info().Bool("dry_run", true).Msg("Dry run, skipping annotation")
	case options.SkipAnnotation:
		logger.Info().Msg("Annotation skipped")
	case c.reader == nil:
		logger.Warn().Msg("No reader candidates configured, skipping annotation")
		result.SkipAnnotation = true
	default:
		runErr = c.annotate(ctx, s, result)
	}

	// Step 8: Export, unless the run was interrupted
	if runErr == nil && !options.DryRun {
		exports, err := c.exportAll(catalog, s, options)
		if err != nil {
			return nil, err
		}
		result.Exports = exports
	}

	result.Queue = s.queue.Counts()
	result.Dictionary = s.dict.Len()
	result.FinishedAt = utc.Now()

	if runErr != nil {
		return result, runErr
	}
	logger.Info().Str("duration", result.Duration()).Msg(result.Summary())
	return result, nil
}

// Export implements Updater.
func (c *client) Export(ctx context.Context, opts ...update.Option) (*update.Result, error) {
	options := update.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(c.withLogger(ctx), options)
	defer cancel()

	result := &update.Result{StartedAt: utc.Now(), DryRun: options.DryRun, SkipAnnotation: true}

	catalog, _, skipped, err := c.merge(ctx)
	if err != nil {
		return nil, err
	}
	result.Merge = catalog.Stats
	result.SkippedSources = skipped

	s := c.loadState()
	result.Normalized = s.dict.NormalizeAll()
	if !options.DryRun {
		if result.Exports, err = c.exportAll(catalog, s, options); err != nil {
			return nil, err
		}
	}
	result.Queue = s.queue.Counts()
	result.Dictionary = s.dict.Len()
	result.FinishedAt = utc.Now()
	return result, nil
}

// withLogger attaches the client logger unless ctx already carries one.
func (c *client) withLogger(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.FromContext(ctx) == logging.Default() {
		return logging.WithLogger(ctx, c.options.logger)
	}
	return ctx
}

func withTimeout(ctx context.Context, options *update.Options) (context.Context, context.CancelFunc) {
	if options.Timeout > 0 {
		return context.WithTimeout(ctx, options.Timeout)
	}
	return ctx, func() {}
}

// merge loads every stored source and merges them.
func (c *client) merge(ctx context.Context) (*cards.Catalog, int, int, error) {
	sources, skipped, err := records.LoadAll(ctx, c.store)
	if err != nil {
		return nil, 0, 0, err
	}
	catalog := cards.Merge(sources)
	logging.FromContext(ctx).Info().
		Int("sources", len(sources)).
		Int("records", catalog.Stats.Records).
		Int("canonical", catalog.Stats.Canonical).
		Int("duplicates", catalog.Stats.Duplicates).
		Msg("Merged sources")
	return catalog, len(sources), skipped, nil
}

// acceptLocally verifies every unverified name whose dictionary reading
// passes the acceptance check, or whose own normalized form does; the
// latter is recorded as the reading. It returns the verified names.
func acceptLocally(s *state) []string {
	var accepted []string
	for _, name := range s.queue.Unverified() {
		if r, ok := s.dict.Get(name); ok && readings.IsAcceptable(r) {
			accepted = append(accepted, name)
			continue
		}
		if readings.IsAcceptable(name) {
			s.dict.Set(name, readings.Normalize(name))
			accepted = append(accepted, name)
		}
	}
	s.queue.Verify(accepted...)
	return accepted
}

// schedulerFor returns the client scheduler, or a new one when the run
// overrides quota or batch size.
func (c *client) schedulerFor(options *update.Options) (*scheduler.Scheduler, error) {
	if options.Quota == 0 && options.BatchSize == 0 {
		return c.scheduler, nil
	}
	cfg := c.options.schedulerConfig
	if options.Quota > 0 {
		cfg.Quota = options.Quota
	}
	if options.BatchSize > 0 {
		cfg.BatchSize = options.BatchSize
	}
	return scheduler.New(cfg)
}

// annotate runs the planned tasks. A task that exhausts its attempts still
// verifies its names so a stuck name cannot block the queue. Running out of
// candidates stops annotation and leaves the remaining names unverified.
func (c *client) annotate(ctx context.Context, s *state, result *update.Result) error {
	logger := logging.FromContext(ctx)
	tasks := result.Plan.Tasks

	for _, task := range tasks {
		taskLog := logger.With().Int("task", task.Index).Int("names", len(task.Names)).Logger()
		taskLog.Info().Int("of", len(tasks)).Msg("Annotating")

		tr := update.TaskResult{Index: task.Index, Names: len(task.Names)}
		res, err := c.reader.Read(ctx, task.Names)
		switch {
		case err == nil:
			tr.Model = res.Model
			tr.Attempts = res.Attempts
			tr.Readings = s.dict.Merge(res.Readings)
			result.Readings += tr.Readings
		case ctx.Err() != nil:
			result.Stopped = ctx.Err().Error()
			return ctx.Err()
		case errors.Is(err, reader.ErrNoCandidates):
			result.Stopped = err.Error()
			taskLog.Warn().Err(err).Msg("Stopping annotation")
			return nil
		case errors.Is(err, reader.ErrTaskFailed):
			tr.Failed = true
			tr.Error = err.Error()
			var te *reader.TaskError
			if errors.As(err, &te) {
				tr.Attempts = te.Attempts
			}
			taskLog.Error().Err(err).Msg("Annotation task failed, marking names as processed")
		default:
			return errors.WrapResource("annotate", "task", "", err)
		}

		s.queue.Verify(task.Names...)
		if err := c.saveState(s); err != nil {
			return err
		}
		result.Tasks = append(result.Tasks, tr)
		c.hooks.triggerNamesVerified(task.Names, ReasonAnnotated)
		c.hooks.triggerTaskCompleted(tr)
		taskLog.Info().
			Str("candidate", tr.Model).
			Int("readings", tr.Readings).
			Bool("failed", tr.Failed).
			Msg("Task completed")

		if err := c.reader.Pause(ctx); err != nil {
			result.Stopped = err.Error()
			return err
		}
	}
	return nil
}

// exportAll writes one file per requested format into the output directory.
func (c *client) exportAll(catalog *cards.Catalog, s *state, options *update.Options) ([]update.ExportResult, error) {
	dir := options.OutputDir
	if dir == "" {
		dir = c.options.outputDir
	}
	formats := options.Formats
	if len(formats) == 0 {
		formats = []save.Format{save.FormatJSON}
	}

	var results []update.ExportResult
	for _, f := range formats {
		path := filepath.Join(dir, exportFile(f))
		if err := c.exporter.Save(catalog, s.dict, save.WithFormat(f), save.WithPath(path)); err != nil {
			return results, errors.WrapResource("export", "catalog", f.String(), err)
		}
		count := catalog.Len()
		if f == save.FormatJSON {
			count = catalog.Stats.Canonical
		}
		results = append(results, update.ExportResult{Format: f, Name: f.String(), Path: path, Records: count})
	}
	return results, nil
}

func exportFile(f save.Format) string {
	switch f {
	case save.FormatCSV:
		return constants.MergedCSV
	case save.FormatXLSX:
		return constants.MergedXLSX
	}
	return constants.CatalogJSON
}
