// Package cardmap merges per-source card records into a canonical catalog
// and incrementally annotates card names with phonetic readings (furigana)
// from an external text-generation service.
//
// A run merges every stored source, queues the card names it has not seen
// before, verifies the names it can settle locally, spends a bounded quota
// of external calls on the rest and exports the catalog with the readings
// known so far. State is persisted after every annotation task, so an
// interrupted run loses at most one task.
//
// Example usage:
//
//	client, err := cardmap.New(
//	    cardmap.WithDataDir("./data"),
//	    cardmap.WithStateDir("."),
//	    cardmap.WithCandidates(candidates...),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Update(ctx, update.WithQuota(100))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
package cardmap

import (
	"context"
	"path/filepath"

	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/export"
	"github.com/agentstation/cardmap/pkg/reader"
	"github.com/agentstation/cardmap/pkg/scheduler"
	"github.com/agentstation/cardmap/pkg/update"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Updater runs the pipeline.
type Updater interface {
	// Update merges, annotates and exports.
	Update(ctx context.Context, opts ...update.Option) (*update.Result, error)

	// Export merges and exports with the stored dictionary. The queue is
	// not touched.
	Export(ctx context.Context, opts ...update.Option) (*update.Result, error)
}

// Client manages the record store, the annotation state and the exports.
type Client interface {

	// Updater handles update and export runs
	Updater

	// Records handles the record store
	Records

	// State handles the persisted annotation state
	State

	// Hooks provides access to event callback registration
	Hooks

	// Close releases the record store.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// store holds the collector records
	store records.Store

	// reader is nil when no candidates are configured
	reader *reader.Client

	// scheduler is the default scheduler, rebuilt per run when overridden
	scheduler *scheduler.Scheduler

	// exporter writes the catalog documents
	exporter *export.Exporter

	// hooks are the event callbacks
	hooks *hooks
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(o.schedulerConfig)
	if err != nil {
		return nil, errors.WrapResource("create", "scheduler", "", err)
	}

	c := &client{
		options:   o,
		scheduler: sched,
		exporter:  export.New(export.WithRandom(o.random), export.WithLogger(o.logger)),
		hooks:     newHooks(),
	}

	if len(o.candidates) > 0 {
		readerOpts := []reader.Option{reader.WithLogger(o.logger), reader.WithPrompt(o.prompt)}
		if o.sleeper != nil {
			readerOpts = append(readerOpts, reader.WithSleeper(o.sleeper))
		}
		if c.reader, err = reader.New(o.readerConfig, o.candidates, readerOpts...); err != nil {
			return nil, errors.WrapResource("create", "reader", "", err)
		}
	}

	if o.store != nil {
		c.store = o.store
	} else {
		location := o.dataDir
		if o.backend == records.BackendSQLite {
			location = filepath.Join(o.dataDir, constants.RecordsDatabase)
		}
		if c.store, err = records.Open(o.backend, location); err != nil {
			return nil, errors.WrapResource("open", "records", string(o.backend), err)
		}
	}

	o.logger.Debug().
		Str("backend", string(o.backend)).
		Str("data_dir", o.dataDir).
		Str("state_dir", o.stateDir).
		Int("candidates", len(o.candidates)).
		Msg("Client created")

	return c, nil
}

// Close releases the record store unless it was supplied by the caller.
func (c *client) Close() error {
	if c.options.store != nil {
		return nil
	}
	return c.store.Close()
}

// Candidates returns the reader's candidate names, or nil without a reader.
func (c *client) Candidates() []string {
	if c.reader == nil {
		return nil
	}
	return c.reader.Candidates()
}
