package cardmap

import (
	"context"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"

	"github.com/agentstation/cardmap/internal/fsutil"
	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/dictionary"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/queue"
	"github.com/agentstation/cardmap/pkg/scheduler"
)

// Compile-time interface check to ensure proper implementation.
var _ State = (*client)(nil)

// State handles the persisted annotation state.
type State interface {
	// Status reports the stored state and what the next run would plan.
	Status(ctx context.Context) (*Status, error)

	// Clean removes stored records and exports, and with state also the
	// dictionary and queue. It returns what was removed.
	Clean(ctx context.Context, state bool) ([]string, error)

	// Candidates returns the configured reader candidate names.
	Candidates() []string
}

// Status is a snapshot of the annotation state.
type Status struct {
	UpdatedAt  utc.Time     `json:"updated_at" yaml:"updated_at"`
	Sources    int          `json:"sources"    yaml:"sources"`
	Merge      cards.Stats  `json:"merge"      yaml:"merge"`
	Stored     queue.Counts `json:"stored"     yaml:"stored"`
	Dictionary int          `json:"dictionary" yaml:"dictionary"`

	// Pending is the queue as the next run would see it after syncing and
	// the local verification passes.
	Pending queue.Counts   `json:"pending" yaml:"pending"`
	Plan    scheduler.Plan `json:"plan"    yaml:"plan"`
}

// state is the loaded dictionary and queue.
type state struct {
	dict  *dictionary.Dictionary
	queue *queue.Queue
}

func (c *client) dictionaryPath() string {
	return filepath.Join(c.options.stateDir, constants.DictionaryFile)
}

func (c *client) queuePath() string {
	return filepath.Join(c.options.stateDir, constants.QueueFile)
}

func (c *client) lockPath() string {
	return filepath.Join(c.options.stateDir, constants.LockFile)
}

// loadState loads the dictionary and queue. Missing or corrupt files start
// empty.
func (c *client) loadState() *state {
	return &state{
		dict:  dictionary.Load(c.dictionaryPath()),
		queue: queue.Load(c.queuePath()),
	}
}

// saveState persists the dictionary before the queue, so a crash between
// the two leaves names unverified with a reading, which the next run
// verifies locally.
func (c *client) saveState(s *state) error {
	if err := s.dict.Save(c.dictionaryPath()); err != nil {
		return errors.WrapResource("save", "dictionary", c.dictionaryPath(), err)
	}
	if err := s.queue.Save(c.queuePath()); err != nil {
		return errors.WrapResource("save", "queue", c.queuePath(), err)
	}
	return nil
}

// lock takes the state directory run lock.
func (c *client) lock() (*fsutil.Lock, error) {
	return fsutil.AcquireLock(c.lockPath())
}

// Status implements State.
func (c *client) Status(ctx context.Context) (*Status, error) {
	ctx = c.withLogger(ctx)
	catalog, sources, _, err := c.merge(ctx)
	if err != nil {
		return nil, err
	}

	s := c.loadState()
	status := &Status{
		UpdatedAt:  s.queue.UpdatedAt(),
		Sources:    sources,
		Merge:      catalog.Stats,
		Stored:     s.queue.Counts(),
		Dictionary: s.dict.Len(),
	}

	s.queue.Sync(catalog.Names())
	s.dict.NormalizeAll()
	s.queue.Reconcile(s.dict)
	acceptLocally(s)

	status.Pending = s.queue.Counts()
	status.Plan = c.scheduler.Plan(s.queue.Unverified(), s.dict)
	return status, nil
}

// Clean implements State.
func (c *client) Clean(ctx context.Context, withState bool) ([]string, error) {
	ctx = c.withLogger(ctx)
	lock, err := c.lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	logger := logging.FromContext(ctx)
	var removed []string

	names, err := c.store.Sources(ctx)
	if err != nil {
		return nil, errors.WrapResource("list", "records", "", err)
	}
	for _, name := range names {
		if err := c.store.Delete(ctx, name); err != nil {
			return removed, errors.WrapResource("delete", "source", name, err)
		}
		removed = append(removed, "source:"+name)
	}

	paths := []string{
		filepath.Join(c.options.outputDir, constants.CatalogJSON),
		filepath.Join(c.options.outputDir, constants.MergedCSV),
		filepath.Join(c.options.outputDir, constants.MergedXLSX),
	}
	if withState {
		paths = append(paths, c.dictionaryPath(), c.queuePath())
	}
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case os.IsNotExist(err):
		default:
			return removed, errors.WrapIO("remove", p, err)
		}
	}

	logger.Info().Int("removed", len(removed)).Bool("state", withState).Msg("Cleaned")
	return removed, nil
}

// Records handles the record store.
type Records interface {
	// Import loads collector files, or the .csv and .json files of
	// directories, replacing the sources named after them.
	Import(ctx context.Context, paths ...string) ([]*records.ImportResult, error)

	// Sources lists the stored source names.
	Sources(ctx context.Context) ([]string, error)
}

// Import implements Records.
func (c *client) Import(ctx context.Context, paths ...string) ([]*records.ImportResult, error) {
	ctx = c.withLogger(ctx)
	files, err := records.Collect(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.NewValidationError("paths", paths, "no .csv or .json files found")
	}

	results := make([]*records.ImportResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := records.ImportFile(ctx, c.store, f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Sources implements Records.
func (c *client) Sources(ctx context.Context) ([]string, error) {
	return c.store.Sources(ctx)
}
