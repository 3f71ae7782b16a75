package cardmap

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/internal/fsutil"
	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/dictionary"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/export"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/queue"
	"github.com/agentstation/cardmap/pkg/reader"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/scheduler"
	"github.com/agentstation/cardmap/pkg/update"
)

func noSleep(context.Context, time.Duration) error { return nil }

type fixture struct {
	store    *records.Memory
	stateDir string
	outDir   string
	calls    atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    records.NewMemory(),
		stateDir: t.TempDir(),
		outDir:   t.TempDir(),
	}
	require.NoError(t, f.store.Replace(context.Background(), "op01", []cards.Card{
		{CardNumber: "OP01-001", Name: "ロロノア・ゾロ", Rarity: "SP", ImageFileID: "OP01-001_p1"},
		{CardNumber: "OP01-001", Name: "ロロノア・ゾロ", Rarity: "L", ImageFileID: "OP01-001"},
		{CardNumber: "OP01-002", Name: "芳香脚", Rarity: "C", SetInfo: "ROMANCE DAWN【OP-01】"},
		{CardNumber: "OP01-003", Name: "麦わらの一味", Rarity: "R"},
	}))
	return f
}

func (f *fixture) client(t *testing.T, fn func(ctx context.Context, prompt string) (string, error), opts ...Option) Client {
	t.Helper()
	base := []Option{
		WithStore(f.store),
		WithStateDir(f.stateDir),
		WithOutputDir(f.outDir),
		WithSleeper(noSleep),
		WithLogger(&logging.Nop),
	}
	if fn != nil {
		base = append(base, WithCandidates(reader.CandidateFunc{
			ID: "fake",
			Fn: func(ctx context.Context, prompt string) (string, error) {
				f.calls.Add(1)
				return fn(ctx, prompt)
			},
		}))
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (f *fixture) state(t *testing.T) (*dictionary.Dictionary, *queue.Queue) {
	t.Helper()
	return dictionary.Load(filepath.Join(f.stateDir, constants.DictionaryFile)),
		queue.Load(filepath.Join(f.stateDir, constants.QueueFile))
}

func answer(ctx context.Context, prompt string) (string, error) {
	return "了解しました。\n```json\n{\"芳香脚\": \"パフューム・フェムル\", \"麦わらの一味\": \"むぎわらのいちみ\", \"extra\": \"エクストラ\"}\n```", nil
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, answer)

	var completed []update.TaskResult
	verified := map[string][]string{}
	c.OnTaskCompleted(func(task update.TaskResult) { completed = append(completed, task) })
	c.OnNamesVerified(func(names []string, reason string) { verified[reason] = append(verified[reason], names...) })

	result, err := c.Update(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Merge.Records)
	assert.Equal(t, 3, result.Merge.Canonical)
	assert.Equal(t, 1, result.Merge.Duplicates)
	assert.Equal(t, 3, result.NewNames)
	assert.Equal(t, []string{"ロロノア・ゾロ"}, result.FastVerified)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "fake", result.Tasks[0].Model)
	assert.Equal(t, 2, result.Readings)
	assert.Equal(t, queue.Counts{Verified: 3, Unverified: 0}, result.Queue)
	assert.EqualValues(t, 1, f.calls.Load())

	assert.Len(t, completed, 1)
	assert.Equal(t, []string{"ロロノア・ゾロ"}, verified[ReasonAccepted])
	assert.ElementsMatch(t, []string{"芳香脚", "麦わらの一味"}, verified[ReasonAnnotated])

	dict, q := f.state(t)
	r, _ := dict.Get("芳香脚")
	assert.Equal(t, "パフューム・フェムル", r)
	assert.False(t, dict.Has("extra"))
	assert.Equal(t, queue.Counts{Verified: 3}, q.Counts())

	require.Len(t, result.Exports, 1)
	data, err := os.ReadFile(filepath.Join(f.outDir, constants.CatalogJSON))
	require.NoError(t, err)
	require.NoError(t, export.Validate(data))
	assert.Contains(t, string(data), `"uniqueId": "OP01-001_OP01-001"`)
	assert.Contains(t, string(data), `"furigana": "パフューム・フェムル"`)
	assert.Contains(t, string(data), `"seriesCode": "OP-01"`)

	// A second run has nothing left to annotate.
	result, err = c.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewNames)
	assert.Empty(t, result.Tasks)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestUpdateFailedTaskStillVerifies(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, func(context.Context, string) (string, error) {
		return "", errors.NewAPIError("fake", 400, "bad request")
	})

	result, err := c.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.True(t, result.Tasks[0].Failed)
	assert.Equal(t, reader.DefaultConfig().MaxAttempts, result.Tasks[0].Attempts)
	assert.Equal(t, 0, result.Queue.Unverified)
	assert.EqualValues(t, reader.DefaultConfig().MaxAttempts, f.calls.Load())

	_, err = os.Stat(filepath.Join(f.outDir, constants.CatalogJSON))
	assert.NoError(t, err)
}

func TestUpdateStopsWhenNoCandidateRemains(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, func(context.Context, string) (string, error) {
		return "", &errors.APIError{Provider: "fake", StatusCode: 404, Status: "NOT_FOUND", Message: "no such model"}
	})

	result, err := c.Update(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Tasks)
	assert.NotEmpty(t, result.Stopped)
	assert.Equal(t, 2, result.Queue.Unverified)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Len(t, result.Exports, 1)
}

func TestUpdateSkipAnnotation(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, answer)

	result, err := c.Update(context.Background(),
		update.WithSkipAnnotation(true),
		update.WithFormats(save.FormatJSON, save.FormatCSV, save.FormatXLSX))
	require.NoError(t, err)
	assert.EqualValues(t, 0, f.calls.Load())
	assert.Equal(t, 2, result.Queue.Unverified)
	assert.Len(t, result.Exports, 3)
	for _, name := range []string{constants.CatalogJSON, constants.MergedCSV, constants.MergedXLSX} {
		_, err := os.Stat(filepath.Join(f.outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestUpdateWithoutCandidates(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, nil)

	result, err := c.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, result.SkipAnnotation)
	assert.Equal(t, 2, result.Queue.Unverified)
}

func TestUpdateDryRun(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, answer)

	result, err := c.Update(context.Background(), update.WithDryRun(true))
	require.NoError(t, err)
	assert.EqualValues(t, 0, f.calls.Load())
	assert.Equal(t, []string{"芳香脚", "麦わらの一味"}, result.Plan.Names())
	assert.Empty(t, result.Exports)

	for _, name := range []string{constants.DictionaryFile, constants.QueueFile} {
		_, err := os.Stat(filepath.Join(f.stateDir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
	_, err = os.Stat(filepath.Join(f.outDir, constants.CatalogJSON))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateQuota(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, answer, WithSchedulerConfig(scheduler.Config{Quota: 1, BatchSize: 30, Keywords: scheduler.DefaultKeywords}))

	result, err := c.Update(context.Background())
	require.NoError(t, err)
	// 芳香脚 carries a keyword bonus and is scheduled first.
	assert.Equal(t, []string{"芳香脚"}, result.Plan.Names())
	assert.Equal(t, 1, result.Plan.Deferred)
	assert.Equal(t, 1, result.Queue.Unverified)

	_, q := f.state(t)
	assert.True(t, q.IsUnverified("麦わらの一味"))
}

func TestUpdateReconcile(t *testing.T) {
	for _, reconcile := range []bool{true, false} {
		t.Run(map[bool]string{true: "enabled", false: "disabled"}[reconcile], func(t *testing.T) {
			f := newFixture(t)
			manual := dictionary.FromMap(map[string]string{"芳香脚": "ホウコウ脚"})
			require.NoError(t, manual.Save(filepath.Join(f.stateDir, constants.DictionaryFile)))

			c := f.client(t, nil)
			result, err := c.Update(context.Background(), update.WithReconcile(reconcile), update.WithSkipAnnotation(true))
			require.NoError(t, err)

			if reconcile {
				assert.Equal(t, []string{"芳香脚"}, result.Reconciled)
				assert.Equal(t, []string{"麦わらの一味"}, result.Plan.Names())
			} else {
				assert.Empty(t, result.Reconciled)
				assert.Equal(t, []string{"麦わらの一味", "芳香脚"}, result.Plan.Names())
			}
		})
	}
}

func TestUpdatePausesAfterEveryTask(t *testing.T) {
	f := newFixture(t)
	var waits []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	cfg := reader.DefaultConfig()
	cfg.TaskDelay = 2 * time.Second
	failing := func(context.Context, string) (string, error) { return "", errors.New("connection reset") }
	c := f.client(t, failing, WithReaderConfig(cfg), WithSleeper(sleeper))

	result, err := c.Update(context.Background(), update.WithBatchSize(1), update.WithSkipAnnotation(false))
	require.NoError(t, err)
	require.Len(t, result.Tasks, 2)
	assert.Equal(t, 2, result.FailedTasks())

	var pauses int
	for _, d := range waits {
		if d == cfg.TaskDelay {
			pauses++
		}
	}
	assert.Equal(t, 2, pauses, "one pause per task, failed ones included")
}

func TestUpdateBlankEntryStaysPending(t *testing.T) {
	f := newFixture(t)
	manual := dictionary.FromMap(map[string]string{"芳香脚": "\u3000"})
	require.NoError(t, manual.Save(filepath.Join(f.stateDir, constants.DictionaryFile)))

	c := f.client(t, nil)
	result, err := c.Update(context.Background(), update.WithSkipAnnotation(true))
	require.NoError(t, err)

	assert.Empty(t, result.Reconciled)
	assert.Contains(t, result.Plan.Names(), "芳香脚")
	_, q := f.state(t)
	assert.True(t, q.IsUnverified("芳香脚"))
}

func TestUpdateRefusesConcurrentRun(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, answer)

	lock, err := fsutil.AcquireLock(filepath.Join(f.stateDir, constants.LockFile))
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	_, err = c.Update(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLocked))
}

func TestUpdateCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	c := f.client(t, func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	})

	result, err := c.Update(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Exports)

	_, q := f.state(t)
	assert.Equal(t, 2, q.Counts().Unverified)
}

func TestUpdateInvalidOptions(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, nil)
	_, err := c.Update(context.Background(), update.WithQuota(-1))
	assert.True(t, errors.IsValidationError(err))
}

func TestExportDoesNotTouchQueue(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, answer)

	result, err := c.Export(context.Background(), update.WithFormats(save.FormatCSV))
	require.NoError(t, err)
	require.Len(t, result.Exports, 1)
	assert.Equal(t, 4, result.Exports[0].Records)

	_, err = os.Stat(filepath.Join(f.stateDir, constants.QueueFile))
	assert.True(t, os.IsNotExist(err))
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, nil)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Sources)
	assert.Equal(t, queue.Counts{}, status.Stored)
	assert.Equal(t, queue.Counts{Verified: 1, Unverified: 2}, status.Pending)
	assert.Len(t, status.Plan.Tasks, 1)

	_, err = os.Stat(filepath.Join(f.stateDir, constants.QueueFile))
	assert.True(t, os.IsNotExist(err))
}

func TestImportAndClean(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, nil)

	in := filepath.Join(t.TempDir(), "st01.csv")
	require.NoError(t, os.WriteFile(in, []byte("CardID,Name,Rarity\nST01-001,モンキー・D・ルフィ,L\n"), 0o644))

	results, err := c.Import(ctx, in)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "st01", results[0].Source)

	sources, err := c.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"op01", "st01"}, sources)

	_, err = c.Update(ctx, update.WithSkipAnnotation(true))
	require.NoError(t, err)

	removed, err := c.Clean(ctx, false)
	require.NoError(t, err)
	assert.Contains(t, removed, "source:op01")
	assert.Contains(t, removed, filepath.Join(f.outDir, constants.CatalogJSON))
	_, err = os.Stat(filepath.Join(f.stateDir, constants.DictionaryFile))
	assert.NoError(t, err)

	removed, err = c.Clean(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(f.stateDir, constants.DictionaryFile),
		filepath.Join(f.stateDir, constants.QueueFile),
	}, removed)

	sources, err = c.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestAcceptLocally(t *testing.T) {
	s := &state{
		dict:  dictionary.FromMap(map[string]string{"龍": "りゅう", "剣": "ケン123"}),
		queue: queue.New(),
	}
	s.queue.Sync([]string{"龍", "剣", "ドラゴン", "ﾄﾞﾗｺﾞﾝ", "ドラゴン123"})

	accepted := acceptLocally(s)
	assert.ElementsMatch(t, []string{"龍", "ドラゴン", "ﾄﾞﾗｺﾞﾝ"}, accepted)

	r, _ := s.dict.Get("ﾄﾞﾗｺﾞﾝ")
	assert.Equal(t, "ドラゴン", r)
	assert.Equal(t, []string{"ドラゴン123", "剣"}, s.queue.Unverified())
}
