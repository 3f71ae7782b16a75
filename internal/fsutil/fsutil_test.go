package fsutil_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/internal/fsutil"
	pkgerrors "github.com/agentstation/cardmap/pkg/errors"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "queue.yaml")

	require.NoError(t, fsutil.WriteFileAtomic(path, []byte("first")))
	require.NoError(t, fsutil.WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteAtomicKeepsOldContentOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "furigana_dictionary.json")
	require.NoError(t, fsutil.WriteFileAtomic(path, []byte(`{"a":"b"}`)))

	boom := errors.New("boom")
	err := fsutil.WriteAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte(`{"trunc`))
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cardmap.lock")

	first, err := fsutil.AcquireLock(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	_, err = fsutil.AcquireLock(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrLocked)

	require.NoError(t, first.Release())

	second, err := fsutil.AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
	require.NoError(t, second.Release())
}
