package records

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/cardmap/internal/fsutil"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
)

// Dir stores one collector-format CSV file per source in a directory.
type Dir struct {
	path string
}

// NewDir returns a directory store rooted at path, creating it if needed.
func NewDir(path string) (*Dir, error) {
	if path == "" {
		return nil, errors.NewValidationError("data_dir", path, "path is required for the dir backend")
	}
	if err := os.MkdirAll(path, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", path, err)
	}
	return &Dir{path: path}, nil
}

// Path returns the store directory.
func (d *Dir) Path() string { return d.path }

func (d *Dir) file(source string) string {
	return filepath.Join(d.path, source+".csv")
}

// Sources implements Store.
func (d *Dir) Sources(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.WrapIO("read", d.path, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names, nil
}

// Load implements Store.
func (d *Dir) Load(ctx context.Context, source string) ([]cards.Card, error) {
	path := d.file(source)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("source", source)
		}
		return nil, errors.WrapIO("read", path, err)
	}
	defer func() { _ = f.Close() }()

	res, err := cards.DecodeCSV(f, source)
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}
	if res.Skipped > 0 {
		logging.FromContext(ctx).Warn().
			Str("source", source).
			Int("skipped", res.Skipped).
			Strs("problems", res.Problems).
			Msg("Skipped unreadable records")
	}
	return res.Cards, nil
}

// Replace implements Store.
func (d *Dir) Replace(_ context.Context, source string, recs []cards.Card) error {
	if err := validSource(source); err != nil {
		return err
	}
	return fsutil.WriteAtomic(d.file(source), func(w io.Writer) error {
		return cards.EncodeCSV(w, withSource(recs, source))
	})
}

// Delete implements Store.
func (d *Dir) Delete(_ context.Context, source string) error {
	if err := os.Remove(d.file(source)); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("remove", d.file(source), err)
	}
	return nil
}

// Close implements Store.
func (d *Dir) Close() error { return nil }
