package records

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
)

// ImportResult describes one imported source file.
type ImportResult struct {
	Source   string   `json:"source"  yaml:"source"`
	File     string   `json:"file"    yaml:"file"`
	Records  int      `json:"records" yaml:"records"`
	Skipped  int      `json:"skipped" yaml:"skipped"`
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// SourceName derives a source name from a file path: the base name without
// its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportFile decodes a collector .csv or .json file and replaces the source
// named after it.
func ImportFile(ctx context.Context, store Store, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer func() { _ = f.Close() }()

	source := SourceName(path)
	var res *cards.DecodeResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		res, err = cards.DecodeCSV(f, source)
	case ".json":
		res, err = cards.DecodeJSON(f, source)
	default:
		return nil, errors.NewValidationError("file", path, "unsupported file type (want .csv or .json)")
	}
	if err != nil {
		return nil, err
	}

	if err := store.Replace(ctx, source, res.Cards); err != nil {
		return nil, errors.WrapResource("import", "source", source, err)
	}

	logger := logging.FromContext(ctx)
	for _, p := range res.Problems {
		logger.Warn().Str("source", source).Str("problem", p).Msg("Skipped record")
	}
	logger.Info().Str("source", source).Int("records", len(res.Cards)).Int("skipped", res.Skipped).Msg("Imported source")

	return &ImportResult{
		Source:   source,
		File:     path,
		Records:  len(res.Cards),
		Skipped:  res.Skipped,
		Problems: res.Problems,
	}, nil
}

// Collect expands paths into importable files. Directories contribute their
// .csv and .json files (not recursively), sorted by name.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.WrapIO("stat", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.WrapIO("read", p, err)
		}
		var found []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".csv" || ext == ".json") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
