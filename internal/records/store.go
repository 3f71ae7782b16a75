// Package records persists per-source collector records. A source is the
// ordered record list of one collector output file.
package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
)

// Store is a source-keyed record store.
type Store interface {
	// Sources lists the stored source names in lexical order.
	Sources(ctx context.Context) ([]string, error)
	// Load returns the records of one source in stored order.
	Load(ctx context.Context, source string) ([]cards.Card, error)
	// Replace stores the records of a source, replacing any previous ones.
	Replace(ctx context.Context, source string, records []cards.Card) error
	// Delete removes a source. Deleting a missing source is not an error.
	Delete(ctx context.Context, source string) error
	// Close releases the store.
	Close() error
}

// Backend names a Store implementation.
type Backend string

// Backends.
const (
	BackendDir    Backend = "dir"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendDir, BackendSQLite, BackendMemory:
		return b, nil
	case "":
		return BackendDir, nil
	}
	return "", errors.NewValidationError("records_backend", s,
		fmt.Sprintf("unknown backend %q (want dir, sqlite or memory)", s))
}

// Open opens a store of the given backend. For dir the location is the data
// directory; for sqlite it is the database file.
func Open(backend Backend, location string) (Store, error) {
	switch backend {
	case BackendDir, "":
		return NewDir(location)
	case BackendSQLite:
		return OpenSQLite(location)
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, errors.NewValidationError("records_backend", string(backend), "unknown backend")
}

// LoadAll loads every source. A source that fails to load is skipped with a
// warning and counted in skipped.
func LoadAll(ctx context.Context, store Store) (sources []cards.Source, skipped int, err error) {
	logger := logging.FromContext(ctx)

	names, err := store.Sources(ctx)
	if err != nil {
		return nil, 0, errors.WrapResource("list", "records", "", err)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		recs, err := store.Load(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("source", name).Msg("Skipping unreadable source")
			skipped++
			continue
		}
		logger.Debug().Str("source", name).Int("records", len(recs)).Msg("Loaded source")
		sources = append(sources, cards.Source{Name: name, Cards: recs})
	}
	return sources, skipped, nil
}

func validSource(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.NewValidationError("source", name, "invalid source name")
	}
	return nil
}
