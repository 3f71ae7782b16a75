package records

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/errors"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	sources map[string][]cards.Card
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sources: make(map[string][]cards.Card)}
}

// Sources implements Store.
func (m *Memory) Sources(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, source string) ([]cards.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs, ok := m.sources[source]
	if !ok {
		return nil, errors.NewNotFoundError("source", source)
	}
	return slices.Clone(recs), nil
}

// Replace implements Store.
func (m *Memory) Replace(_ context.Context, source string, recs []cards.Card) error {
	if err := validSource(source); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source] = withSource(recs, source)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, source)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

func withSource(recs []cards.Card, source string) []cards.Card {
	out := make([]cards.Card, len(recs))
	for i, c := range recs {
		c.Source = source
		out[i] = c
	}
	return out
}
