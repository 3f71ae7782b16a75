// Package queue tracks which card names still need a reading.
//
// A Queue partitions every known name into two disjoint sets. Verified names
// get no further external attempt; unverified names are pending. Sync only
// ever adds names, so the union of both sets grows monotonically.
package queue

import (
	"maps"
	"os"
	"slices"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/cardmap/internal/fsutil"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/readings"
)

// Queue is the verified/unverified partition of card names.
type Queue struct {
	verified   map[string]struct{}
	unverified map[string]struct{}
	updatedAt  utc.Time
}

// document is the persisted form. Lists are sorted on save and
// de-duplicated on load.
type document struct {
	Verified   []string `yaml:"verified"`
	Unverified []string `yaml:"unverified"`
	UpdatedAt  utc.Time `yaml:"updated_at"`
}

// Entries is the read side of a reading dictionary.
type Entries interface {
	Names() []string
	Get(name string) (string, bool)
}

// Counts summarizes the queue.
type Counts struct {
	Verified   int `json:"verified"   yaml:"verified"`
	Unverified int `json:"unverified" yaml:"unverified"`
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{
		verified:   make(map[string]struct{}),
		unverified: make(map[string]struct{}),
	}
}

// Load reads the queue at path. A missing file yields an empty queue; an
// unreadable or corrupt file yields an empty queue and a warning.
func Load(path string) *Queue {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(errors.WrapIO("read", path, err)).Msg("Queue unreadable, starting empty")
		}
		return New()
	}
	q, err := Parse(data)
	if err != nil {
		logging.Warn().Err(errors.WrapParse("yaml", path, err)).Msg("Queue corrupt, starting empty")
		return New()
	}
	return q
}

// Parse decodes a queue document. A name listed in both sets is kept as
// verified.
func Parse(data []byte) (*Queue, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	q := New()
	q.updatedAt = doc.UpdatedAt
	for _, name := range doc.Verified {
		if name != "" {
			q.verified[name] = struct{}{}
		}
	}
	for _, name := range doc.Unverified {
		if name == "" {
			continue
		}
		if _, ok := q.verified[name]; !ok {
			q.unverified[name] = struct{}{}
		}
	}
	return q, nil
}

// Marshal encodes the queue with sorted lists and the current time.
func (q *Queue) Marshal() ([]byte, error) {
	q.updatedAt = utc.Now()
	return yaml.MarshalWithOptions(document{
		Verified:   q.Verified(),
		Unverified: q.Unverified(),
		UpdatedAt:  q.updatedAt,
	}, yaml.Indent(2), yaml.IndentSequence(true))
}

// Save writes the queue to path atomically.
func (q *Queue) Save(path string) error {
	data, err := q.Marshal()
	if err != nil {
		return errors.WrapResource("encode", "queue", path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return errors.WrapResource("save", "queue", path, err)
	}
	return nil
}

// Sync adds every name not yet in either set to the unverified set and
// returns how many were added. Nothing is removed, so a second Sync with
// the same names is a no-op.
func (q *Queue) Sync(names []string) int {
	added := 0
	for _, name := range names {
		if name == "" || q.Contains(name) {
			continue
		}
		q.unverified[name] = struct{}{}
		added++
	}
	return added
}

// Reconcile moves every name whose dictionary entry is non-empty after
// normalization and that is not yet verified into the verified set.
// Hand-written entries therefore skip the external reader. It returns the
// moved names in sorted order.
func (q *Queue) Reconcile(entries Entries) []string {
	var moved []string
	for _, name := range entries.Names() {
		reading, _ := entries.Get(name)
		if readings.Normalize(reading) == "" || q.IsVerified(name) {
			continue
		}
		q.verify(name)
		moved = append(moved, name)
	}
	slices.Sort(moved)
	return moved
}

// Verify moves names into the verified set and returns how many changed
// state.
func (q *Queue) Verify(names ...string) int {
	n := 0
	for _, name := range names {
		if name == "" || q.IsVerified(name) {
			continue
		}
		q.verify(name)
		n++
	}
	return n
}

func (q *Queue) verify(name string) {
	delete(q.unverified, name)
	q.verified[name] = struct{}{}
}

// IsVerified reports whether name is verified.
func (q *Queue) IsVerified(name string) bool {
	_, ok := q.verified[name]
	return ok
}

// IsUnverified reports whether name is pending.
func (q *Queue) IsUnverified(name string) bool {
	_, ok := q.unverified[name]
	return ok
}

// Contains reports whether name is in either set.
func (q *Queue) Contains(name string) bool {
	return q.IsVerified(name) || q.IsUnverified(name)
}

// Verified returns the verified names sorted.
func (q *Queue) Verified() []string {
	return slices.Sorted(maps.Keys(q.verified))
}

// Unverified returns the pending names sorted.
func (q *Queue) Unverified() []string {
	return slices.Sorted(maps.Keys(q.unverified))
}

// Counts returns the size of both sets.
func (q *Queue) Counts() Counts {
	return Counts{Verified: len(q.verified), Unverified: len(q.unverified)}
}

// UpdatedAt returns the time of the last save or load.
func (q *Queue) UpdatedAt() utc.Time {
	return q.updatedAt
}
