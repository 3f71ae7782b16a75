// Package dictionary persists the card name to reading mapping.
//
// The file is a UTF-8 JSON object, indented for hand editing. Keys are never
// removed; entries are only added or overwritten with cleaner values. A
// non-empty entry written by hand is authoritative.
package dictionary

import (
	"bytes"
	"encoding/json"
	"maps"
	"os"
	"slices"

	"github.com/agentstation/cardmap/internal/fsutil"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/readings"
)

// Dictionary maps card names to readings. The zero value is not usable;
// use New or Load.
type Dictionary struct {
	entries map[string]string
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{entries: make(map[string]string)}
}

// FromMap returns a dictionary holding a copy of m.
func FromMap(m map[string]string) *Dictionary {
	d := New()
	maps.Copy(d.entries, m)
	return d
}

// Load reads the dictionary at path. A missing file yields an empty
// dictionary. An unreadable or corrupt file also yields an empty dictionary
// and is logged as a warning, so a damaged file never stops a run.
func Load(path string) *Dictionary {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(errors.WrapIO("read", path, err)).Msg("Dictionary unreadable, starting empty")
		}
		return New()
	}

	d, err := Parse(data)
	if err != nil {
		logging.Warn().Err(errors.WrapParse("json", path, err)).Msg("Dictionary corrupt, starting empty")
		return New()
	}
	return d
}

// Parse decodes a dictionary document. Non-string values are ignored.
func Parse(data []byte) (*Dictionary, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	d := New()
	for name, v := range raw {
		switch s := v.(type) {
		case string:
			d.entries[name] = s
		case nil:
			d.entries[name] = ""
		}
	}
	return d, nil
}

// Save writes the dictionary to path atomically.
func (d *Dictionary) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return errors.WrapResource("encode", "dictionary", path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return errors.WrapResource("save", "dictionary", path, err)
	}
	return nil
}

// Marshal encodes the dictionary as indented JSON with sorted keys and
// without HTML escaping.
func (d *Dictionary) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d.entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Get returns the reading for name and whether an entry exists.
func (d *Dictionary) Get(name string) (string, bool) {
	r, ok := d.entries[name]
	return r, ok
}

// Has reports whether name has an entry, empty or not.
func (d *Dictionary) Has(name string) bool {
	_, ok := d.entries[name]
	return ok
}

// Set records reading for name.
func (d *Dictionary) Set(name, reading string) {
	d.entries[name] = reading
}

// Merge records every reading in m and returns how many entries changed.
func (d *Dictionary) Merge(m map[string]string) int {
	changed := 0
	for name, reading := range m {
		if old, ok := d.entries[name]; ok && old == reading {
			continue
		}
		d.entries[name] = reading
		changed++
	}
	return changed
}

// NormalizeAll rewrites every entry with its normalized form and returns
// how many entries changed.
func (d *Dictionary) NormalizeAll() int {
	changed := 0
	for name, reading := range d.entries {
		if clean := readings.Normalize(reading); clean != reading {
			d.entries[name] = clean
			changed++
		}
	}
	return changed
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Names returns the entry names in sorted order.
func (d *Dictionary) Names() []string {
	return slices.Sorted(maps.Keys(d.entries))
}

// Map returns a copy of the entries.
func (d *Dictionary) Map() map[string]string {
	return maps.Clone(d.entries)
}
