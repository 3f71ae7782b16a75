package cards

import (
	"cmp"
	"slices"
)

// Source is the ordered record list of one collector source.
type Source struct {
	Name  string
	Cards []Card
}

// Entry is a catalog record with its duplicate flag.
type Entry struct {
	Card
	Duplicate bool `json:"duplicate" yaml:"duplicate"`
}

// Stats summarizes a merge.
type Stats struct {
	Sources    int `json:"sources"    yaml:"sources"`
	Records    int `json:"records"    yaml:"records"`
	Canonical  int `json:"canonical"  yaml:"canonical"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Skipped    int `json:"skipped"    yaml:"skipped"`
}

// Catalog is the merged, duplicate-resolved record list. For every card
// number at most one entry has Duplicate == false.
type Catalog struct {
	Entries []Entry
	Stats   Stats
}

// Merge combines sources into a catalog. Sources are visited in lexical
// order of their names and records in source order. Records are stably
// sorted by (card number, priority rank), where special variants rank after
// normal ones; the first record per card number is canonical and every later
// one is a duplicate. Records without a card number are skipped.
func Merge(sources []Source) *Catalog {
	ordered := slices.Clone(sources)
	slices.SortStableFunc(ordered, func(a, b Source) int {
		return cmp.Compare(a.Name, b.Name)
	})

	catalog := &Catalog{}
	catalog.Stats.Sources = len(ordered)

	var all []Card
	for _, src := range ordered {
		for _, c := range src.Cards {
			if c.CardNumber == "" {
				catalog.Stats.Skipped++
				continue
			}
			all = append(all, c)
		}
	}

	slices.SortStableFunc(all, func(a, b Card) int {
		if c := cmp.Compare(a.CardNumber, b.CardNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.priorityRank(), b.priorityRank())
	})

	catalog.Entries = make([]Entry, 0, len(all))
	for i, c := range all {
		dup := i > 0 && all[i-1].CardNumber == c.CardNumber
		catalog.Entries = append(catalog.Entries, Entry{Card: c, Duplicate: dup})
		if dup {
			catalog.Stats.Duplicates++
		} else {
			catalog.Stats.Canonical++
		}
	}
	catalog.Stats.Records = len(catalog.Entries)
	return catalog
}

// Len returns the number of entries, duplicates included.
func (c *Catalog) Len() int {
	return len(c.Entries)
}

// Canonical returns the non-duplicate records in catalog order.
func (c *Catalog) Canonical() []Card {
	out := make([]Card, 0, c.Stats.Canonical)
	for _, e := range c.Entries {
		if !e.Duplicate {
			out = append(out, e.Card)
		}
	}
	return out
}

// Names returns every distinct non-empty card name, duplicates included,
// in first-seen catalog order.
func (c *Catalog) Names() []string {
	seen := make(map[string]struct{}, len(c.Entries))
	var names []string
	for _, e := range c.Entries {
		if e.Name == "" {
			continue
		}
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}
	return names
}
