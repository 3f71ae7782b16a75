package cards_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/pkg/cards"
)

func flags(c *cards.Catalog) []bool {
	out := make([]bool, 0, c.Len())
	for _, e := range c.Entries {
		out = append(out, e.Duplicate)
	}
	return out
}

func TestMergeScenario(t *testing.T) {
	catalog := cards.Merge([]cards.Source{{
		Name: "op01",
		Cards: []cards.Card{
			{CardNumber: "OP01-001", Rarity: "C"},
			{CardNumber: "OP01-001", Rarity: "SP"},
		},
	}})

	require.Equal(t, 2, catalog.Len())
	assert.Equal(t, "C", catalog.Entries[0].Rarity)
	assert.False(t, catalog.Entries[0].Duplicate)
	assert.Equal(t, "SP", catalog.Entries[1].Rarity)
	assert.True(t, catalog.Entries[1].Duplicate)
}

func TestMergePrefersNormalOverSpecial(t *testing.T) {
	normal := cards.Card{CardNumber: "X", Rarity: "R", Name: "normal"}
	special := cards.Card{CardNumber: "X", Rarity: "R SP", Name: "special"}

	orders := map[string][]cards.Card{
		"normal first":  {normal, special},
		"special first": {special, normal},
	}
	for name, input := range orders {
		t.Run(name, func(t *testing.T) {
			catalog := cards.Merge([]cards.Source{{Name: "s", Cards: input}})
			canonical := catalog.Canonical()
			require.Len(t, canonical, 1)
			assert.Equal(t, "normal", canonical[0].Name)
		})
	}

	t.Run("across sources", func(t *testing.T) {
		catalog := cards.Merge([]cards.Source{
			{Name: "a", Cards: []cards.Card{special}},
			{Name: "b", Cards: []cards.Card{normal}},
		})
		assert.Equal(t, "normal", catalog.Canonical()[0].Name)
	})
}

func TestMergeLoneSpecialIsCanonical(t *testing.T) {
	catalog := cards.Merge([]cards.Source{{Name: "s", Cards: []cards.Card{
		{CardNumber: "P-001", Rarity: "SP"},
	}}})
	assert.Equal(t, []bool{false}, flags(catalog))
}

func TestMergeTieBreaksBySourceOrder(t *testing.T) {
	a := cards.Card{CardNumber: "ST01-001", Rarity: "L", Name: "from-a"}
	b := cards.Card{CardNumber: "ST01-001", Rarity: "L", Name: "from-b"}

	// Source slice order must not matter, only source names.
	catalog := cards.Merge([]cards.Source{
		{Name: "st02", Cards: []cards.Card{b}},
		{Name: "st01", Cards: []cards.Card{a}},
	})
	require.Len(t, catalog.Canonical(), 1)
	assert.Equal(t, "from-a", catalog.Canonical()[0].Name)
}

func TestMergeDeterministic(t *testing.T) {
	sources := []cards.Source{
		{Name: "op02", Cards: []cards.Card{
			{CardNumber: "OP02-003", Rarity: "SR"},
			{CardNumber: "OP01-001", Rarity: "SP"},
			{CardNumber: "OP02-001", Rarity: "L"},
		}},
		{Name: "op01", Cards: []cards.Card{
			{CardNumber: "OP01-001", Rarity: "L"},
			{CardNumber: "OP01-002", Rarity: "R"},
			{CardNumber: "OP02-003", Rarity: "SR SP"},
			{CardNumber: "OP01-002", Rarity: "R"},
		}},
	}

	first := cards.Merge(sources)
	second := cards.Merge(sources)
	assert.Equal(t, first.Entries, second.Entries)

	seen := map[string]int{}
	for _, e := range first.Entries {
		if !e.Duplicate {
			seen[e.CardNumber]++
		}
	}
	for number, n := range seen {
		assert.Equal(t, 1, n, "card number %s", number)
	}
	assert.Equal(t, cards.Stats{Sources: 2, Records: 7, Canonical: 4, Duplicates: 3}, first.Stats)
}

func TestMergeSkipsMissingCardNumber(t *testing.T) {
	catalog := cards.Merge([]cards.Source{{Name: "s", Cards: []cards.Card{
		{CardNumber: "", Name: "ghost"},
		{CardNumber: "A", Name: "real"},
	}}})
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, 1, catalog.Stats.Skipped)
}

func TestCatalogNames(t *testing.T) {
	catalog := cards.Merge([]cards.Source{{Name: "s", Cards: []cards.Card{
		{CardNumber: "B", Name: "ルフィ"},
		{CardNumber: "A", Name: "ゾロ"},
		{CardNumber: "A", Name: "ゾロ", Rarity: "SP"},
		{CardNumber: "C", Name: ""},
	}}})
	assert.Equal(t, []string{"ゾロ", "ルフィ"}, catalog.Names())
}
