package matrix

import (
	"cmp"
	"slices"
)

// Count is one tally entry.
type Count struct {
	Key   string
	Count int
}

// Tally counts occurrences of string keys and remembers the order in which
// keys were first seen.
type Tally struct {
	order  []string
	counts map[string]int
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add increments the count of key.
func (t *Tally) Add(key string) {
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
	}

	t.counts[key]++
}

// Len returns the number of distinct keys.
func (t *Tally) Len() int {
	return len(t.order)
}

// MostCommon returns up to n entries by descending count; equal counts keep
// first-seen order. n <= 0 returns every entry.
func (t *Tally) MostCommon(n int) []Count {
	entries := make([]Count, 0, len(t.order))
	for _, key := range t.order {
		entries = append(entries, Count{Key: key, Count: t.counts[key]})
	}

	slices.SortStableFunc(entries, func(a, b Count) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}

	return entries
}

// TeamTally counts team labels across rows; rows without team labels are skipped.
func TeamTally(rows []Row) *Tally {
	t := NewTally()

	for _, row := range rows {
		for _, team := range row.TeamLabels {
			t.Add(team)
		}
	}

	return t
}
