package tokenizer

import (
	"sort"
	"unicode/utf8"
)

// Unit is one learned subword unit and its aggregate frequency.
type Unit struct {
	Text string `json:"unit"`
	Freq int    `json:"frequency"`
}

// UnitTable is the frequency-weighted set of learned units together with the
// length, in characters, of the longest unit. Units keep their first-seen
// order so that persisted output is reproducible.
type UnitTable struct {
	freq      map[string]int
	order     []string
	maxLength int
}

func newUnitTable() *UnitTable {
	return &UnitTable{freq: make(map[string]int)}
}

// add accumulates n onto unit, recording it on first sight.
func (t *UnitTable) add(unit string, n int) {
	if _, ok := t.freq[unit]; !ok {
		t.order = append(t.order, unit)
	}
	t.freq[unit] += n
}

// set assigns n to unit, recording it on first sight.
func (t *UnitTable) set(unit string, n int) {
	if _, ok := t.freq[unit]; !ok {
		t.order = append(t.order, unit)
	}
	t.freq[unit] = n
}

// buildUnitTable sums, for every symbol of every word, that word's
// frequency. A symbol occurring twice in one word is counted twice.
func buildUnitTable(vocab vocabulary) *UnitTable {
	t := newUnitTable()
	for _, w := range vocab {
		for _, s := range w.symbols {
			t.add(s, w.freq)
		}
	}
	t.maxLength = t.longest()

	return t
}

// longest returns the character length of the longest unit, or 0 when the
// table is empty.
func (t *UnitTable) longest() int {
	n := 0
	for _, u := range t.order {
		if l := utf8.RuneCountInString(u); l > n {
			n = l
		}
	}
	return n
}

// Len returns the number of units.
func (t *UnitTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// MaxLength returns the character length of the longest unit.
func (t *UnitTable) MaxLength() int {
	if t == nil {
		return 0
	}
	return t.maxLength
}

// Freq returns the frequency of unit and whether it is known.
func (t *UnitTable) Freq(unit string) (int, bool) {
	if t == nil {
		return 0, false
	}
	n, ok := t.freq[unit]
	return n, ok
}

// Map returns a copy of the table as unit → frequency.
func (t *UnitTable) Map() map[string]int {
	out := make(map[string]int, t.Len())
	if t == nil {
		return out
	}
	for u, n := range t.freq {
		out[u] = n
	}
	return out
}

// Sorted returns all units ordered by descending frequency, then descending
// length. Remaining ties keep first-seen order.
func (t *UnitTable) Sorted() []Unit {
	units := make([]Unit, 0, t.Len())
	if t == nil {
		return units
	}
	for _, u := range t.order {
		units = append(units, Unit{Text: u, Freq: t.freq[u]})
	}

	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Freq != units[j].Freq {
			return units[i].Freq > units[j].Freq
		}
		return utf8.RuneCountInString(units[i].Text) > utf8.RuneCountInString(units[j].Text)
	})

	return units
}
