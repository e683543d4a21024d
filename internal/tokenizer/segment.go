package tokenizer

import "sort"

// Segment is a known unit matched at rune offsets [Begin, End) of a
// boundary-extended word.
type Segment struct {
	Text  string
	Begin int
	End   int
}

// candidates lists every substring of w, at most maxLength runes long, that
// is a key of units. Candidates come out ordered by begin, then end.
func candidates(w []rune, units *UnitTable, maxLength int) []Segment {
	var out []Segment
	n := len(w)

	for b := 0; b < n; b++ {
		// maxLength may come from a model file; compare before adding.
		limit := n
		if maxLength < n-b {
			limit = b + maxLength
		}
		for e := b + 1; e <= limit; e++ {
			s := string(w[b:e])
			if _, ok := units.Freq(s); !ok {
				continue
			}
			out = append(out, Segment{Text: s, Begin: b, End: e})
		}
	}

	return out
}

// longestMatch greedily accepts candidates by descending length, then
// ascending begin, discarding every candidate that intersects an accepted
// one. The accepted segments are returned ordered by begin.
func longestMatch(cands []Segment, n int) []Segment {
	sort.SliceStable(cands, func(i, j int) bool {
		li, lj := cands[i].End-cands[i].Begin, cands[j].End-cands[j].Begin
		if li != lj {
			return li > lj
		}
		return cands[i].Begin < cands[j].Begin
	})

	// A candidate intersects an accepted segment iff one of its positions is
	// already covered.
	covered := make([]bool, n)
	var matched []Segment

	for _, c := range cands {
		free := true
		for p := c.Begin; p < c.End; p++ {
			if covered[p] {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for p := c.Begin; p < c.End; p++ {
			covered[p] = true
		}
		matched = append(matched, c)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Begin < matched[j].Begin })

	return matched
}

// segmentWord covers w plus the boundary marker with the longest
// non-overlapping units. Positions no unit covers are dropped.
func segmentWord(w string, units *UnitTable) []Segment {
	maxLength := units.MaxLength()
	if maxLength <= 0 {
		return nil
	}

	runes := []rune(toValidText(w) + BoundaryMarker)

	return longestMatch(candidates(runes, units, maxLength), len(runes))
}
