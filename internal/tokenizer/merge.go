package tokenizer

import (
	"context"
	"log/slog"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// pair is an ordered pair of adjacent symbols.
type pair struct {
	left, right string
}

// pairStats counts adjacent symbol pairs across the vocabulary. Each
// occurrence contributes the frequency of its word. The returned map
// iterates in first-seen order (words in vocabulary order, then positions
// left to right).
func pairStats(vocab vocabulary) *linkedhashmap.Map {
	stats := linkedhashmap.New()

	for _, w := range vocab {
		for i := 0; i+1 < len(w.symbols); i++ {
			p := pair{left: w.symbols[i], right: w.symbols[i+1]}
			count := w.freq
			if prev, ok := stats.Get(p); ok {
				count += prev.(int)
			}
			stats.Put(p, count)
		}
	}

	return stats
}

// bestPair returns the pair with the highest count. Ties go to the pair
// observed first. ok is false when stats is empty.
func bestPair(stats *linkedhashmap.Map) (best pair, count int, ok bool) {
	it := stats.Iterator()
	for it.Next() {
		c := it.Value().(int)
		if !ok || c > count {
			best, count, ok = it.Key().(pair), c, true
		}
	}

	return best, count, ok
}

// mergePair returns a new vocabulary in which every left-to-right,
// non-overlapping occurrence of p is fused into one symbol. Frequencies and
// word order carry over unchanged.
func mergePair(vocab vocabulary, p pair) vocabulary {
	fused := p.left + p.right
	out := make(vocabulary, len(vocab))

	for wi, w := range vocab {
		symbols := make([]string, 0, len(w.symbols))
		for i := 0; i < len(w.symbols); {
			if i+1 < len(w.symbols) && w.symbols[i] == p.left && w.symbols[i+1] == p.right {
				symbols = append(symbols, fused)
				i += 2
				continue
			}
			symbols = append(symbols, w.symbols[i])
			i++
		}
		out[wi] = word{symbols: symbols, freq: w.freq}
	}

	return out
}

// learnResult is the outcome of one training run.
type learnResult struct {
	units      *UnitTable
	iterations int
}

// learnUnits runs at most nIters+1 merge iterations over vocab and builds
// the unit table from the final vocabulary. The vocabulary is owned by the
// loop: each iteration consumes the previous state and returns the next.
// ctx is checked between iterations only.
func learnUnits(ctx context.Context, vocab vocabulary, nIters int, log *slog.Logger) (learnResult, error) {
	iterations := 0

	for i := 0; i <= nIters; i++ {
		if err := ctx.Err(); err != nil {
			return learnResult{}, err
		}

		stats := pairStats(vocab)
		best, count, ok := bestPair(stats)
		if !ok {
			break
		}

		vocab = mergePair(vocab, best)
		iterations++

		if log != nil && i%100 == 99 {
			log.Debug("training bpe",
				slog.Int("iter", i+1),
				slog.Int("n_iters", nIters),
				slog.String("pair", best.left+Delimiter+best.right),
				slog.Int("count", count),
			)
		}
	}

	return learnResult{units: buildUnitTable(vocab), iterations: iterations}, nil
}
