package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// word is one entry of the working vocabulary: a symbol sequence ending in
// BoundaryMarker and the number of times the word occurred in the corpus.
type word struct {
	symbols []string
	freq    int
}

// key returns the delimiter-joined string form of the symbol sequence.
func (w word) key() string {
	return strings.Join(w.symbols, Delimiter)
}

// vocabulary is the working vocabulary in first-occurrence order. The order
// is significant: it fixes which pair wins a frequency tie during merging.
type vocabulary []word

// scanVocabulary splits sentences into words, strips embedded boundary
// markers, and counts each distinct cleaned word. Words that become empty
// after cleaning are dropped.
func scanVocabulary(sents []string) vocabulary {
	index := make(map[string]int)
	var vocab vocabulary

	for _, sent := range sents {
		for _, raw := range strings.Fields(sent) {
			w := cleanWord(raw)
			if w == "" {
				continue
			}

			if i, ok := index[w]; ok {
				vocab[i].freq++
				continue
			}

			index[w] = len(vocab)
			vocab = append(vocab, word{symbols: splitSymbols(w), freq: 1})
		}
	}

	return vocab
}

// invalidRune stands in for each run of bytes that is not valid UTF-8.
const invalidRune = "\uFFFD"

// toValidText replaces invalid UTF-8 so training and segmentation see the
// same characters for the same input bytes.
func toValidText(w string) string {
	return strings.ToValidUTF8(w, invalidRune)
}

// cleanWord removes characters reserved for the symbol-sequence structure.
func cleanWord(w string) string {
	w = strings.ReplaceAll(toValidText(w), BoundaryMarker, "")
	return strings.ReplaceAll(w, Delimiter, "")
}

// splitSymbols turns a cleaned word into one symbol per character followed
// by the boundary marker.
func splitSymbols(w string) []string {
	symbols := make([]string, 0, utf8.RuneCountInString(w)+1)
	for _, r := range w {
		symbols = append(symbols, string(r))
	}

	return append(symbols, BoundaryMarker)
}

// Len returns the number of distinct words.
func (v vocabulary) Len() int { return len(v) }

// totalFreq returns the summed frequency of all words.
func (v vocabulary) totalFreq() int {
	total := 0
	for _, w := range v {
		total += w.freq
	}
	return total
}
