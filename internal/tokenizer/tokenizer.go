// Package tokenizer implements a byte-pair-style subword unit learner and a
// longest-match segmenter over the learned unit table.
//
// Training scans a corpus into a frequency table of symbol sequences, then
// repeatedly fuses the most frequent adjacent symbol pair. The resulting unit
// table is persisted in a flat, line-oriented text format and drives
// segmentation of new text into non-overlapping known units.
package tokenizer

// Tokenizer segments text into space-joined subword units.
type Tokenizer interface {
	// Tokenize returns the space-joined segmentation of every whitespace
	// delimited word in text, in order.
	Tokenize(text string) string
}

const (
	// BoundaryMarker is appended to every word and marks the word end.
	BoundaryMarker = "_"
	// Delimiter separates symbols in the string form of a symbol sequence.
	Delimiter = " "
	// DefaultNIters replaces a non-positive merge budget.
	DefaultNIters = 10
)

// normalizeNIters applies the default merge budget to non-positive values.
func normalizeNIters(n int) int {
	if n <= 0 {
		return DefaultNIters
	}
	return n
}
