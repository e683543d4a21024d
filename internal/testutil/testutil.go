// Package testutil provides shared corpus and model fixtures for tests.
//
// Typical usage:
//
//	func TestTrainCommand(t *testing.T) {
//	    corpus := testutil.WriteCorpus(t, testutil.LowCorpus()...)
//	    model := testutil.TempModelPath(t)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LowCorpus returns the two-sentence corpus whose one-iteration training
// yields the units low, _, e, s, t with max_length 3.
func LowCorpus() []string {
	return []string{"low low low low low", "lowest lowest"}
}

// LowModel is the persisted form of LowCorpus trained with n_iters=1.
const LowModel = "n_iters=1\nmax_length=3\nlow\t7\n_\t7\ne\t2\ns\t2\nt\t2\n"

// WriteFile writes content to name inside a per-test temp dir and returns
// the full path.
func WriteFile(tb testing.TB, name, content string) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)

	err := os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		tb.Fatalf("write fixture %q: %v", path, err)
	}

	return path
}

// WriteCorpus writes one sentence per line to a temp corpus file.
func WriteCorpus(tb testing.TB, sents ...string) string {
	tb.Helper()

	return WriteFile(tb, "corpus.txt", strings.Join(sents, "\n")+"\n")
}

// TempModelPath returns a model path inside a fresh temp dir. The file does
// not exist yet.
func TempModelPath(tb testing.TB) string {
	tb.Helper()

	return filepath.Join(tb.TempDir(), "units.bpe")
}
