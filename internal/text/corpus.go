package text

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// StdinPath names standard input in a corpus path list.
const StdinPath = "-"

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 16 * 1024 * 1024

// ErrNoCorpus is returned when LoadCorpus is called without paths.
var ErrNoCorpus = errors.New("no corpus paths given")

// ReadSentences returns every line of r as one sentence, in order, after
// applying form. Blank lines are kept; they contribute no words.
func ReadSentences(r io.Reader, form Form) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var sents []string
	for sc.Scan() {
		sents = append(sents, form.Apply(sc.Text()))
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return sents, nil
}

// CorpusOptions configures LoadCorpus.
type CorpusOptions struct {
	Paths []string
	Form  Form
	// Stdin is read for StdinPath. Defaults to os.Stdin.
	Stdin io.Reader
	// Concurrency bounds parallel file reads. Values < 1 mean 4.
	Concurrency int
}

// LoadCorpus reads every path concurrently and returns the sentences of all
// files concatenated in path order, so training stays deterministic.
func LoadCorpus(ctx context.Context, opts CorpusOptions) ([]string, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoCorpus
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 4
	}

	parts := make([][]string, len(opts.Paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range opts.Paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			sents, err := readCorpusFile(path, stdin, opts.Form)
			if err != nil {
				return err
			}

			parts[i] = sents
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}

	sents := make([]string, 0, total)
	for _, p := range parts {
		sents = append(sents, p...)
	}

	return sents, nil
}

func readCorpusFile(path string, stdin io.Reader, form Form) ([]string, error) {
	if path == StdinPath {
		sents, err := ReadSentences(stdin, form)
		if err != nil {
			return nil, fmt.Errorf("read corpus from stdin: %w", err)
		}
		return sents, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %q: %w", path, err)
	}

	defer func() { _ = f.Close() }()

	sents, err := ReadSentences(f, form)
	if err != nil {
		return nil, fmt.Errorf("read corpus %q: %w", path, err)
	}

	return sents, nil
}
