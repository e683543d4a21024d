package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// ErrEmptyPath is returned when Save or Load is called with an empty path.
var ErrEmptyPath = errors.New("model path must not be empty")

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	verbose   bool
	logger    *slog.Logger
	cacheSize int
}

// Option configures a BytePairEncoder.
type Option func(*options)

// WithVerbose enables progress logging during training.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// WithLogger sets the slog.Logger used for progress logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithWordCache memoizes the segmentation of up to n distinct words.
// A size of 0 or less disables the cache.
func WithWordCache(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// ---------------------------------------------------------------------------
// BytePairEncoder
// ---------------------------------------------------------------------------

// BytePairEncoder learns a unit table from a corpus and segments text with
// it. Training and loading replace the whole table and must not run
// concurrently with Tokenize; concurrent Tokenize calls are safe otherwise.
type BytePairEncoder struct {
	nIters  int
	verbose bool
	log     *slog.Logger
	units   *UnitTable
	cache   *lru.Cache
}

var _ Tokenizer = (*BytePairEncoder)(nil)

// New returns an untrained encoder. A non-positive nIters is replaced by
// DefaultNIters.
func New(nIters int, optFns ...Option) *BytePairEncoder {
	opts := options{logger: slog.Default()}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &BytePairEncoder{
		nIters:  normalizeNIters(nIters),
		verbose: opts.verbose,
		log:     opts.logger,
		units:   newUnitTable(),
	}

	if opts.cacheSize > 0 {
		// lru.New only fails on a non-positive size.
		e.cache, _ = lru.New(opts.cacheSize)
	}

	return e
}

// NIters returns the merge budget.
func (e *BytePairEncoder) NIters() int { return e.nIters }

// MaxLength returns the character length of the longest known unit.
func (e *BytePairEncoder) MaxLength() int { return e.units.MaxLength() }

// Len returns the number of known units.
func (e *BytePairEncoder) Len() int { return e.units.Len() }

// Units returns a copy of the unit table as unit → frequency.
func (e *BytePairEncoder) Units() map[string]int { return e.units.Map() }

// TopUnits returns up to n units in persisted order. n ≤ 0 returns all.
func (e *BytePairEncoder) TopUnits(n int) []Unit {
	units := e.units.Sorted()
	if n > 0 && n < len(units) {
		units = units[:n]
	}
	return units
}

// Train learns a unit table from sents, replacing any previous state.
func (e *BytePairEncoder) Train(sents []string) {
	// Background is never cancelled.
	_ = e.TrainContext(context.Background(), sents)
}

// TrainContext is Train with cancellation checked between merge
// iterations. On cancellation the previous state is kept and ctx.Err() is
// returned.
func (e *BytePairEncoder) TrainContext(ctx context.Context, sents []string) error {
	vocab := scanVocabulary(sents)
	if e.verbose {
		e.log.Info("vocabulary scanning done",
			slog.Int("words", vocab.Len()),
			slog.Int("occurrences", vocab.totalFreq()),
		)
	}

	var progress *slog.Logger
	if e.verbose {
		progress = e.log
	}

	res, err := learnUnits(ctx, vocab, e.nIters, progress)
	if err != nil {
		return err
	}

	e.install(res.units)

	if e.verbose {
		e.log.Info("training bpe done",
			slog.Int("iterations", res.iterations),
			slog.Int("units", res.units.Len()),
			slog.Int("max_length", res.units.MaxLength()),
		)
	}

	return nil
}

func (e *BytePairEncoder) install(units *UnitTable) {
	e.units = units
	if e.cache != nil {
		e.cache.Purge()
	}
}

// ---------------------------------------------------------------------------
// Segmentation
// ---------------------------------------------------------------------------

// Tokenize segments every whitespace-delimited word of text and joins the
// per-word segmentations with a single space.
func (e *BytePairEncoder) Tokenize(text string) string {
	words := strings.Fields(text)
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strings.Join(e.word(w), " ")
	}
	return strings.Join(parts, " ")
}

// TokenizeWords returns the segments of every whitespace-delimited word of
// text, one slice per word.
func (e *BytePairEncoder) TokenizeWords(text string) [][]string {
	words := strings.Fields(text)
	out := make([][]string, len(words))
	for i, w := range words {
		out[i] = slices.Clone(e.word(w))
	}
	return out
}

// Segments returns the accepted segments of a single word, with rune
// offsets into the word extended by BoundaryMarker.
func (e *BytePairEncoder) Segments(w string) []Segment {
	return segmentWord(w, e.units)
}

// word returns the cached or freshly computed unit texts of w. The result
// must not be modified.
func (e *BytePairEncoder) word(w string) []string {
	if e.cache != nil {
		if v, ok := e.cache.Get(w); ok {
			return v.([]string)
		}
	}

	segs := segmentWord(w, e.units)
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}

	if e.cache != nil {
		e.cache.Add(w, texts)
	}

	return texts
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Write serializes n_iters, max_length and the unit table to w.
func (e *BytePairEncoder) Write(w io.Writer) error {
	return encodeModel(w, model{nIters: e.nIters, maxLength: e.units.MaxLength(), units: e.units})
}

// Read replaces the encoder state with a model read from r.
//
// A malformed header leaves the state untouched and returns an error
// wrapping ErrMalformedHeader. A malformed row installs the rows read so far
// and returns a *PartialLoadError.
func (e *BytePairEncoder) Read(r io.Reader) error {
	m, err := decodeModel(r)

	var partial *PartialLoadError
	if err != nil && !errors.As(err, &partial) {
		return err
	}

	e.nIters = normalizeNIters(m.nIters)
	e.install(m.units)

	if partial != nil && e.verbose {
		e.log.Warn("model partially loaded",
			slog.Int("rows", partial.Rows),
			slog.Int("line", partial.Line),
			slog.String("error", partial.Err.Error()),
		)
	}

	return err
}

// Save writes the model to path.
func (e *BytePairEncoder) Save(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file %q: %w", path, err)
	}

	err = e.Write(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("save model %q: %w", path, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close model file %q: %w", path, err)
	}

	return nil
}

// Load reads the model at path. See Read for error semantics.
func (e *BytePairEncoder) Load(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model file %q: %w", path, err)
	}

	defer func() { _ = f.Close() }()

	err = e.Read(f)
	if err != nil {
		return fmt.Errorf("load model %q: %w", path, err)
	}

	return nil
}
