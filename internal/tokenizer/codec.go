package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	headerNIters    = "n_iters"
	headerMaxLength = "max_length"
)

var (
	// ErrMalformedHeader is returned when a header line is missing '=', names
	// the wrong key, or carries a value that is not a non-negative integer.
	ErrMalformedHeader = errors.New("malformed model header")
	// ErrMalformedRow is returned when a table row does not split into a unit
	// and an integer frequency.
	ErrMalformedRow = errors.New("malformed model row")
)

// PartialLoadError reports a row that stopped loading. Rows before it were
// installed.
type PartialLoadError struct {
	Line int // 1-based line number of the offending row
	Rows int // rows successfully loaded
	Err  error
}

func (e *PartialLoadError) Error() string {
	return fmt.Sprintf("line %d: %v (loaded %d rows)", e.Line, e.Err, e.Rows)
}

func (e *PartialLoadError) Unwrap() error { return e.Err }

// model is the persisted triple.
type model struct {
	nIters    int
	maxLength int
	units     *UnitTable
}

// encodeModel writes the header and every unit, most frequent first.
func encodeModel(w io.Writer, m model) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%s=%d\n%s=%d\n", headerNIters, m.nIters, headerMaxLength, m.maxLength); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, u := range m.units.Sorted() {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", u.Text, u.Freq); err != nil {
			return fmt.Errorf("write unit %q: %w", u.Text, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush model: %w", err)
	}

	return nil
}

// decodeModel reads a persisted model. A header failure returns a zero
// model and an error wrapping ErrMalformedHeader. A row failure returns the
// model built from the rows before it together with a *PartialLoadError.
func decodeModel(r io.Reader) (model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	nIters, err := readHeader(sc, headerNIters)
	if err != nil {
		return model{}, err
	}

	maxLength, err := readHeader(sc, headerMaxLength)
	if err != nil {
		return model{}, err
	}

	m := model{nIters: nIters, maxLength: maxLength, units: newUnitTable()}
	m.units.maxLength = maxLength

	line := 2
	for sc.Scan() {
		line++

		unit, freq, err := parseRow(sc.Text())
		if err != nil {
			return m, &PartialLoadError{Line: line, Rows: m.units.Len(), Err: err}
		}

		m.units.set(unit, freq)
	}

	if err := sc.Err(); err != nil {
		return m, &PartialLoadError{Line: line + 1, Rows: m.units.Len(), Err: err}
	}

	return m, nil
}

func readHeader(sc *bufio.Scanner, key string) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("read %s header: %w", key, err)
		}
		return 0, fmt.Errorf("%w: missing %s line", ErrMalformedHeader, key)
	}

	k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
	if !ok {
		return 0, fmt.Errorf("%w: %s line has no '='", ErrMalformedHeader, key)
	}

	if k != key {
		return 0, fmt.Errorf("%w: expected %s, got %q", ErrMalformedHeader, key, k)
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q: %v", ErrMalformedHeader, key, v, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: %s is negative (%d)", ErrMalformedHeader, key, n)
	}

	return n, nil
}

func parseRow(row string) (string, int, error) {
	parts := strings.Split(strings.TrimSpace(row), "\t")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedRow, row)
	}

	freq, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: frequency %q: %v", ErrMalformedRow, parts[1], err)
	}

	return parts[0], freq, nil
}
