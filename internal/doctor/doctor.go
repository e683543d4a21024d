// Package doctor provides environment preflight checks for wordpiece.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// ModelInfo summarizes a loaded unit table.
type ModelInfo struct {
	NIters    int
	MaxLength int
	Units     int
}

// InspectFunc loads the model at path and describes it.
type InspectFunc func(path string) (ModelInfo, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// GoVersion returns the Go runtime version (e.g. "go1.25.0").
	GoVersion VersionFunc
	// SkipGo skips the runtime version check.
	SkipGo bool
	// ModelPath is the unit table file; empty skips the model checks.
	ModelPath string
	// InspectModel fully loads ModelPath. Nil limits the check to a stat.
	InspectModel InspectFunc
	// CorpusFiles is the list of corpus paths to verify on disk.
	CorpusFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- Go runtime -------------------------------------------------------
	if cfg.SkipGo || cfg.GoVersion == nil {
		fmt.Fprintf(w, "%s go version: skipped\n", PassMark)
	} else {
		ver, err := cfg.GoVersion()
		if err != nil {
			res.fail(fmt.Sprintf("go version: %v", err))
			fmt.Fprintf(w, "%s go version: unavailable (%v)\n", FailMark, err)
		} else if goErr := checkGoVersion(ver); goErr != nil {
			res.fail(fmt.Sprintf("go version: %v", goErr))
			fmt.Fprintf(w, "%s go version %s: %v\n", FailMark, ver, goErr)
		} else {
			fmt.Fprintf(w, "%s go version: %s\n", PassMark, ver)
		}
	}

	// ---- unit table -------------------------------------------------------
	if cfg.ModelPath == "" {
		fmt.Fprintf(w, "%s model: skipped (no path configured)\n", PassMark)
	} else if _, err := os.Stat(cfg.ModelPath); err != nil {
		res.fail(fmt.Sprintf("model %q: %v", cfg.ModelPath, err))
		fmt.Fprintf(w, "%s model %s: not found\n", FailMark, cfg.ModelPath)
	} else {
		fmt.Fprintf(w, "%s model: %s\n", PassMark, cfg.ModelPath)
		if cfg.InspectModel != nil {
			checkModel(&res, w, cfg)
		}
	}

	// ---- corpus files -----------------------------------------------------
	for _, path := range cfg.CorpusFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("corpus file %q: %v", path, err))
			fmt.Fprintf(w, "%s corpus file %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s corpus file: %s\n", PassMark, path)
		}
	}

	return res
}

func checkModel(res *Result, w io.Writer, cfg Config) {
	info, err := cfg.InspectModel(cfg.ModelPath)
	if err != nil {
		res.fail(fmt.Sprintf("model load: %v", err))
		fmt.Fprintf(w, "%s model load: %v\n", FailMark, err)
		return
	}

	if info.Units == 0 {
		res.fail("model load: unit table is empty")
		fmt.Fprintf(w, "%s model load: unit table is empty\n", FailMark)
		return
	}

	fmt.Fprintf(w, "%s model load: ok (%d units, max_length %d, n_iters %d)\n",
		PassMark, info.Units, info.MaxLength, info.NIters)
}

// checkGoVersion returns an error if ver is older than go1.21, the first
// release with log/slog. ver may carry a "go" or "devel " prefix.
func checkGoVersion(ver string) error {
	raw := strings.TrimPrefix(ver, "devel ")
	raw = strings.TrimPrefix(raw, "go")
	raw, _, _ = strings.Cut(raw, " ")

	major, minor, err := parseMajorMinor(raw)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != 1 {
		return fmt.Errorf("requires Go 1, got %d", major)
	}
	if minor < 21 {
		return fmt.Errorf("requires Go >=1.21, got 1.%d", minor)
	}
	return nil
}

var errVersionFormat = errors.New("unexpected version format")

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w %q", errVersionFormat, ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	// Pre-release suffixes such as "26rc1" or "26-abc" keep their minor.
	digits := strings.IndexFunc(parts[1], func(r rune) bool { return r < '0' || r > '9' })
	if digits == 0 {
		return 0, 0, fmt.Errorf("bad minor in %q", ver)
	}
	if digits > 0 {
		parts[1] = parts[1][:digits]
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
