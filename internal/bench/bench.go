// Package bench provides benchmarking primitives for the wordpiece bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and throughput of a single tokenize pass.
type RunResult struct {
	Index       int
	Cold        bool // true for the first run (empty word cache)
	Duration    time.Duration
	Words       int
	WordsPerSec float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// ---------------------------------------------------------------------------
// Throughput helpers
// ---------------------------------------------------------------------------

// CalcWordsPerSec returns words / elapsed seconds.
// Returns 0 if elapsed is zero to avoid division by zero.
func CalcWordsPerSec(words int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(words) / elapsed.Seconds()
}

// MeanWordsPerSec averages the per-run throughput.
func MeanWordsPerSec(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.WordsPerSec
	}
	return total / float64(len(runs))
}

// CheckThroughputThreshold returns an error if meanWPS < threshold.
// A threshold of 0 disables the gate.
func CheckThroughputThreshold(meanWPS, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if meanWPS < threshold {
		return fmt.Errorf("mean throughput %.1f words/s below threshold %.1f", meanWPS, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 3, 64)
}

// FormatTable writes a human-readable table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	data := make([][]string, 0, len(runs)+3)
	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		data = append(data, []string{
			strconv.Itoa(r.Index + 1),
			cold,
			ms(r.Duration),
			strconv.Itoa(r.Words),
			strconv.FormatFloat(r.WordsPerSec, 'f', 1, 64),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"RUN", "COLD", "MS", "WORDS", "WORDS/S"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Append([]string{"min", "", ms(stats.Min), "", ""})
	table.Append([]string{"mean", "", ms(stats.Mean), "", ""})
	table.Append([]string{"max", "", ms(stats.Max), "", ""})
	table.Render()
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index       int     `json:"index"`
	Cold        bool    `json:"cold"`
	DurationMS  float64 `json:"duration_ms"`
	Words       int     `json:"words"`
	WordsPerSec float64 `json:"words_per_sec"`
}

type jsonStats struct {
	MinMS           float64 `json:"min_ms"`
	MeanMS          float64 `json:"mean_ms"`
	MaxMS           float64 `json:"max_ms"`
	MeanWordsPerSec float64 `json:"mean_words_per_sec"`
}

func msFloat(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:           msFloat(stats.Min),
			MeanMS:          msFloat(stats.Mean),
			MaxMS:           msFloat(stats.Max),
			MeanWordsPerSec: MeanWordsPerSec(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:       r.Index,
			Cold:        r.Cold,
			DurationMS:  msFloat(r.Duration),
			Words:       r.Words,
			WordsPerSec: r.WordsPerSec,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
