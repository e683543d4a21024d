package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/go-wordpiece/internal/bench"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		input          string
		runs           int
		format         string
		minWordsPerSec float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark tokenization latency and throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			enc, err := loadEncoder(cfg)
			if err != nil {
				return err
			}

			results, err := runBench(cmd.Context(), enc, cfg.NormalizeForm().Apply(input), runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				bench.FormatJSON(results, stats, w)
			default:
				bench.FormatTable(results, stats, w)
			}

			return bench.CheckThroughputThreshold(bench.MeanWordsPerSec(results), minWordsPerSec)
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to tokenize on each run (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of tokenize runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&minWordsPerSec, "min-words-per-sec", 0, "Exit non-zero if mean throughput falls below this value (0 = disabled)")

	return cmd
}

// runBench tokenizes text runs times. The first run is cold: the word
// cache is empty right after loading.
func runBench(ctx context.Context, tok tokenizer.Tokenizer, text string, runs int) ([]bench.RunResult, error) {
	words := len(strings.Fields(text))
	results := make([]bench.RunResult, 0, runs)

	for i := range runs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}

		start := time.Now()
		_ = tok.Tokenize(text)
		dur := time.Since(start)

		results = append(results, bench.RunResult{
			Index:       i,
			Cold:        i == 0,
			Duration:    dur,
			Words:       words,
			WordsPerSec: bench.CalcWordsPerSec(words, dur),
		})
	}

	return results, nil
}
