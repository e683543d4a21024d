package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/example/go-wordpiece/internal/text"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var (
		corpus []string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Learn a unit table from a corpus (one sentence per line)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			paths := resolveCorpusPaths(corpus, cfg.Paths.CorpusPath)
			if len(paths) == 0 {
				return fmt.Errorf("--corpus is required (or set paths.corpus_path)")
			}
			if out == "" {
				out = cfg.Paths.ModelPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sents, err := text.LoadCorpus(ctx, text.CorpusOptions{
				Paths: paths,
				Form:  cfg.NormalizeForm(),
				Stdin: cmd.InOrStdin(),
			})
			if err != nil {
				return err
			}

			enc := newEncoder(cfg)
			if err := enc.TrainContext(ctx, sents); err != nil {
				return fmt.Errorf("train: %w", err)
			}

			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create model dir: %w", err)
				}
			}

			if err := enc.Save(out); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d units (max_length %d, n_iters %d) to %s\n",
				enc.Len(), enc.MaxLength(), enc.NIters(), out)
			return err
		},
	}

	cmd.Flags().StringSliceVar(&corpus, "corpus", nil, "Corpus file(s), one sentence per line; - reads stdin (repeatable)")
	cmd.Flags().StringVar(&out, "out", "", "Output model path (default paths.model_path)")

	return cmd
}

// resolveCorpusPaths prefers explicit flags over the configured default.
func resolveCorpusPaths(flagPaths []string, cfgPath string) []string {
	if len(flagPaths) > 0 {
		return flagPaths
	}
	if cfgPath != "" {
		return []string{cfgPath}
	}
	return nil
}
