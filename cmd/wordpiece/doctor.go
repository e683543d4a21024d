package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/example/go-wordpiece/internal/config"
	"github.com/example/go-wordpiece/internal/doctor"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var corpus []string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local model and corpus checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "normalize: %s\n", cfg.NormalizeForm())

			result := doctor.Run(doctor.Config{
				GoVersion:    func() (string, error) { return runtime.Version(), nil },
				ModelPath:    cfg.Paths.ModelPath,
				InspectModel: inspectModel(cfg),
				CorpusFiles:  resolveCorpusPaths(corpus, cfg.Paths.CorpusPath),
			}, w)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(w, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&corpus, "corpus", nil, "Corpus file(s) to check (default paths.corpus_path)")

	return cmd
}

// inspectModel loads the model strictly: unlike serving, a partial load
// is a failure here.
func inspectModel(cfg config.Config) doctor.InspectFunc {
	return func(path string) (doctor.ModelInfo, error) {
		enc := tokenizer.New(cfg.Train.NIters)
		if err := enc.Load(path); err != nil {
			return doctor.ModelInfo{}, err
		}

		return doctor.ModelInfo{
			NIters:    enc.NIters(),
			MaxLength: enc.MaxLength(),
			Units:     enc.Len(),
		}, nil
	}
}
