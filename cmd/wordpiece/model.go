package main

import (
	"errors"
	"log/slog"

	"github.com/example/go-wordpiece/internal/config"
	"github.com/example/go-wordpiece/internal/tokenizer"
)

// newEncoder builds an untrained encoder from cfg.
func newEncoder(cfg config.Config) *tokenizer.BytePairEncoder {
	return tokenizer.New(cfg.Train.NIters,
		tokenizer.WithVerbose(cfg.Train.Verbose),
		tokenizer.WithLogger(slog.Default()),
		tokenizer.WithWordCache(cfg.Server.CacheSize),
	)
}

// loadEncoder loads the configured model. A partial load is logged and the
// rows read so far are served; any other load error is returned.
func loadEncoder(cfg config.Config) (*tokenizer.BytePairEncoder, error) {
	enc := newEncoder(cfg)

	err := enc.Load(cfg.Paths.ModelPath)
	if err == nil {
		return enc, nil
	}

	var partial *tokenizer.PartialLoadError
	if !errors.As(err, &partial) {
		return nil, err
	}

	slog.Warn("model partially loaded",
		slog.String("path", cfg.Paths.ModelPath),
		slog.Int("rows", partial.Rows),
		slog.Int("line", partial.Line),
		slog.String("error", partial.Err.Error()),
	)

	return enc, nil
}
