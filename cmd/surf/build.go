package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/wizenheimer/surf"
	"github.com/wizenheimer/surf/internal/config"
)

// runBuild indexes every document file in the input directory and saves the
// artifacts to the index directory
func runBuild(cfg *config.Config, args []string) error {
	fs := newFlagSet("build")
	input := fs.String("i", cfg.Collection.Input, "directory of documents, one per file")
	dir := fs.String("c", cfg.Collection.Dir, "directory the index is written to")
	weighting := fs.String("w", cfg.Index.Weighting, "duplicate weighting (tf, bm25)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("build: missing input directory (-i)")
	}

	w, err := surf.ParseWeighting(*weighting)
	if err != nil {
		return err
	}
	opts := cfg.Options()
	opts.Weighting = w

	start := time.Now()
	idx, err := surf.BuildFromDir(*input, opts)
	if err != nil {
		return fmt.Errorf("building index from %s: %w", *input, err)
	}
	if err := idx.Save(*dir); err != nil {
		return fmt.Errorf("saving index to %s: %w", *dir, err)
	}

	slog.Info("index saved",
		slog.String("dir", *dir),
		slog.Int("documents", idx.DocCount()),
		slog.Int("words", idx.WordCount()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
