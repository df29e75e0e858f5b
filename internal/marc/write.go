package marc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/jamesainslie/go-morph/internal/files"
)

// writeSplit writes <split>-v<version>.json, and the .parquet twin when enabled.
func writeSplit(ctx context.Context, cfg Config, s Split, version string, reviews []Review) ([]string, error) {
	base := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-v%s", s, version))

	jsonPath := base + ".json"
	if err := files.WriteAtomic(ctx, jsonPath, func(w io.Writer) error {
		return WriteJSONLines(w, reviews)
	}); err != nil {
		return nil, fmt.Errorf("writing %s split: %w", s, err)
	}
	paths := []string{jsonPath}

	if cfg.Parquet {
		parquetPath := base + ".parquet"
		if err := files.WriteAtomic(ctx, parquetPath, func(w io.Writer) error {
			return WriteParquet(w, reviews)
		}); err != nil {
			return nil, fmt.Errorf("writing %s split: %w", s, err)
		}
		paths = append(paths, parquetPath)
	}
	return paths, nil
}

// WriteJSONLines writes one review object per line.
func WriteJSONLines(w io.Writer, reviews []Review) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range reviews {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteParquet writes reviews as a single parquet file. Empty labels are stored as null.
func WriteParquet(w io.Writer, reviews []Review) error {
	pw := parquet.NewGenericWriter[Review](w)
	if _, err := pw.Write(reviews); err != nil {
		_ = pw.Close()
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}
