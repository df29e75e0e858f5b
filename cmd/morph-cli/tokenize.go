package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-morph/internal/prep"
)

func newTokenizeCmd(a *app) *cobra.Command {
	var (
		fileType string
		columns  []string
	)

	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Tokenize records read from stdin and write them to stdout",
		Long: `Tokenize replaces the given columns of each record with their
space-separated morphemes. Input is JSON lines (json), CSV with a header (csv)
or a SQuAD document (squad_json), whose answers are relocated in the
tokenized contexts. Skipped records are reported on stderr.`,
		Example: `  morph-cli tokenize -a mecab --column-names sentence1,sentence2 < train.json
  morph-cli tokenize --input-file-type squad_json < valid-v1.1.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := prep.ParseFormat(fileType)
			if err != nil {
				return err
			}

			analyzers, err := a.analyzerPool()
			if err != nil {
				return err
			}
			defer func() { _ = analyzers.Close() }()

			proc := prep.New(analyzers,
				prep.WithColumns(splitColumns(columns)...),
				prep.WithLogger(a.logger),
			)
			stats, err := proc.Process(cmd.Context(), format, bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("tokenizing %s input: %w", format, err)
			}
			a.logger.Info("done", "analyzer", a.cfg.Analyzer, "stats", stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileType, "input-file-type", "json", "input format: json, csv or squad_json")
	cmd.Flags().StringSliceVar(&columns, "column-names", nil, "columns to tokenize (comma or space separated)")
	return cmd
}

// splitColumns accepts both "a,b" and "a b", as dataset lists use the latter.
func splitColumns(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}
