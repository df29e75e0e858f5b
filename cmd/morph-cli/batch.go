package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-morph/internal/batch"
	"github.com/jamesainslie/go-morph/internal/config"
	"github.com/jamesainslie/go-morph/tokenizer"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		datasetsFile string
		dataDir      string
		analyzers    []string
		parallel     int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Tokenize every dataset split with every analyzer",
		Long: `Batch reads a dataset list (JSON or YAML) and, for each dataset and
analyzer, tokenizes <data-dir>/<dirname>/<split file> into
<data-dir>/<dirname>_<analyzer>/<split file>. A failed job does not stop the
others, but makes the command exit non-zero.`,
		Example: `  morph-cli batch --datasets-json datasets.json --data-dir data -A jumanpp,mecab --parallel 4`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			datasets, err := config.LoadDatasets(datasetsFile)
			if err != nil {
				return err
			}

			kinds := make([]tokenizer.Kind, 0, len(analyzers))
			for _, name := range splitColumns(analyzers) {
				kind, err := tokenizer.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}

			report, err := batch.Run(cmd.Context(), batch.Config{
				DataDir:     dataDir,
				Datasets:    datasets,
				Analyzers:   kinds,
				Parallel:    parallel,
				Workers:     a.cfg.Workers,
				DryRun:      dryRun,
				NewAnalyzer: a.newAnalyzer,
				Logger:      a.logger,
			})
			if report != nil {
				for _, res := range report.Failed() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s (%s): %v\n", res.Job.Dataset.Dirname, res.Job.Kind, res.Err)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&datasetsFile, "datasets-json", "", "dataset list file (required)")
	f.StringVar(&dataDir, "data-dir", ".", "directory holding the dataset directories")
	f.StringSliceVarP(&analyzers, "morphological-analyzers", "A", []string{"jumanpp", "mecab"}, "analyzers to apply")
	f.IntVar(&parallel, "parallel", 1, "jobs to run at once")
	f.BoolVarP(&dryRun, "dry-run", "n", false, "log the plan without writing anything")
	_ = cmd.MarkFlagRequired("datasets-json")
	return cmd
}
