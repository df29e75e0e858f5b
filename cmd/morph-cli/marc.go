package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-morph/internal/marc"
)

func newMarcCmd(a *app) *cobra.Command {
	var (
		cfg          = marc.DefaultConfig()
		ratio        []float64
		filterValid  string
		filterTest   string
		convertValid string
		convertTest  string
	)

	cmd := &cobra.Command{
		Use:   "marc-ja",
		Short: "Build MARC-ja from an Amazon reviews TSV read from stdin",
		Example: `  zcat amazon_reviews_multilingual_JP_v1_00.tsv.gz | \
    morph-cli marc-ja --output-dir data/marc_ja-v1.0 --positive-negative --max-char-length 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(ratio) != 3 {
				return fmt.Errorf("--split-ratio needs 3 values, got %d", len(ratio))
			}
			copy(cfg.SplitRatio[:], ratio)
			cfg.NormalizeWidth = a.cfg.H2Z
			cfg.Logger = a.logger

			var err error
			if cfg.FilterIDs, err = loadFilterLists(filterValid, filterTest); err != nil {
				return err
			}
			if cfg.LabelConversions, err = loadConversionLists(convertValid, convertTest); err != nil {
				return err
			}

			res, err := marc.Build(cmd.Context(), bufio.NewReader(cmd.InOrStdin()), cfg)
			if err != nil {
				return err
			}
			a.logger.Info("marc-ja built", "rows", res.Rows, "kept", res.Kept, "files", res.Files)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.OutputDir, "output-dir", "", "output directory (required)")
	f.StringVar(&cfg.Version, "dataset-version", cfg.Version, "dataset version used in file names")
	f.IntVar(&cfg.MaxInstances, "max-instance-num", 0, "stop after this many instances (0: no limit)")
	f.IntVar(&cfg.MaxCharLength, "max-char-length", 0, "drop reviews longer than this many characters (0: no limit)")
	f.BoolVar(&cfg.PositiveNegative, "positive-negative", false, "discard neutral reviews")
	f.Float64SliceVar(&ratio, "split-ratio", cfg.SplitRatio[:], "train, valid and test ratios")
	f.BoolVar(&cfg.OutputTestSet, "output-testset", false, "write the test split")
	f.BoolVar(&cfg.Parquet, "parquet", false, "also write each split as parquet")
	f.StringVar(&filterValid, "filter-review-id-list-valid", "", "review ids to drop from the valid split")
	f.StringVar(&filterTest, "filter-review-id-list-test", "", "review ids to drop from the test split")
	f.StringVar(&convertValid, "label-conv-review-id-list-valid", "", "review_id,label rows relabeling the valid split")
	f.StringVar(&convertTest, "label-conv-review-id-list-test", "", "review_id,label rows relabeling the test split")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func loadFilterLists(valid, test string) (map[marc.Split]map[string]struct{}, error) {
	lists := make(map[marc.Split]map[string]struct{})
	for split, path := range map[marc.Split]string{marc.Valid: valid, marc.Test: test} {
		if path == "" {
			continue
		}
		ids, err := marc.LoadFilterList(path)
		if err != nil {
			return nil, err
		}
		lists[split] = ids
	}
	return lists, nil
}

func loadConversionLists(valid, test string) (map[marc.Split]map[string]string, error) {
	lists := make(map[marc.Split]map[string]string)
	for split, path := range map[marc.Split]string{marc.Valid: valid, marc.Test: test} {
		if path == "" {
			continue
		}
		conv, err := marc.LoadLabelConversions(path)
		if err != nil {
			return nil, err
		}
		lists[split] = conv
	}
	return lists, nil
}
