package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-morph/internal/logging"
	"github.com/jamesainslie/go-morph/internal/prep"
	"github.com/jamesainslie/go-morph/internal/report"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		predictions  string
		inputFile    string
		fileType     string
		taskType     string
		classType    string
		extraColumns string
		summary      bool
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "morph-report --system-predict-txt FILE --input-file FILE",
		Short: "Print each evaluation example next to the model's prediction",
		Long: `morph-report joins a prediction TSV (header row, prediction in the second
column) with the evaluation input line by line and writes a TSV of the input
columns, the prediction, the gold label and CORRECT/WRONG (classification) or
the absolute error (regression). A summary table goes to stderr.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(cmd.ErrOrStderr(), logging.Config{Level: logLevel})
			if err != nil {
				return err
			}

			cfg := report.DefaultConfig()
			cfg.Logger = logger
			if cfg.InputFormat, err = prep.ParseFormat(fileType); err != nil {
				return err
			}
			if cfg.Task, err = report.ParseTaskType(taskType); err != nil {
				return err
			}
			if cfg.ClassificationType, err = report.ParseClassificationType(classType); err != nil {
				return err
			}
			if extraColumns != "" {
				cfg.ExtraColumns = strings.Split(extraColumns, ",")
			}

			return generate(cmd, predictions, inputFile, cfg, summary, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&predictions, "system-predict-txt", "", "system prediction file (required)")
	f.StringVar(&inputFile, "input-file", "", "evaluation input file (required)")
	f.StringVar(&fileType, "input-file-type", "json", "input format: json or csv")
	f.StringVar(&taskType, "task-type", string(report.SingleSentence), "single-sentence, sentence-pair or swag")
	f.StringVar(&classType, "classification-type", string(report.Classification), "classification or regression")
	f.StringVar(&extraColumns, "additional-column-name-string", "", "extra leading columns (comma separated)")
	f.BoolVar(&summary, "summary", true, "print a summary table to stderr")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("system-predict-txt")
	_ = cmd.MarkFlagRequired("input-file")
	return cmd
}

func generate(cmd *cobra.Command, predictions, inputFile string, cfg report.Config, summary bool, logger *slog.Logger) error {
	predF, err := os.Open(predictions)
	if err != nil {
		return fmt.Errorf("opening predictions: %w", err)
	}
	defer func() { _ = predF.Close() }()

	inF, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer func() { _ = inF.Close() }()

	s, err := report.Generate(predF, inF, cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}
	logger.Debug("report written", "rows", s.Rows, "skipped", s.Skipped)
	if !summary {
		return nil
	}
	return s.Render(cmd.ErrOrStderr())
}
