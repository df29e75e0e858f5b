package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	morph "github.com/jamesainslie/go-morph"
	"github.com/jamesainslie/go-morph/internal/config"
	"github.com/jamesainslie/go-morph/internal/logging"
	"github.com/jamesainslie/go-morph/pool"
	"github.com/jamesainslie/go-morph/tokenizer"
)

// app carries what the subcommands share once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "morph-cli",
		Short:         "Prepare Japanese NLP datasets with a morphological analyzer",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().AddFlagSet(globalFlags())

	root.AddCommand(
		newTokenizeCmd(a),
		newSegmentCmd(a),
		newMarcCmd(a),
		newBatchCmd(a),
	)
	return root
}

// globalFlags are bound into viper, so each one can also be set as MORPH_<NAME>.
func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringP("analyzer", "a", "jumanpp", fmt.Sprintf("morphological analyzer %v", tokenizer.Kinds()))
	fs.String("dictionary", "ipa", "embedded mecab dictionary: ipa or uni")
	fs.String("mecab-dic-dir", "", "mecab dictionary file (kagome format); overrides --dictionary")
	fs.String("juman-command", "", "jumanpp/juman executable (default: the analyzer name)")
	fs.String("sentencepiece-model", "", "sentencepiece model file")
	fs.Bool("h2z", false, "convert half-width characters to full-width")
	fs.IntP("workers", "j", 1, "analyzer instances working in parallel")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Bool("log-json", false, "log as JSON")
	return fs
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// analyzerOptions maps the configuration onto options for one backend kind.
func (a *app) analyzerOptions(kind tokenizer.Kind) []morph.Option {
	opts := []morph.Option{
		morph.WithWidthNormalization(a.cfg.H2Z),
		morph.WithDictionary(a.cfg.Dictionary),
		morph.WithLogger(a.logger),
	}
	switch kind {
	case tokenizer.MeCab:
		if a.cfg.MecabDicDir != "" {
			opts = append(opts, morph.WithDictionaryPath(a.cfg.MecabDicDir))
		}
	case tokenizer.JumanPP, tokenizer.Juman:
		if a.cfg.JumanCommand != "" {
			opts = append(opts, morph.WithCommand(a.cfg.JumanCommand))
		}
	case tokenizer.SentencePiece:
		opts = append(opts, morph.WithModelPath(a.cfg.SentencePieceModel))
	}
	return opts
}

func (a *app) newAnalyzer(kind tokenizer.Kind) (*morph.Analyzer, error) {
	return morph.New(kind, a.analyzerOptions(kind)...)
}

// analyzerPool builds cfg.Workers analyzers of the configured kind.
func (a *app) analyzerPool() (*pool.Pool[*morph.Analyzer], error) {
	kind, err := tokenizer.ParseKind(a.cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	return pool.New(a.cfg.Workers, func() (*morph.Analyzer, error) {
		return a.newAnalyzer(kind)
	})
}
