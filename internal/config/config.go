// Package config loads command-line settings and dataset lists through viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override (MORPH_ANALYZER, ...).
const EnvPrefix = "MORPH"

// Config holds analyzer and logging settings shared by the commands.
type Config struct {
	Analyzer           string `mapstructure:"analyzer"`
	Dictionary         string `mapstructure:"dictionary"`
	MecabDicDir        string `mapstructure:"mecab-dic-dir"`
	JumanCommand       string `mapstructure:"juman-command"`
	SentencePieceModel string `mapstructure:"sentencepiece-model"`
	H2Z                bool   `mapstructure:"h2z"`
	Workers            int    `mapstructure:"workers"`
	LogLevel           string `mapstructure:"log-level"`
	LogJSON            bool   `mapstructure:"log-json"`
}

// Dataset describes one dataset directory for the batch command. Keys follow
// the datasets.json format used by the original Makefile driver.
type Dataset struct {
	Dirname           string `mapstructure:"dirname"`
	InputFileType     string `mapstructure:"input-file-type"`
	ColumnNames       string `mapstructure:"column-names"` // space separated
	TrainFileBasename string `mapstructure:"train_file_basename"`
	ValidFileBasename string `mapstructure:"valid_file_basename"`
	TestFileBasename  string `mapstructure:"test_file_basename"`
}

// Columns returns the column names to tokenize.
func (d Dataset) Columns() []string {
	return strings.Fields(d.ColumnNames)
}

// Basenames returns the non-empty split file names in train, valid, test order.
func (d Dataset) Basenames() []string {
	var names []string
	for _, n := range []string{d.TrainFileBasename, d.ValidFileBasename, d.TestFileBasename} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// SetDefaults registers the defaults for Config keys on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("analyzer", "jumanpp")
	v.SetDefault("dictionary", "ipa")
	v.SetDefault("mecab-dic-dir", "")
	v.SetDefault("juman-command", "")
	v.SetDefault("sentencepiece-model", "")
	v.SetDefault("h2z", false)
	v.SetDefault("workers", 1)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-json", false)
}

// New returns a viper instance reading MORPH_* environment variables, with
// dashes in keys mapped to underscores (mecab-dic-dir -> MORPH_MECAB_DIC_DIR).
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load decodes Config from v (flags bound by the caller, env, defaults).
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &cfg, nil
}

// LoadDatasets reads a dataset list file (JSON or YAML, by extension). The file is
// either a top-level array or an object with a "datasets" array.
func LoadDatasets(path string) ([]Dataset, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		// viper cannot read a bare top-level array, so wrap it first.
		return loadDatasetsJSON(v, path)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return decodeDatasets(v)
}

func decodeDatasets(v *viper.Viper) ([]Dataset, error) {
	var datasets []Dataset
	if err := v.UnmarshalKey("datasets", &datasets); err != nil {
		return nil, fmt.Errorf("decoding datasets: %w", err)
	}
	if len(datasets) == 0 {
		return nil, errors.New("no datasets configured")
	}
	for i, d := range datasets {
		if d.Dirname == "" {
			return nil, fmt.Errorf("dataset %d: missing dirname", i)
		}
		if d.InputFileType == "" {
			return nil, fmt.Errorf("dataset %s: missing input-file-type", d.Dirname)
		}
	}
	return datasets, nil
}
