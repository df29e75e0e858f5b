package morph

import (
	"log/slog"
)

// Option configures an Analyzer.
type Option func(*config)

type config struct {
	normalizeWidth bool
	dictionary     string
	dictionaryPath string
	command        string
	modelPath      string
	logger         *slog.Logger
}

func defaultConfig() config {
	return config{
		dictionary: "ipa",
		logger:     slog.Default(),
	}
}

// WithWidthNormalization converts half-width characters to full-width before
// segmentation (default: false).
func WithWidthNormalization(on bool) Option {
	return func(c *config) {
		c.normalizeWidth = on
	}
}

// WithDictionary selects the embedded MeCab dictionary, "ipa" or "uni" (default: "ipa").
func WithDictionary(name string) Option {
	return func(c *config) {
		if name != "" {
			c.dictionary = name
		}
	}
}

// WithDictionaryPath loads the MeCab dictionary from a kagome dictionary file.
func WithDictionaryPath(path string) Option {
	return func(c *config) {
		c.dictionaryPath = path
	}
}

// WithCommand overrides the jumanpp/juman executable.
func WithCommand(command string) Option {
	return func(c *config) {
		c.command = command
	}
}

// WithModelPath sets the SentencePiece model file.
func WithModelPath(path string) Option {
	return func(c *config) {
		c.modelPath = path
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
