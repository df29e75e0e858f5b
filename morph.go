package morph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jamesainslie/go-morph/tokenizer"
)

// Analyzer segments text with one backend instance. It is not safe for concurrent use.
type Analyzer struct {
	kind           tokenizer.Kind
	backend        tokenizer.Backend
	normalizeWidth bool
	logger         *slog.Logger
}

// New creates an Analyzer for the given backend kind.
func New(kind tokenizer.Kind, opts ...Option) (*Analyzer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	backend, err := tokenizer.New(kind, tokenizer.Config{
		Dictionary:     cfg.dictionary,
		DictionaryPath: cfg.dictionaryPath,
		Command:        cfg.command,
		ModelPath:      cfg.modelPath,
		Logger:         cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendInit, kind, err)
	}

	return &Analyzer{
		kind:           kind,
		backend:        backend,
		normalizeWidth: cfg.normalizeWidth,
		logger:         cfg.logger.With("analyzer", kind.String()),
	}, nil
}

// Kind returns the backend the Analyzer was built with.
func (a *Analyzer) Kind() tokenizer.Kind {
	return a.kind
}

// Segment splits text into tokens. Offsets are relative to text after width
// normalization, when enabled. Empty input yields no tokens and no error.
//
// A backend failure is returned as *TokenizationError.
func (a *Analyzer) Segment(ctx context.Context, text string) ([]tokenizer.Token, error) {
	if a.normalizeWidth {
		text = NormalizeWidth(text)
	}
	if text == "" {
		return nil, nil
	}

	tokens, err := a.backend.Tokenize(ctx, text)
	if err != nil {
		return nil, &TokenizationError{Text: text, Err: err}
	}
	return tokens, nil
}

// TokenizedString returns the token surfaces joined by single spaces.
// ok is false when the text produced no tokens (e.g. it was empty or all
// whitespace); that is not an error.
func (a *Analyzer) TokenizedString(ctx context.Context, text string) (tokenized string, ok bool, err error) {
	tokens, err := a.Segment(ctx, text)
	if err != nil {
		return "", false, err
	}
	if len(tokens) == 0 {
		a.logger.Debug("no tokens", "text", text)
		return "", false, nil
	}
	return tokenizer.Join(tokens), true, nil
}

// Close releases the backend.
func (a *Analyzer) Close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	if err != nil {
		return fmt.Errorf("closing %s backend: %w", a.kind, err)
	}
	return nil
}
