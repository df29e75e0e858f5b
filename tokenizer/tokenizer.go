// Package tokenizer provides the interchangeable segmentation backends used by morph.
//
// Every backend turns raw text into an ordered sequence of Tokens whose offsets are
// rune indices into the text it was given.
package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel errors returned by backends and constructors.
var (
	// ErrUnknownKind indicates a backend name that is not supported.
	ErrUnknownKind = errors.New("tokenizer: unknown backend")

	// ErrInvalidInput indicates text the backend cannot analyze (e.g. invalid UTF-8).
	ErrInvalidInput = errors.New("tokenizer: invalid input")

	// ErrBackend indicates the underlying analyzer failed or produced a malformed result.
	ErrBackend = errors.New("tokenizer: backend failure")

	// ErrClosed indicates the backend was used after Close.
	ErrClosed = errors.New("tokenizer: backend closed")
)

// Token is one segment of the analyzed text.
//
// Start and End are inclusive rune offsets into the analyzed string, so
// End == Start + runeLen(Surface) - 1.
type Token struct {
	Surface string
	POS     string // coarse part of speech; empty when the backend has none
	Start   int
	End     int
}

// Backend segments text. Implementations are not safe for concurrent use.
type Backend interface {
	Tokenize(ctx context.Context, text string) ([]Token, error)
	Close() error
}

// Kind selects a backend.
type Kind int

const (
	// JumanPP runs an external jumanpp process.
	JumanPP Kind = iota
	// Juman runs an external juman process.
	Juman
	// MeCab is the in-process kagome tagger (IPA dictionary unless configured otherwise).
	MeCab
	// Char splits text into single characters.
	Char
	// SentencePiece is a subword segmenter driven by a SentencePiece model file.
	SentencePiece
)

var kindNames = map[Kind]string{
	JumanPP:       "jumanpp",
	Juman:         "juman",
	MeCab:         "mecab",
	Char:          "char",
	SentencePiece: "sentencepiece",
}

// String returns the command-line name of the backend.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every supported backend in declaration order.
func Kinds() []Kind {
	return []Kind{JumanPP, Juman, MeCab, Char, SentencePiece}
}

// ParseKind maps a backend name ("jumanpp", "juman", "mecab", "char", "sentencepiece") to a Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Config carries backend specific settings. Fields irrelevant to a Kind are ignored.
type Config struct {
	// Dictionary selects the embedded kagome dictionary: "ipa" (default) or "uni".
	Dictionary string
	// DictionaryPath loads a kagome dictionary file instead of an embedded one.
	DictionaryPath string
	// Command overrides the analyzer binary for JumanPP and Juman.
	Command string
	// ModelPath is the SentencePiece model file.
	ModelPath string
	Logger    *slog.Logger
}

// New constructs the backend for kind.
func New(kind Kind, cfg Config) (Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch kind {
	case JumanPP, Juman:
		return newJuman(kind, cfg), nil
	case MeCab:
		return newKagome(cfg)
	case Char:
		return charBackend{}, nil
	case SentencePiece:
		return newSentencePiece(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// Join returns the surfaces of tokens separated by single spaces.
func Join(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Surface)
	}
	return b.String()
}
