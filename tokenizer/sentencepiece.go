package tokenizer

import (
	"context"
	"fmt"
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
)

// metaspace is the SentencePiece replacement for a space (U+2581).
const metaspace = "▁"

// sentencePieceBackend segments text into subword pieces and maps each piece back
// onto the input text.
type sentencePieceBackend struct {
	proc *esentencepiece.Processor
}

func newSentencePiece(cfg Config) (*sentencePieceBackend, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: sentencepiece needs a model path", ErrBackend)
	}
	proc, err := esentencepiece.NewProcessorFromPath(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("loading sentencepiece model %s: %w", cfg.ModelPath, err)
	}
	return &sentencePieceBackend{proc: proc}, nil
}

func (b *sentencePieceBackend) Tokenize(ctx context.Context, text string) ([]Token, error) {
	if b.proc == nil {
		return nil, ErrClosed
	}
	if err := validate(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return pieceTokens(text, b.proc.Encode(text))
}

// pieceTokens maps encoded pieces back onto text. A piece that is only metaspace
// stands for whitespace and yields no token. Byte-fallback and "<unk>" pieces have
// no literal span in text and fail with ErrBackend.
func pieceTokens(text string, pieces []esentencepiece.Token) ([]Token, error) {
	loc := newLocator(text)
	var tokens []Token
	for _, piece := range pieces {
		surface := strings.ReplaceAll(piece.Text, metaspace, "")
		if isBlank(surface) {
			continue
		}

		start, end, err := loc.next(surface)
		if err != nil {
			return nil, fmt.Errorf("piece %d %q: %w", piece.ID, piece.Text, err)
		}
		tokens = append(tokens, Token{Surface: surface, Start: start, End: end})
	}
	return tokens, nil
}

func (b *sentencePieceBackend) Close() error {
	b.proc = nil
	return nil
}
