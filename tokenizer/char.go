package tokenizer

import "context"

// charBackend emits one token per rune. It never fails, even on invalid UTF-8,
// where each invalid byte becomes U+FFFD.
type charBackend struct{}

func (charBackend) Tokenize(_ context.Context, text string) ([]Token, error) {
	if text == "" {
		return nil, nil
	}

	tokens := make([]Token, 0, len(text))
	i := 0
	for _, r := range text {
		tokens = append(tokens, Token{Surface: string(r), Start: i, End: i})
		i++
	}
	return tokens, nil
}

func (charBackend) Close() error { return nil }
