package tokenizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKagome(t *testing.T) Backend {
	t.Helper()
	b, err := New(MeCab, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestKagome_Segments(t *testing.T) {
	b := newTestKagome(t)

	text := "すもももももももものうち"
	tokens, err := b.Tokenize(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "すもも も もも も もも の うち", Join(tokens))
	assertOffsets(t, text, tokens)
	for _, tok := range tokens {
		assert.NotEmpty(t, tok.POS, "token %q has no part of speech", tok.Surface)
	}
	assert.Equal(t, "名詞", tokens[0].POS)
}

func TestKagome_RoundTrip(t *testing.T) {
	b := newTestKagome(t)

	tests := []string{
		"私は東京都に住んでいます。",
		"今日は  良い天気\tですね",
		"ＡＢＣとabc、123円",
		" 先頭と末尾の空白 ",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			tokens, err := b.Tokenize(context.Background(), text)
			require.NoError(t, err)
			assertOffsets(t, text, tokens)
			assert.Equal(t, dense(text), dense(Join(tokens)))
			for _, tok := range tokens {
				assert.False(t, isBlank(tok.Surface), "whitespace token %q leaked", tok.Surface)
			}
		})
	}
}

func TestKagome_Empty(t *testing.T) {
	b := newTestKagome(t)

	tokens, err := b.Tokenize(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tokens)

	tokens, err = b.Tokenize(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestKagome_InvalidUTF8(t *testing.T) {
	b := newTestKagome(t)

	_, err := b.Tokenize(context.Background(), "東京\xff")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestKagome_Closed(t *testing.T) {
	b, err := New(MeCab, Config{})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Tokenize(context.Background(), "東京")
	require.ErrorIs(t, err, ErrClosed)
}

func TestKagome_Dictionaries(t *testing.T) {
	_, err := New(MeCab, Config{Dictionary: "unknown"})
	require.Error(t, err)

	_, err = New(MeCab, Config{DictionaryPath: "testdata/nonexistent.dict"})
	require.Error(t, err)
}
