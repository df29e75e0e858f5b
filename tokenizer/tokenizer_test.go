package tokenizer

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dense drops every whitespace rune.
func dense(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// assertOffsets checks the span invariants every backend must satisfy.
func assertOffsets(t *testing.T, text string, tokens []Token) {
	t.Helper()
	runes := []rune(text)
	prev := -1
	for i, tok := range tokens {
		n := len([]rune(tok.Surface))
		assert.Equal(t, tok.Start+n-1, tok.End, "token %d %q", i, tok.Surface)
		assert.GreaterOrEqual(t, tok.Start, prev, "token %d %q starts before its predecessor", i, tok.Surface)
		require.LessOrEqual(t, tok.End, len(runes)-1, "token %d %q", i, tok.Surface)
		assert.Equal(t, tok.Surface, string(runes[tok.Start:tok.End+1]), "token %d", i)
		prev = tok.Start
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		want    Kind
		wantErr bool
	}{
		{"jumanpp", JumanPP, false},
		{"juman", Juman, false},
		{"mecab", MeCab, false},
		{" Char ", Char, false},
		{"sentencepiece", SentencePiece, false},
		{"kytea", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_StringRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(Kind(42), Config{})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join(nil))
	assert.Equal(t, "東京", Join([]Token{{Surface: "東京"}}))
	assert.Equal(t, "東京 都 に", Join([]Token{{Surface: "東京"}, {Surface: "都"}, {Surface: "に"}}))
}

func TestCharBackend(t *testing.T) {
	b, err := New(Char, Config{})
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	ctx := context.Background()

	t.Run("ab", func(t *testing.T) {
		tokens, err := b.Tokenize(ctx, "ab")
		require.NoError(t, err)
		assert.Equal(t, []Token{
			{Surface: "a", Start: 0, End: 0},
			{Surface: "b", Start: 1, End: 1},
		}, tokens)
		assert.Equal(t, "a b", Join(tokens))
	})

	t.Run("empty", func(t *testing.T) {
		tokens, err := b.Tokenize(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("offsets are rune indices", func(t *testing.T) {
		text := "私は東京 都に住む"
		tokens, err := b.Tokenize(ctx, text)
		require.NoError(t, err)
		assert.Len(t, tokens, len([]rune(text)))
		assertOffsets(t, text, tokens)
		assert.Equal(t, dense(text), dense(Join(tokens)))
	})
}
