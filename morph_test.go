package morph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-morph/tokenizer"
)

func newAnalyzer(t *testing.T, kind tokenizer.Kind, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(kind, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew(t *testing.T) {
	a := newAnalyzer(t, tokenizer.Char)
	assert.Equal(t, tokenizer.Char, a.Kind())
	assert.NotNil(t, a.backend)
}

func TestNew_BackendFailure(t *testing.T) {
	_, err := New(tokenizer.SentencePiece)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendInit)

	_, err = New(tokenizer.MeCab, WithDictionary("klingon"))
	assert.ErrorIs(t, err, ErrBackendInit)
}

func TestSegment_Char(t *testing.T) {
	a := newAnalyzer(t, tokenizer.Char)
	ctx := context.Background()

	tokens, err := a.Segment(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, []tokenizer.Token{
		{Surface: "a", Start: 0, End: 0},
		{Surface: "b", Start: 1, End: 1},
	}, tokens)

	s, ok, err := a.TokenizedString(ctx, "ab")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a b", s)
}

func TestSegment_Empty(t *testing.T) {
	for _, kind := range []tokenizer.Kind{tokenizer.Char, tokenizer.MeCab} {
		t.Run(kind.String(), func(t *testing.T) {
			a := newAnalyzer(t, kind)
			ctx := context.Background()

			tokens, err := a.Segment(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, tokens)

			s, ok, err := a.TokenizedString(ctx, "")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, s)
		})
	}
}

func TestTokenizedString_WhitespaceOnly(t *testing.T) {
	a := newAnalyzer(t, tokenizer.MeCab)

	s, ok, err := a.TokenizedString(context.Background(), " \t ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)
}

func TestSegment_RoundTrip(t *testing.T) {
	texts := []string{
		"私は東京都に住んでいます。",
		"今日は 良い 天気ですね",
		"ｶﾀｶﾅとABCの混在テキスト123",
	}

	for _, kind := range []tokenizer.Kind{tokenizer.Char, tokenizer.MeCab} {
		for _, h2z := range []bool{false, true} {
			a := newAnalyzer(t, kind, WithWidthNormalization(h2z))
			for _, text := range texts {
				tokens, err := a.Segment(context.Background(), text)
				require.NoError(t, err)

				segmented := text
				if h2z {
					segmented = NormalizeWidth(text)
				}
				assert.Equal(t, stripSpace(segmented), stripSpace(tokenizer.Join(tokens)), "%s h2z=%v %q", kind, h2z, text)

				runes := []rune(segmented)
				prev := 0
				for _, tok := range tokens {
					assert.Equal(t, tok.Start+len([]rune(tok.Surface))-1, tok.End)
					assert.GreaterOrEqual(t, tok.Start, prev)
					assert.Equal(t, tok.Surface, string(runes[tok.Start:tok.End+1]))
					prev = tok.Start
				}
			}
		}
	}
}

func TestSegment_WidthNormalizedOffsets(t *testing.T) {
	a := newAnalyzer(t, tokenizer.Char, WithWidthNormalization(true))

	tokens, err := a.Segment(context.Background(), "ｶﾞA")
	require.NoError(t, err)
	// ｶﾞ folds into one character, so A moves to offset 1
	assert.Equal(t, []tokenizer.Token{
		{Surface: "ガ", Start: 0, End: 0},
		{Surface: "Ａ", Start: 1, End: 1},
	}, tokens)
}

func TestSegment_TokenizationError(t *testing.T) {
	a := newAnalyzer(t, tokenizer.MeCab)

	_, err := a.Segment(context.Background(), "東京\xff")
	require.Error(t, err)

	var tokErr *TokenizationError
	require.True(t, errors.As(err, &tokErr))
	assert.Equal(t, "東京\xff", tokErr.Text)
	assert.ErrorIs(t, err, ErrTokenization)
	assert.ErrorIs(t, err, tokenizer.ErrInvalidInput)

	_, ok, err := a.TokenizedString(context.Background(), "東京\xff")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrTokenization)
}

func TestSegment_ExternalAnalyzer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake analyzer is a shell script")
	}

	script := filepath.Join(t.TempDir(), "fake-juman")
	body := "#!/bin/sh\nwhile IFS= read -r line; do printf '%s %s %s 名詞 6 普通名詞 1 * 0 * 0\\nEOS\\n' \"$line\" \"$line\" \"$line\"; done\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	a := newAnalyzer(t, tokenizer.Juman, WithCommand(script))
	s, ok, err := a.TokenizedString(context.Background(), "東京")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "東京", s)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(tokenizer.Char)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
