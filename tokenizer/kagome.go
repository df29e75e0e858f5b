package tokenizer

import (
	"context"
	"fmt"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"
)

// kagomeBackend is the MeCab-compatible tagger. It runs in process on a kagome
// dictionary, so there is no external binary to manage.
type kagomeBackend struct {
	t *kagome.Tokenizer
}

func newKagome(cfg Config) (*kagomeBackend, error) {
	d, err := loadDict(cfg)
	if err != nil {
		return nil, err
	}

	t, err := kagome.New(d, kagome.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("creating kagome tokenizer: %w", err)
	}

	return &kagomeBackend{t: t}, nil
}

func loadDict(cfg Config) (*dict.Dict, error) {
	if cfg.DictionaryPath != "" {
		d, err := dict.LoadDictFile(cfg.DictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("loading dictionary %s: %w", cfg.DictionaryPath, err)
		}
		return d, nil
	}

	switch cfg.Dictionary {
	case "", "ipa":
		return ipa.Dict(), nil
	case "uni":
		return uni.Dict(), nil
	default:
		return nil, fmt.Errorf("unknown dictionary %q (want ipa or uni)", cfg.Dictionary)
	}
}

func (b *kagomeBackend) Tokenize(ctx context.Context, text string) ([]Token, error) {
	if b.t == nil {
		return nil, ErrClosed
	}
	if err := validate(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := newLocator(text)
	var tokens []Token
	for _, m := range b.t.Tokenize(text) {
		// BOS/EOS markers are DUMMY tokens; OmitBosEos drops them already but
		// user dictionaries can still surface them.
		if m.Class == kagome.DUMMY || isBlank(m.Surface) {
			continue
		}

		start, end, err := loc.next(m.Surface)
		if err != nil {
			return nil, err
		}

		var pos string
		if features := m.Features(); len(features) > 0 {
			pos = features[0]
		}
		tokens = append(tokens, Token{Surface: m.Surface, POS: pos, Start: start, End: end})
	}

	return tokens, nil
}

func (b *kagomeBackend) Close() error {
	b.t = nil
	return nil
}
