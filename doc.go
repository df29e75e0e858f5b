// Package morph segments Japanese text with interchangeable morphological analyzers
// and relocates answer spans after the text has been re-tokenized.
//
// # Quick Start
//
//	a, err := morph.New(tokenizer.MeCab, morph.WithWidthNormalization(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	context, ok, err := a.TokenizedString(ctx, "私は東京都に住む")
//	answer, _, _ := a.TokenizedString(ctx, "東京都")
//	text, start, err := morph.Relocate(answer, context)
//
// # Thread Safety
//
// An Analyzer owns one backend instance and is not safe for concurrent use.
// Parallel workers should each own an Analyzer; see package pool.
//
// # Offsets
//
// Token offsets and relocated answer starts are rune (character) indices, which
// is what SQuAD-style answer_start fields count. When width normalization is on,
// offsets refer to the normalized text.
package morph
