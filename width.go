package morph

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// halfwidthMarks turns the half-width (semi-)voiced sound marks into their
// combining forms so NFC can fold ｶﾞ into ガ instead of leaving カ゛.
var halfwidthMarks = runes.Map(func(r rune) rune {
	switch r {
	case '\uff9e': // ﾞ
		return '\u3099'
	case '\uff9f': // ﾟ
		return '\u309a'
	}
	return r
})

// NormalizeWidth converts half-width (narrow) characters to their full-width
// equivalents: ASCII letters, digits, symbols and space, and half-width katakana.
// It is idempotent.
func NormalizeWidth(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(halfwidthMarks, width.Widen, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		// The chain only maps runes; an error means malformed input we leave alone.
		return s
	}
	return out
}
