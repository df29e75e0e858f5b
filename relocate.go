package morph

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// denseIndex is a string with its whitespace removed, paired rune for rune with
// each rune's offset in the original string.
type denseIndex struct {
	text    string
	offsets []int // offsets[i] is the rune offset of the i-th dense rune
}

func newDenseIndex(s string) denseIndex {
	var b strings.Builder
	offsets := make([]int, 0, len(s))
	i := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
			offsets = append(offsets, i)
		}
		i++
	}
	return denseIndex{text: b.String(), offsets: offsets}
}

// stripSpace removes every whitespace rune from s.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Relocate finds tokenizedAnswer in tokenizedContext ignoring whitespace and
// returns the matching slice of tokenizedContext with its rune start offset.
//
// The returned text spans from the first to the last matched rune of the context,
// so it keeps whatever whitespace the tokenizer inserted inside the answer. The
// leftmost occurrence wins when the answer appears more than once.
//
// An answer that does not occur (or is empty once whitespace is removed) yields
// a *RelocationError.
func Relocate(tokenizedAnswer, tokenizedContext string) (text string, start int, err error) {
	answer := stripSpace(tokenizedAnswer)
	if answer == "" {
		return "", 0, &RelocationError{Answer: tokenizedAnswer, Context: tokenizedContext}
	}

	idx := newDenseIndex(tokenizedContext)
	at := strings.Index(idx.text, answer)
	if at < 0 {
		return "", 0, &RelocationError{Answer: tokenizedAnswer, Context: tokenizedContext}
	}

	first := utf8.RuneCountInString(idx.text[:at])
	last := first + utf8.RuneCountInString(answer) - 1
	start, end := idx.offsets[first], idx.offsets[last]

	runes := []rune(tokenizedContext)
	return string(runes[start : end+1]), start, nil
}
