package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// validate rejects text that no dictionary backend can analyze.
func validate(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	return nil
}

// isBlank reports whether s is empty or whitespace only.
func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// locator maps surfaces emitted by an analyzer back onto the text it analyzed.
// Analyzers may silently skip whitespace, so each surface is searched for from the
// current position instead of assuming contiguity.
type locator struct {
	text    string
	bytePos int // byte cursor into text
	runePos int // rune index matching bytePos
	limit   int // surfaces must end at or before this byte offset
}

func newLocator(text string) *locator {
	return &locator{text: text, limit: len(text)}
}

// bound restricts matches to text[:limit]; a negative limit lifts the bound.
func (l *locator) bound(limit int) {
	if limit < 0 || limit > len(l.text) {
		limit = len(l.text)
	}
	l.limit = limit
}

// next finds surface at or after the cursor and returns its inclusive rune span.
func (l *locator) next(surface string) (start, end int, err error) {
	if surface == "" {
		return 0, 0, fmt.Errorf("%w: empty surface", ErrBackend)
	}
	if l.bytePos > l.limit {
		return 0, 0, fmt.Errorf("%w: cursor at byte %d is past the bound %d", ErrBackend, l.bytePos, l.limit)
	}

	idx := strings.Index(l.text[l.bytePos:l.limit], surface)
	if idx < 0 {
		return 0, 0, fmt.Errorf("%w: surface %q not found in input after rune %d", ErrBackend, surface, l.runePos)
	}

	start = l.runePos + utf8.RuneCountInString(l.text[l.bytePos:l.bytePos+idx])
	n := utf8.RuneCountInString(surface)
	end = start + n - 1

	l.bytePos += idx + len(surface)
	l.runePos = end + 1
	return start, end, nil
}

// skip advances the cursor past n bytes of text that were analyzed elsewhere.
// The cursor never moves backwards.
func (l *locator) skip(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: cursor at byte %d cannot move back %d bytes", ErrBackend, l.bytePos, -n)
	}
	if l.bytePos+n > len(l.text) {
		n = len(l.text) - l.bytePos
	}
	l.runePos += utf8.RuneCountInString(l.text[l.bytePos : l.bytePos+n])
	l.bytePos += n
	return nil
}
