package marc

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultASCIIThreshold drops reviews that are mostly written in ASCII.
const DefaultASCIIThreshold = 0.9

// StripHTML returns the text content of a review body, with tags and comments
// removed and character references decoded.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF; a strings.Reader has no other failure.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// isPrintableASCII matches Python's string.printable: letters, digits,
// punctuation and the six ASCII whitespace characters.
func isPrintableASCII(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return true
	case r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
		return true
	}
	return false
}

// ASCIIRate is the share of runes in s that are printable ASCII. It is 0 for "".
func ASCIIRate(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	ascii := 0
	for _, r := range s {
		if isPrintableASCII(r) {
			ascii++
		}
	}
	return float64(ascii) / float64(n)
}
