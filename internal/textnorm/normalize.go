// Package textnorm canonicalizes text for accent- and case-insensitive
// insurer name matching.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldChain decomposes (NFKD), drops combining marks, lowercases, then
// decomposes once more so that the lowercase mapping cannot reintroduce a
// decomposable character. A transform.Chain is stateful, so one is built per
// call.
func foldChain() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(unicode.ToLower),
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
	)
}

// Normalize strips diacritics, lowercases, and trims surrounding whitespace.
// "SulAmérica " and "sulamerica" normalize to the same string. Empty input
// yields "". Normalize never fails: if the transform errors, the input is
// lowercased and trimmed instead.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(foldChain(), s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.TrimSpace(out)
}

// Length returns the number of characters (runes) in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
