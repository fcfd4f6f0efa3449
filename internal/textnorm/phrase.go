package textnorm

import (
	"strings"
	"unicode/utf8"
)

// Text is a normalized searchable string with its word tokens precomputed,
// so one article can be tested against many insurer names cheaply.
type Text struct {
	s     string
	words []string
}

// NewText normalizes s and tokenizes it into words.
func NewText(s string) Text {
	n := Normalize(s)
	return Text{
		s:     n,
		words: strings.FieldsFunc(n, func(r rune) bool { return !isWordRune(r) }),
	}
}

// String returns the normalized text.
func (t Text) String() string { return t.s }

// Empty reports whether the text has no content.
func (t Text) Empty() bool { return t.s == "" }

// Contains reports whether the normalized phrase occurs in t as whole words.
// A phrase also matches a run of consecutive words that spell it once
// separators are ignored, so "sulamerica" matches "sul america" and
// "sul america" matches "sulamerica".
func (t Text) Contains(phrase string) bool {
	if ContainsWord(t.s, phrase) {
		return true
	}
	return t.containsJoined(compact(phrase))
}

func (t Text) containsJoined(target string) bool {
	if target == "" {
		return false
	}
	for i := range t.words {
		rest := target
		for j := i; j < len(t.words); j++ {
			if !strings.HasPrefix(rest, t.words[j]) {
				break
			}
			rest = rest[len(t.words[j]):]
			if rest == "" {
				return true
			}
		}
	}
	return false
}

// compact drops every non-word rune from s.
func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if isWordRune(r) {
			b.WriteRune(r)
		}
		s = s[size:]
	}
	return b.String()
}
