package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// isWordRune reports whether r counts as a word character for boundary
// purposes: any Unicode letter or digit, or underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// atBoundary reports whether a word boundary lies at byte offset i of s,
// i.e. exactly one side of i is a word character. String edges count as
// non-word.
func atBoundary(s string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}

// ContainsWord reports whether needle occurs in haystack delimited by word
// boundaries at both ends, so "sul" does not match inside "consulta". Both
// arguments are expected to be normalized already. An empty needle never
// matches.
func ContainsWord(haystack, needle string) bool {
	if needle == "" || len(needle) > len(haystack) {
		return false
	}
	offset := 0
	for offset <= len(haystack)-len(needle) {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		if atBoundary(haystack, start) && atBoundary(haystack, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
	return false
}
