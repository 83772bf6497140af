// Package glob implements the key pattern syntax used by SCAN.
package glob

import (
	"unicode/utf8"
)

const (
	matchOne = '?'
	matchAll = '*'
	matchEsc = '\\'
	classBeg = '['
	classEnd = ']'
	classNeg = '^'
)

// readRune returns the first Unicode code point of s and the remaining string.
// Invalid UTF-8 bytes are returned as single runes so binary keys still match.
func readRune(s string) (rune, string) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size == 1 {
		return rune(s[0]), s[1:]
	}
	return r, s[size:]
}

// skipRune returns a slice of the string s with the first Unicode code point removed.
func skipRune(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}

// Match reports whether s matches the glob pattern.
// Supported syntax is '?' (any one character), '*' (zero or more characters),
// '[abc]', '[a-z]' and '[^a]' character classes, and '\' to escape the next character.
//
// Match requires pattern to match the whole string, not just a substring.
// An empty pattern matches everything.
func Match(pattern, s string) bool {
	if pattern == "" {
		return true
	}

	var w, t string // backtracking state

	for len(s) != 0 {
		if len(pattern) == 0 {
			if len(w) == 0 {
				return false
			}
			pattern = w
			t = skipRune(t)
			s = t
			continue
		}

		var p rune
		p, pattern = readRune(pattern)

		switch p {
		case matchAll:
			// collapse consecutive stars
			for len(pattern) != 0 && pattern[0] == matchAll {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			w, t = pattern, s
			continue
		case matchOne:
			s = skipRune(s)
			continue
		case classBeg:
			var r rune
			r, s = readRune(s)
			var ok bool
			ok, pattern = matchClass(pattern, r)
			if ok {
				continue
			}
		case matchEsc:
			if len(pattern) != 0 {
				p, pattern = readRune(pattern)
			}
			fallthrough
		default:
			var r rune
			r, s = readRune(s)
			if r == p {
				continue
			}
		}

		// mismatch
		if len(w) == 0 {
			// Nothing to backtrack.
			return false
		}
		// Keep the pattern and skip rune in input.
		// Note that we only backtrack to matchAll.
		pattern = w
		t = skipRune(t)
		s = t
	}

	// Check that the rest of the pattern is matchAll.
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != matchAll {
			return false
		}
	}
	return true
}

// matchClass matches r against the character class at the start of pattern
// (the opening bracket already consumed) and returns the pattern after the class.
// An unterminated class is treated as running to the end of the pattern.
func matchClass(pattern string, r rune) (bool, string) {
	var negate, matched bool
	if len(pattern) != 0 && pattern[0] == classNeg {
		negate = true
		pattern = pattern[1:]
	}

	for len(pattern) != 0 {
		var lo rune
		lo, pattern = readRune(pattern)
		if lo == classEnd {
			return matched != negate, pattern
		}
		if lo == matchEsc && len(pattern) != 0 {
			lo, pattern = readRune(pattern)
		}

		hi := lo
		if len(pattern) >= 2 && pattern[0] == '-' && pattern[1] != classEnd {
			hi, pattern = readRune(pattern[1:])
			if hi == matchEsc && len(pattern) != 0 {
				hi, pattern = readRune(pattern)
			}
			if hi < lo {
				lo, hi = hi, lo
			}
		}

		if lo <= r && r <= hi {
			matched = true
		}
	}

	return matched != negate, pattern
}

// Prefix returns the literal prefix of pattern, up to the first special character.
// Every key matching pattern starts with the returned prefix.
func Prefix(pattern string) string {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case matchAll, matchOne, classBeg, matchEsc:
			return pattern[:i]
		}
	}
	return pattern
}
