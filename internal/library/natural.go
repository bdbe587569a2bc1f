package library

import (
	"strings"
)

type token struct {
	text    string
	numeric bool
}

// tokenize splits s into '/' separators, runs of ASCII digits and runs of
// everything else.
func tokenize(s string) []token {
	var tokens []token
	for i := 0; i < len(s); {
		j := i + 1
		switch {
		case s[i] == '/':
			tokens = append(tokens, token{text: "/"})
		case isDigit(s[i]):
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			tokens = append(tokens, token{text: s[i:j], numeric: true})
		default:
			for j < len(s) && s[j] != '/' && !isDigit(s[j]) {
				j++
			}
			tokens = append(tokens, token{text: strings.ToLower(s[i:j])})
		}
		i = j
	}
	return tokens
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// compareNumeric compares two digit strings by value without overflowing.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func compareTokens(a, b token) int {
	switch {
	case a.numeric && b.numeric:
		return compareNumeric(a.text, b.text)
	case a.numeric:
		return -1
	case b.numeric:
		return 1
	default:
		return strings.Compare(a.text, b.text)
	}
}

// NaturalLess orders paths the way a person would: digit runs compare by
// value and letters ignore case, so "9 - x.ogg" sorts before "10 - x.ogg".
func NaturalLess(a, b string) bool {
	ta, tb := tokenize(a), tokenize(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		if c := compareTokens(ta[i], tb[i]); c != 0 {
			return c < 0
		}
	}
	if len(ta) != len(tb) {
		return len(ta) < len(tb)
	}
	return a < b
}
