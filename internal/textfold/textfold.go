// Package textfold reduces free text to comparable lowercase ASCII tokens.
package textfold

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

// Tokens transliterates s to ASCII, lowercases it and splits it into
// alphanumeric tokens. Periods and apostrophes are dropped so "L.L.C." and
// "Smith's" stay whole; every other non-alphanumeric rune separates tokens.
func Tokens(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	folded := strings.ToLower(unidecode.Unidecode(s))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '.' || r == '\'':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// Collapse lowercases s and squeezes runs of whitespace to single spaces.
func Collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(s))), " ")
}
