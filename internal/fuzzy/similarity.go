// Package fuzzy scores how alike two business names are.
package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/couchcryptid/facility-lead-etl/internal/textfold"
)

// corporateSuffixes are dropped wherever they appear in a name.
var corporateSuffixes = map[string]bool{
	"llc":          true,
	"pllc":         true,
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"ltd":          true,
	"limited":      true,
	"lp":           true,
	"llp":          true,
	"plc":          true,
	"pc":           true,
}

// Clean reduces a name to its sorted, suffix-free tokens joined by spaces.
func Clean(name string) string {
	tokens := textfold.Tokens(name)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !corporateSuffixes[tok] {
			kept = append(kept, tok)
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// Similarity returns a score in [0, 100] comparing the cleaned, token-sorted
// forms of a and b by normalized Levenshtein distance. Word order and
// corporate suffixes do not affect the score. If either side cleans to
// nothing the score is 0.
func Similarity(a, b string) float64 {
	return Ratio(Clean(a), Clean(b))
}

// Ratio scores two already-cleaned strings.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}
