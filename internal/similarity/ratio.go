// Package similarity scores how alike two organization names are.
package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s after NFC composition so that precomposed and
// decomposed accents compare equal, then splits it into one element per
// rune for the sequence matcher.
func fold(s string) []string {
	runes := []rune(strings.ToLower(norm.NFC.String(s)))
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// Ratio returns the matching-blocks similarity of a and b in [0, 1],
// computed case-insensitively: 2*M/T where T is the total rune count and M
// the size of all matching blocks. Two empty strings score 1.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(fold(a), fold(b)).Ratio()
}
