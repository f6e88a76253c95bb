package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// TokenSetRatio compares the word sets of a and b in [0, 1]. Word order and
// repeated words are ignored, and a name whose words are a subset of the
// other's scores 1. Names without any word score 0.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	for w := range ta {
		if _, ok := tb[w]; ok {
			sect = append(sect, w)
		} else {
			onlyA = append(onlyA, w)
		}
	}
	for w := range tb {
		if _, ok := ta[w]; !ok {
			onlyB = append(onlyB, w)
		}
	}
	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 1
	}

	s := joinSorted(sect)
	combinedA := strings.TrimSpace(s + " " + joinSorted(onlyA))
	combinedB := strings.TrimSpace(s + " " + joinSorted(onlyB))

	best := Ratio(combinedA, combinedB)
	if s != "" {
		best = max(best, Ratio(s, combinedA), Ratio(s, combinedB))
	}
	return best
}

func tokenSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func joinSorted(words []string) string {
	sort.Strings(words)
	return strings.Join(words, " ")
}
