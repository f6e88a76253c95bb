package similarity

// DefaultMatchThreshold is the minimum Ratio for a fuzzy name match.
const DefaultMatchThreshold = 0.88

// Match is the best candidate found for a name.
type Match struct {
	Name  string
	Index int
	Score float64
}

// FindBestMatch returns the compatible candidate with the highest Ratio to
// name, provided it reaches threshold. The first candidate wins ties.
func FindBestMatch(name string, candidates []string, threshold float64) (Match, bool) {
	best := Match{Index: -1}
	for i, c := range candidates {
		if !Compatible(name, c) {
			continue
		}
		if r := Ratio(name, c); r > best.Score {
			best = Match{Name: c, Index: i, Score: r}
		}
	}
	if best.Index < 0 || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}
