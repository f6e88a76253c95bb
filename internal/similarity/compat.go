package similarity

import "strings"

const (
	firstTokenFloor = 0.50
	coreFloor       = 0.60
)

var articles = map[string]struct{}{"the": {}, "a": {}, "an": {}}

// Applied in order, each at most once.
var coreSuffixes = []string{
	" foundation",
	" project",
	" initiative",
	" community",
	" organization",
	".org",
	".com",
	" gmbh",
}

// Compatible is a cheap pre-filter that rejects name pairs which share a
// generic word but differ in their distinctive part, e.g. "Debian" and
// "PEcAn". It never makes a pair more likely to match.
func Compatible(a, b string) bool {
	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))

	fa, okA := firstSignificant(na)
	fb, okB := firstSignificant(nb)
	if okA && okB && Ratio(fa, fb) < firstTokenFloor {
		return false
	}

	ca, cb := core(na), core(nb)
	if ca != "" && cb != "" && Ratio(ca, cb) < coreFloor {
		return false
	}
	return true
}

func firstSignificant(s string) (string, bool) {
	for _, w := range strings.Fields(s) {
		if _, ok := articles[w]; ok {
			continue
		}
		return w, true
	}
	return "", false
}

// core strips organizational suffixes and a leading article from a
// lowercased name.
func core(s string) string {
	for _, suffix := range coreSuffixes {
		s = strings.TrimSuffix(s, suffix)
	}
	s = strings.TrimSpace(s)
	return strings.TrimPrefix(s, "the ")
}
